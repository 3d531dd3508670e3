package tree

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/pkg/log"
)

// Node — узел дерева: одна административная единица и её лениво
// загружаемые дети.
//
// Инварианты:
//   - children == nil — дети ни разу не загружались; пустой срез — загружены, их нет;
//   - id в children уникальны;
//   - page растёт только на LoadMore и сбрасывается в 0 при полной перезагрузке;
//   - hasMore имеет смысл только после первой загрузки.
type Node struct {
	tree       *Tree
	loc        models.Location
	childLevel models.Level // 0 — лист (деревня)
	root       bool

	mu       sync.Mutex
	expanded bool
	loading  bool
	hasMore  bool
	detached bool
	page     int
	children []*Node
	lastErr  error
}

// Location — описание узла. Для корня — нулевое значение.
func (n *Node) Location() models.Location { return n.loc }

// ChildLevel — уровень детей узла; false для деревень.
func (n *Node) ChildLevel() (models.Level, bool) {
	return n.childLevel, n.childLevel.Valid()
}

// IsRoot сообщает, является ли узел корнем (списком стран).
func (n *Node) IsRoot() bool { return n.root }

// Loaded — дети загружались хотя бы раз.
func (n *Node) Loaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.children != nil
}

// Toggle раскрывает или сворачивает узел. Первое раскрытие загружает
// страницу 0; повторное раскрытие использует уже загруженных детей.
func (n *Node) Toggle(ctx context.Context) View {
	n.mu.Lock()
	n.expanded = !n.expanded
	start := n.beginFirstLoadLocked()
	n.mu.Unlock()

	if start {
		n.reload(ctx)
	}

	return n.View()
}

// Expand раскрывает узел (идемпотентно).
func (n *Node) Expand(ctx context.Context) View {
	n.mu.Lock()
	n.expanded = true
	start := n.beginFirstLoadLocked()
	n.mu.Unlock()

	if start {
		n.reload(ctx)
	}

	return n.View()
}

// Collapse сворачивает узел; загруженные дети сохраняются.
func (n *Node) Collapse() View {
	n.mu.Lock()
	n.expanded = false
	n.mu.Unlock()

	return n.View()
}

// LoadMore подгружает следующую страницу детей.
//
// Ошибка загрузки не возвращается: состояние узла не меняется, а текст
// ошибки виден в View.Error.
func (n *Node) LoadMore(ctx context.Context) (View, error) {
	n.mu.Lock()
	switch {
	case n.loading:
		n.mu.Unlock()
		return n.View(), ErrBusy
	case n.children == nil:
		n.mu.Unlock()
		return n.View(), ErrNotLoaded
	case !n.hasMore:
		n.mu.Unlock()
		return n.View(), ErrExhausted
	}
	n.loading = true
	next := n.page + 1
	n.mu.Unlock()

	page, err := n.fetch(ctx, next)

	n.mu.Lock()
	n.loading = false
	if err != nil {
		n.lastErr = err
		n.mu.Unlock()
		return n.View(), nil
	}

	seen := make(map[int64]struct{}, len(n.children))
	for _, c := range n.children {
		seen[c.loc.ID] = struct{}{}
	}
	fresh := n.newChildren(page.Items, seen)

	n.lastErr = nil
	if len(fresh) == 0 {
		// Страница целиком из повторов: считаем список исчерпанным.
		n.hasMore = false
	} else {
		n.children = append(n.children, fresh...)
		n.hasMore = len(fresh) == n.tree.pageSize && explicitMore(page)
		n.page = next
		if !n.detached {
			n.tree.register(fresh)
		}
	}
	n.mu.Unlock()

	return n.View(), nil
}

// Refresh перезагружает первую страницу детей, заменяя весь список.
// Старое поддерево отсоединяется от индекса.
func (n *Node) Refresh(ctx context.Context) (View, error) {
	n.mu.Lock()
	if n.loading {
		n.mu.Unlock()
		return n.View(), ErrBusy
	}
	n.loading = true
	n.mu.Unlock()

	n.reload(ctx)

	return n.View(), nil
}

// Forget убирает ребёнка с данным id из списка (после его удаления в апстриме).
func (n *Node) Forget(id int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, c := range n.children {
		if c.loc.ID != id {
			continue
		}
		kept := make([]*Node, 0, len(n.children)-1)
		kept = append(kept, n.children[:i]...)
		kept = append(kept, n.children[i+1:]...)
		n.children = kept
		n.tree.unregister(detachAll([]*Node{c}))
		return true
	}

	return false
}

func (n *Node) beginFirstLoadLocked() bool {
	if !n.expanded || n.children != nil || n.loading {
		return false
	}
	n.loading = true
	return true
}

// reload выполняет полную загрузку страницы 0. Вызывающий уже выставил loading.
func (n *Node) reload(ctx context.Context) {
	page, err := n.fetch(ctx, 0)

	n.mu.Lock()
	defer n.mu.Unlock()

	n.loading = false
	old := n.children
	n.page = 0

	if err != nil {
		n.children = []*Node{}
		n.hasMore = false
		n.lastErr = err
	} else {
		n.children = n.newChildren(page.Items, make(map[int64]struct{}, len(page.Items)))
		if n.root {
			sort.SliceStable(n.children, func(i, j int) bool {
				return n.children[i].loc.ID < n.children[j].loc.ID
			})
		}
		n.hasMore = len(page.Items) == n.tree.pageSize && explicitMore(page)
		n.lastErr = nil
	}

	n.tree.unregister(detachAll(old))
	if !n.detached {
		n.tree.register(n.children)
	}
}

// fetch запрашивает страницу детей. Запрос не отменяется вместе с ctx
// вызывающего: начатая загрузка всегда доводится до конца.
func (n *Node) fetch(ctx context.Context, page int) (*models.Page, error) {
	if !n.childLevel.Valid() {
		return &models.Page{}, nil
	}

	res, err := n.tree.fetcher.Children(context.WithoutCancel(ctx), n.childLevel, n.loc.ID, page, n.tree.pageSize)
	if err != nil {
		log.From(ctx).Warn("tree_fetch_failed",
			slog.String("level", n.childLevel.String()),
			slog.Int64("parent_id", n.loc.ID),
			slog.Int("page", page),
			slog.String("err", err.Error()),
		)
		return nil, err
	}
	if res == nil {
		res = &models.Page{}
	}

	return res, nil
}

// newChildren строит узлы для items, пропуская id из seen и повторы
// внутри страницы. seen дополняется.
func (n *Node) newChildren(items []models.Location, seen map[int64]struct{}) []*Node {
	grandchild, _ := n.childLevel.Child()

	out := make([]*Node, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}

		it.Level = n.childLevel
		it.ParentID = n.loc.ID
		out = append(out, &Node{
			tree:       n.tree,
			loc:        it,
			childLevel: grandchild,
		})
	}

	return out
}

// explicitMore — явный флаг hasMore апстрима; без флага не ограничивает.
func explicitMore(p *models.Page) bool {
	return p.HasMore == nil || *p.HasMore
}

// detachAll помечает поддеревья отсоединёнными и возвращает все их узлы.
// Блокирует детей, поэтому вызывается под замком родителя или без замков.
func detachAll(nodes []*Node) []*Node {
	var out []*Node
	for _, c := range nodes {
		c.mu.Lock()
		c.detached = true
		grand := c.children
		c.mu.Unlock()

		out = append(out, c)
		out = append(out, detachAll(grand)...)
	}

	return out
}
