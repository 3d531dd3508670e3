// tree — ленивое дерево административных единиц с постраничной подгрузкой детей.
//
// Дерево принадлежит одной сессии администратора. Каждый узел владеет своим
// состоянием (expanded, children, page, hasMore, loading) под собственным
// мьютексом; загрузки выполняются вне блокировки.
package tree

import (
	"context"
	"errors"
	"sync"

	"github.com/pribylovaa/locations-gateway/internal/models"
)

// DefaultPageSize — размер страницы детей, если не задан явно.
const DefaultPageSize = 10

var (
	// ErrNotLoaded — дети узла ещё ни разу не загружались.
	ErrNotLoaded = errors.New("tree: children not loaded")
	// ErrExhausted — апстрим больше не отдаёт новых детей.
	ErrExhausted = errors.New("tree: no more children")
	// ErrBusy — по узлу уже идёт загрузка.
	ErrBusy = errors.New("tree: fetch in progress")
)

// Fetcher — источник страниц детей.
//
// parentID == 0 для уровня стран. page нумеруется с нуля.
type Fetcher interface {
	Children(ctx context.Context, level models.Level, parentID int64, page, size int) (*models.Page, error)
}

// Options — параметры дерева.
type Options struct {
	PageSize int
}

type nodeKey struct {
	level models.Level
	id    int64
}

// Tree — корень и индекс загруженных узлов.
type Tree struct {
	fetcher  Fetcher
	pageSize int
	root     *Node

	mu    sync.RWMutex
	index map[nodeKey]*Node
}

// New создаёт дерево; корень (список стран) не загружается до первого Expand.
func New(f Fetcher, opts Options) *Tree {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	t := &Tree{
		fetcher:  f,
		pageSize: size,
		index:    make(map[nodeKey]*Node),
	}
	t.root = &Node{tree: t, childLevel: models.LevelCountries, root: true}

	return t
}

// Root — виртуальный корень, чьи дети — страны.
func (t *Tree) Root() *Node { return t.root }

// PageSize — размер страницы, с которым дерево ходит в апстрим.
func (t *Tree) PageSize() int { return t.pageSize }

// Node ищет загруженный узел по уровню и id.
func (t *Tree) Node(level models.Level, id int64) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.index[nodeKey{level: level, id: id}]
	return n, ok
}

// Len — число зарегистрированных (загруженных) узлов без корня.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.index)
}

func (t *Tree) register(nodes []*Node) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, n := range nodes {
		t.index[nodeKey{level: n.loc.Level, id: n.loc.ID}] = n
	}
}

func (t *Tree) unregister(nodes []*Node) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, n := range nodes {
		k := nodeKey{level: n.loc.Level, id: n.loc.ID}
		// Узел с тем же ключом мог быть уже заменён новой загрузкой.
		if t.index[k] == n {
			delete(t.index, k)
		}
	}
}
