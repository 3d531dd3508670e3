package tree

import "github.com/pribylovaa/locations-gateway/internal/models"

// View — снимок состояния узла для отдачи клиенту.
//
// Children заполняется только у раскрытых загруженных узлов (рекурсивно),
// ChildCount — всегда, если дети загружены.
type View struct {
	Level      models.Level `json:"level,omitempty"`
	ID         int64        `json:"id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Flag       string       `json:"flag,omitempty"`
	Title      string       `json:"title,omitempty"`
	ParentID   int64        `json:"parent_id,omitempty"`
	ChildLevel models.Level `json:"child_level,omitempty"`
	Leaf       bool         `json:"leaf,omitempty"`
	Expanded   bool         `json:"expanded"`
	Loaded     bool         `json:"loaded"`
	Loading    bool         `json:"loading"`
	Page       int          `json:"page"`
	HasMore    bool         `json:"has_more"`
	ChildCount int          `json:"child_count"`
	Error      string       `json:"error,omitempty"`
	Children   []View       `json:"children,omitempty"`
}

// View возвращает снимок узла и видимого поддерева.
func (n *Node) View() View {
	n.mu.Lock()
	v := View{
		Level:      n.loc.Level,
		ID:         n.loc.ID,
		Name:       n.loc.Name,
		Flag:       n.loc.Flag,
		ParentID:   n.loc.ParentID,
		ChildLevel: n.childLevel,
		Leaf:       !n.root && !n.childLevel.Valid(),
		Expanded:   n.expanded,
		Loaded:     n.children != nil,
		Loading:    n.loading,
		Page:       n.page,
		HasMore:    n.children != nil && n.hasMore,
		ChildCount: len(n.children),
	}
	if !n.root {
		v.Title = n.loc.Title()
	}
	if n.lastErr != nil {
		v.Error = n.lastErr.Error()
	}

	var visible []*Node
	if n.expanded && n.children != nil {
		visible = make([]*Node, len(n.children))
		copy(visible, n.children)
	}
	n.mu.Unlock()

	if visible != nil {
		v.Children = make([]View, 0, len(visible))
		for _, c := range visible {
			v.Children = append(v.Children, c.View())
		}
	}

	return v
}

// Items — дети в текущем порядке (для тестов и CLI-выгрузок).
func (v View) Items() []models.Location {
	out := make([]models.Location, 0, len(v.Children))
	for _, c := range v.Children {
		out = append(out, models.Location{
			ID:       c.ID,
			Name:     c.Name,
			Flag:     c.Flag,
			Level:    c.Level,
			ParentID: c.ParentID,
		})
	}

	return out
}
