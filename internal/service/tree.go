package service

import (
	"context"
	"fmt"

	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/tree"
	"github.com/pribylovaa/locations-gateway/pkg/log"
)

// RootView возвращает список стран сессии; при первом обращении загружает страницу 0.
// Ошибка загрузки не возвращается, а видна в View.Error.
func (s *Service) RootView(ctx context.Context) tree.View {
	return s.treeFor(ctx).Root().Expand(ctx)
}

// RefreshRoot перезагружает список стран с нуля.
func (s *Service) RefreshRoot(ctx context.Context) (tree.View, error) {
	const op = "service/tree/RefreshRoot"

	root := s.treeFor(ctx).Root()
	if !root.Loaded() {
		return root.Expand(ctx), nil
	}

	v, err := root.Refresh(ctx)
	if err != nil {
		return v, mapTree(op, err)
	}

	return root.Expand(ctx), nil
}

// LoadMoreRoot подгружает следующую страницу стран.
func (s *Service) LoadMoreRoot(ctx context.Context) (tree.View, error) {
	const op = "service/tree/LoadMoreRoot"

	root := s.treeFor(ctx).Root()
	if !root.Loaded() {
		root.Expand(ctx)
	}

	v, err := root.LoadMore(ctx)
	if err != nil {
		return v, mapTree(op, err)
	}

	return v, nil
}

// Node возвращает снимок загруженного узла.
func (s *Service) Node(ctx context.Context, level models.Level, id int64) (tree.View, error) {
	const op = "service/tree/Node"

	n, err := s.lookup(ctx, op, level, id)
	if err != nil {
		return tree.View{}, err
	}

	return n.View(), nil
}

// Toggle раскрывает или сворачивает узел.
func (s *Service) Toggle(ctx context.Context, level models.Level, id int64) (tree.View, error) {
	const op = "service/tree/Toggle"

	n, err := s.lookup(ctx, op, level, id)
	if err != nil {
		return tree.View{}, err
	}

	return n.Toggle(ctx), nil
}

// Expand раскрывает узел.
func (s *Service) Expand(ctx context.Context, level models.Level, id int64) (tree.View, error) {
	const op = "service/tree/Expand"

	n, err := s.lookup(ctx, op, level, id)
	if err != nil {
		return tree.View{}, err
	}

	return n.Expand(ctx), nil
}

// Collapse сворачивает узел, сохраняя загруженных детей.
func (s *Service) Collapse(ctx context.Context, level models.Level, id int64) (tree.View, error) {
	const op = "service/tree/Collapse"

	n, err := s.lookup(ctx, op, level, id)
	if err != nil {
		return tree.View{}, err
	}

	return n.Collapse(), nil
}

// LoadMore подгружает следующую страницу детей узла.
func (s *Service) LoadMore(ctx context.Context, level models.Level, id int64) (tree.View, error) {
	const op = "service/tree/LoadMore"

	n, err := s.lookup(ctx, op, level, id)
	if err != nil {
		return tree.View{}, err
	}

	v, err := n.LoadMore(ctx)
	if err != nil {
		return v, mapTree(op, err)
	}

	return v, nil
}

// Refresh перезагружает первую страницу детей узла.
func (s *Service) Refresh(ctx context.Context, level models.Level, id int64) (tree.View, error) {
	const op = "service/tree/Refresh"

	n, err := s.lookup(ctx, op, level, id)
	if err != nil {
		return tree.View{}, err
	}

	v, err := n.Refresh(ctx)
	if err != nil {
		return v, mapTree(op, err)
	}

	return v, nil
}

// lookup ищет узел среди загруженных в дереве сессии.
func (s *Service) lookup(ctx context.Context, op string, level models.Level, id int64) (*tree.Node, error) {
	if !level.Valid() || id <= 0 {
		log.From(ctx).Warn("invalid argument: bad node ref", "op", op, "level", level.String(), "id", id)

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	n, ok := s.treeFor(ctx).Node(level, id)
	if !ok {
		return nil, fmt.Errorf("%s: %s %d not loaded: %w", op, level.Singular(), id, ErrNotFound)
	}

	return n, nil
}

// parentOf — узел, чьи дети содержат (level, parentID): корень для стран.
// false, если родитель не загружен в сессии.
func parentOf(t *tree.Tree, level models.Level, parentID int64) (*tree.Node, bool) {
	parentLevel, ok := level.Parent()
	if !ok {
		return t.Root(), true
	}

	return t.Node(parentLevel, parentID)
}

// refreshParent перезагружает детей родителя после мутации, если они были загружены.
// Занятый загрузкой узел пропускается: идущая загрузка уже вернёт свежие данные.
func (s *Service) refreshParent(ctx context.Context, level models.Level, parentID int64) {
	parent, ok := parentOf(s.treeFor(ctx), level, parentID)
	if !ok || !parent.Loaded() {
		return
	}

	if _, err := parent.Refresh(ctx); err != nil {
		log.From(ctx).Debug("parent_refresh_skipped",
			"level", level.String(),
			"parent_id", parentID,
			"err", err.Error(),
		)
	}
}
