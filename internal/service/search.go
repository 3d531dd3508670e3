package service

import (
	"context"
	"strings"
	"sync"

	"github.com/pribylovaa/locations-gateway/internal/metrics"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/pkg/log"
	"golang.org/x/sync/errgroup"
)

// Search ищет query по всем шести уровням параллельно.
//
// Особенности:
//   - пустой (после TrimSpace) запрос возвращает пустой результат без обращений к апстриму;
//   - запрос по уровню не отменяет остальные: ошибка уровня попадает в Failed,
//     найденное на других уровнях возвращается;
//   - результаты упорядочены по уровню (страны первыми), каждый элемент помечен уровнем;
//   - ошибка возвращается только при отмене ctx вызывающего.
func (s *Service) Search(ctx context.Context, query string) (models.SearchResult, error) {
	const op = "service/search/Search"

	query = strings.TrimSpace(query)
	res := models.SearchResult{Query: query, Items: []models.Location{}}
	if query == "" {
		return res, nil
	}

	lg := log.From(ctx).With("op", op, "query", query)

	levels := models.Levels()
	perLevel := make([][]models.Location, len(levels))
	failed := make([]bool, len(levels))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, level := range levels {
		g.Go(func() error {
			items, err := s.upstream.Search(gctx, level, query, 0, s.cfg.Tree.PageSize)
			s.metrics.SearchRequests.WithLabelValues(level.String(), metrics.Outcome(err)).Inc()
			if err != nil {
				lg.Warn("search_level_failed", "level", level.String(), "err", err.Error())

				mu.Lock()
				failed[i] = true
				mu.Unlock()

				return nil
			}

			for j := range items {
				items[j].Level = level
			}

			mu.Lock()
			perLevel[i] = items
			mu.Unlock()

			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return models.SearchResult{}, mapUpstream(op, err)
	}

	for i, level := range levels {
		if failed[i] {
			res.Failed = append(res.Failed, level)
			continue
		}
		res.Items = append(res.Items, perLevel[i]...)
	}

	lg.Debug("search_done", "items", len(res.Items), "failed", len(res.Failed))

	return res, nil
}
