package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/locations-gateway/internal/metrics"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/tree"
	"github.com/pribylovaa/locations-gateway/internal/upstream/transport"
	"github.com/pribylovaa/locations-gateway/pkg/log"
)

// anonymous — сессия запросов без токена.
const anonymous = "anonymous"

type session struct {
	tree     *tree.Tree
	lastSeen time.Time
}

// treeFor возвращает дерево сессии текущего администратора, создавая его при необходимости.
func (s *Service) treeFor(ctx context.Context) *tree.Tree {
	actor := transport.ActorFrom(ctx)
	if actor == "" {
		actor = anonymous
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[actor]
	if !ok {
		sess = &session{
			tree: tree.New(meteredFetcher{up: s.upstream, m: s.metrics}, tree.Options{PageSize: s.cfg.Tree.PageSize}),
		}
		s.sessions[actor] = sess
		s.metrics.Sessions.Set(float64(len(s.sessions)))
	}
	sess.lastSeen = s.now()

	return sess.tree
}

// Sessions — число активных сессий.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// StartSweeper периодически удаляет сессии, простаивающие дольше cfg.Tree.SessionTTL.
//
// Особенности:
//   - период — cfg.Tree.SweepInterval;
//   - SessionTTL <= 0 отключает очистку;
//   - останавливается по ctx.
func (s *Service) StartSweeper(ctx context.Context) error {
	const op = "service/sessions/StartSweeper"

	ttl := s.cfg.Tree.SessionTTL
	interval := s.cfg.Tree.SweepInterval

	if ttl <= 0 {
		return fmt.Errorf("%s: session ttl disabled", op)
	}
	if interval <= 0 {
		interval = time.Minute
	}

	lg := log.From(ctx)
	lg.Info("sweeper_start",
		slog.String("op", op),
		slog.Duration("ttl", ttl),
		slog.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Info("sweeper_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			if n := s.sweep(ttl); n > 0 {
				lg.Info("sessions_evicted",
					slog.String("op", op),
					slog.Int("evicted", n),
					slog.Int("active", s.Sessions()),
				)
			}
		}
	}
}

// sweep удаляет сессии старше ttl и возвращает их число.
func (s *Service) sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for actor, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, actor)
			n++
		}
	}
	s.metrics.Sessions.Set(float64(len(s.sessions)))

	return n
}

// meteredFetcher считает загрузки страниц дерева по уровням.
type meteredFetcher struct {
	up tree.Fetcher
	m  *metrics.Metrics
}

func (f meteredFetcher) Children(ctx context.Context, level models.Level, parentID int64, page, size int) (*models.Page, error) {
	res, err := f.up.Children(ctx, level, parentID, page, size)
	f.m.TreeFetches.WithLabelValues(level.String(), metrics.Outcome(err)).Inc()

	return res, err
}
