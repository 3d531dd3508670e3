// service содержит бизнес-логику locations-gateway:
// - деревья локаций по сессиям администраторов (ленивая загрузка, постраничность);
// - делегирование add/edit/delete/bulk import в marketplace API с обновлением родителя;
// - поиск по всем уровням иерархии;
// - журнал операций и архив файлов импорта.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pribylovaa/locations-gateway/internal/config"
	"github.com/pribylovaa/locations-gateway/internal/metrics"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/storage"
	"github.com/pribylovaa/locations-gateway/internal/tree"
	"github.com/pribylovaa/locations-gateway/internal/upstream"
)

var (
	// ErrInvalidArgument — некорректные входные данные.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — узел не найден (в апстриме или среди загруженных в сессии).
	ErrNotFound = errors.New("not found")
	// ErrConflict — конфликт в апстриме или по узлу уже идёт загрузка.
	ErrConflict = errors.New("conflict")
	// ErrPrecondition — операция невозможна в текущем состоянии узла.
	ErrPrecondition = errors.New("failed precondition")
	// ErrUnauthenticated — апстрим отверг токен.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPermissionDenied — у администратора нет прав на операцию.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable — апстрим недоступен.
	ErrUnavailable = errors.New("unavailable")
	// ErrInternal — внутренняя ошибка сервиса.
	ErrInternal = errors.New("internal")
)

// Upstream — marketplace API.
type Upstream interface {
	tree.Fetcher
	Search(ctx context.Context, level models.Level, query string, page, size int) ([]models.Location, error)
	Create(ctx context.Context, level models.Level, parentID int64, name, flag string) (models.Location, error)
	Rename(ctx context.Context, level models.Level, id int64, name string) (models.Location, error)
	Delete(ctx context.Context, level models.Level, id int64) error
	BulkCreate(ctx context.Context, level models.Level, parentID int64, filename string, data []byte) (models.BulkResult, error)
}

// Service — описывает бизнес-логику locations-gateway.
type Service struct {
	cfg      config.Config
	upstream Upstream
	journal  storage.Journal
	archive  storage.ImportArchive
	metrics  *metrics.Metrics
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// New создает новый экземпляр Service.
// nil journal/archive/metrics заменяются заглушками.
func New(up Upstream, journal storage.Journal, archive storage.ImportArchive, cfg config.Config, m *metrics.Metrics) *Service {
	if journal == nil {
		journal = storage.NopJournal{}
	}
	if archive == nil {
		archive = storage.NopArchive{}
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if cfg.Tree.PageSize <= 0 {
		cfg.Tree.PageSize = tree.DefaultPageSize
	}

	return &Service{
		cfg:      cfg,
		upstream: up,
		journal:  journal,
		archive:  archive,
		metrics:  m,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// mapUpstream переводит ошибку апстрима в ошибку сервисного слоя.
// Контекстные ошибки сохраняются, чтобы HTTP-слой отдал 499/504.
func mapUpstream(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, upstream.ErrInvalidArgument):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidArgument, err)
	case errors.Is(err, upstream.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, upstream.ErrConflict):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	case errors.Is(err, upstream.ErrUnauthenticated):
		return fmt.Errorf("%s: %w: %w", op, ErrUnauthenticated, err)
	case errors.Is(err, upstream.ErrForbidden):
		return fmt.Errorf("%s: %w: %w", op, ErrPermissionDenied, err)
	case errors.Is(err, upstream.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}
}

// mapTree переводит ошибки узла дерева.
func mapTree(op string, err error) error {
	switch {
	case errors.Is(err, tree.ErrBusy):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	case errors.Is(err, tree.ErrNotLoaded), errors.Is(err, tree.ErrExhausted):
		return fmt.Errorf("%s: %w: %w", op, ErrPrecondition, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}
}
