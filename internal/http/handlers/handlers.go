package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/service"
	"github.com/pribylovaa/locations-gateway/internal/tree"
)

// Locations — операции сервиса, которые нужны хендлерам.
type Locations interface {
	RootView(ctx context.Context) tree.View
	RefreshRoot(ctx context.Context) (tree.View, error)
	LoadMoreRoot(ctx context.Context) (tree.View, error)

	Node(ctx context.Context, level models.Level, id int64) (tree.View, error)
	Toggle(ctx context.Context, level models.Level, id int64) (tree.View, error)
	Expand(ctx context.Context, level models.Level, id int64) (tree.View, error)
	Collapse(ctx context.Context, level models.Level, id int64) (tree.View, error)
	LoadMore(ctx context.Context, level models.Level, id int64) (tree.View, error)
	Refresh(ctx context.Context, level models.Level, id int64) (tree.View, error)

	Search(ctx context.Context, query string) (models.SearchResult, error)
	Journal(ctx context.Context, limit int) ([]models.JournalEntry, error)

	Add(ctx context.Context, in service.AddInput) (models.Location, error)
	Edit(ctx context.Context, level models.Level, id int64, name string) (models.Location, error)
	Delete(ctx context.Context, level models.Level, id int64) error
	BulkImport(ctx context.Context, in service.BulkImportInput) (models.BulkResult, error)
}

// Handlers агрегирует зависимости REST-слоя.
type Handlers struct {
	Locations Locations
}

func New(l Locations) *Handlers {
	return &Handlers{Locations: l}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// levelParam разбирает {level} из пути.
func levelParam(r *http.Request) (models.Level, bool) {
	l, err := models.ParseLevel(chi.URLParam(r, "level"))
	return l, err == nil
}

// nodeParams разбирает {level} и {id} из пути.
func nodeParams(r *http.Request) (models.Level, int64, bool) {
	l, ok := levelParam(r)
	if !ok {
		return 0, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, false
	}

	return l, id, true
}
