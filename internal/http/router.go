package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/locations-gateway/internal/http/handlers"
	"github.com/pribylovaa/locations-gateway/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(l handlers.Locations, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),  // до логирования: id попадает в логгер
		middleware.AuthBearer(), // до логирования: actor попадает в запись "http"
		middleware.Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(l)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Route("/locations", func(r chi.Router) {
		// корень: список стран
		r.Get("/tree", h.GetTree)
		r.Post("/tree/refresh", h.RefreshTree)
		r.Post("/tree/more", h.LoadMoreTree)

		r.Get("/search", h.Search)
		r.Get("/journal", h.Journal)

		// узлы
		r.Get("/{level}/{id}", h.GetNode)
		r.Post("/{level}/{id}/toggle", h.ToggleNode)
		r.Post("/{level}/{id}/expand", h.ExpandNode)
		r.Post("/{level}/{id}/collapse", h.CollapseNode)
		r.Post("/{level}/{id}/more", h.LoadMoreNode)
		r.Post("/{level}/{id}/refresh", h.RefreshNode)

		// мутации
		r.Post("/{level}", h.CreateLocation)
		r.Post("/{level}/bulk", h.BulkImport)
		r.Put("/{level}/{id}", h.RenameLocation)
		r.Delete("/{level}/{id}", h.DeleteLocation)
	})
}
