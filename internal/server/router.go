package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/migration-warden/internal/config"
	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/server/handler"
	"github.com/sevigo/migration-warden/internal/storage"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
// The runs endpoints are only mounted when store is non-nil.
func NewRouter(cfg *config.Config, dispatcher core.JobDispatcher, store storage.Store, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		webhookHandler := handler.NewWebhookHandler(cfg, dispatcher, logger)
		r.Post("/webhook/github", webhookHandler.Handle)

		if store != nil {
			runs := handler.NewRunsHandler(store, logger)
			r.Get("/runs", runs.List)
			r.Get("/runs/{owner}/{repo}/{number}", runs.Latest)
		}
	})

	return r
}
