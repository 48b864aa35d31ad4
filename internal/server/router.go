package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cairoware/tourbase/internal/api"
	"github.com/cairoware/tourbase/internal/api/handlers"
	"github.com/cairoware/tourbase/internal/api/middleware"
	"github.com/cairoware/tourbase/internal/metrics"
)

type RouterConfig struct {
	APIKeys       []string
	SearchHandler *handlers.SearchHandler
	RecordHandler *handlers.RecordHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(metrics.Middleware())
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))

		r.Route("/search", func(r chi.Router) {
			r.Post("/", cfg.SearchHandler.Hybrid)
			r.Post("/vector", cfg.SearchHandler.Vector)
			r.Post("/text", cfg.SearchHandler.Text)
			r.Get("/geo", cfg.SearchHandler.Geo)
		})

		r.Get("/tables", cfg.RecordHandler.Tables)

		r.Route("/records/{table}", func(r chi.Router) {
			r.Get("/", cfg.RecordHandler.List)
			r.Get("/{id}", cfg.RecordHandler.Get)
			r.Get("/{id}/media", cfg.RecordHandler.Media)
		})
	})

	return r
}
