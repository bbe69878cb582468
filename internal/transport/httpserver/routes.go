package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"learning-app-go/internal/config"
	"learning-app-go/internal/transport/httpserver/handler"
	"learning-app-go/internal/transport/httpserver/middleware"
)

// NewRouter builds the stub lesson service. reg may be nil to disable
// /metrics.
func NewRouter(cfg config.Config, handlers *handler.Handlers, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.NewCORS(cfg.Stub.AllowedOrigins))

	if reg != nil {
		r.Use(middleware.NewHTTPMetrics(reg).Middleware)
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	r.Get("/health", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewLatency(cfg.Stub.Latency))

		r.Get("/lessons", handlers.ListLessons)
		r.Post("/lessons/{id}/progress", handlers.UpdateProgress)
		r.Get("/notes", handlers.ListNotes)
		r.Post("/notes", handlers.CreateNote)

		r.NotFound(handlers.Fallback)
		r.MethodNotAllowed(handlers.Fallback)
	})

	return r
}
