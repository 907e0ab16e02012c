package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fernledger/fern/internal/auth"
)

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(h *Handler, verifier *auth.Manager, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(RecoveryMiddleware(logger))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(verifier))

			r.Post("/sync/push", h.Push)
			r.Post("/sync/pull", h.Pull)
			r.Get("/sync/status", h.Status)
			r.Post("/suggest/category", h.SuggestCategory)
		})
	})

	return r
}
