// Package http wires the dashboard JSON API: analytics endpoints,
// health and prometheus metrics behind the chi middleware stack.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shoppulse/internal/config"
	"shoppulse/internal/middleware"
)

// NewRouter assembles the dashboard API router.
func NewRouter(service AnalyticsService, cfg config.ServerConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(registry)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(metrics.Handler)
	r.Use(chimiddleware.Recoverer)
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	handler := NewAnalyticsHandler(service, logger)
	r.Mount("/api", handler.Routes())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}
