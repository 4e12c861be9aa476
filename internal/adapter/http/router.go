package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/finbooks/journal/internal/adapter/http/handler"
	"github.com/finbooks/journal/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	JournalHandler *handler.JournalHandler
	AccountHandler *handler.AccountHandler
	SagaHandler    *handler.SagaHandler
	OutboxHandler  *handler.OutboxHandler
	HealthHandler  *handler.HealthHandler
	Logger         zerolog.Logger
	RateLimit      float64
	RateBurst      int
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)

	if cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Journal entries
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.JournalHandler.Create)
			r.Post("/posted", cfg.JournalHandler.CreateAndPost)
			r.Post("/batch", cfg.JournalHandler.ApplyBatch)
			r.Get("/", cfg.JournalHandler.List)
			r.Get("/{id}", cfg.JournalHandler.Get)
			r.Put("/{id}", cfg.JournalHandler.Update)
			r.Delete("/{id}", cfg.JournalHandler.Delete)
			r.Post("/{id}/post", cfg.JournalHandler.Post)
			r.Post("/{id}/reverse", cfg.JournalHandler.Reverse)
			r.Get("/{id}/events", cfg.JournalHandler.ListEvents)
		})

		// Chart of accounts (read-only)
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
		})

		// Saga executions
		r.Route("/sagas", func(r chi.Router) {
			r.Get("/", cfg.SagaHandler.List)
			r.Get("/{id}", cfg.SagaHandler.Get)
		})

		// Outbox dead letters
		r.Route("/outbox", func(r chi.Router) {
			r.Get("/dead-letters", cfg.OutboxHandler.ListDeadLetters)
			r.Post("/dead-letters/{id}/requeue", cfg.OutboxHandler.Requeue)
		})
	})

	return r
}
