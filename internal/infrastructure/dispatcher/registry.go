package dispatcher

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/finbooks/journal/internal/domain"
)

// Handler consumes a dispatched event envelope.
type Handler func(ctx context.Context, envelope domain.EventEnvelope) error

// Registry maps event actions to in-process subscribers. Handlers for
// the same action must be independent: invocation order is unspecified
// and a failing handler does not affect the others or the dispatch.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewRegistry creates a new Registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event action ("created",
// "posted", "reversed").
func (r *Registry) Subscribe(action string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[action] = append(r.handlers[action], handler)
}

// Notify invokes all handlers subscribed to the envelope's action,
// synchronously. Handler errors are logged and swallowed; delivery to
// subscribers is at-least-once and they de-duplicate by entity id and
// action.
func (r *Registry) Notify(ctx context.Context, envelope domain.EventEnvelope) {
	r.mu.RLock()
	handlers := r.handlers[envelope.Action]
	r.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, envelope); err != nil {
			r.logger.Error().
				Err(err).
				Str("action", envelope.Action).
				Str("entity_id", envelope.EntityID).
				Msg("event handler failed")
		}
	}
}
