package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finbooks/journal/internal/adapter/http/dto"
	"github.com/finbooks/journal/internal/usecase"
)

// OutboxHandler exposes the outbox dead-letter queue.
type OutboxHandler struct {
	outboxRepo usecase.OutboxRepository
}

// NewOutboxHandler creates a new OutboxHandler.
func NewOutboxHandler(outboxRepo usecase.OutboxRepository) *OutboxHandler {
	return &OutboxHandler{outboxRepo: outboxRepo}
}

// ListDeadLetters lists events that exhausted their retry budget.
func (h *OutboxHandler) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	events, err := h.outboxRepo.ListDeadLetters(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list dead letters", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}

// Requeue puts a dead-lettered event back into the dispatch path with a
// fresh retry budget.
func (h *OutboxHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing event ID", "")
		return
	}

	if err := h.outboxRepo.Requeue(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to requeue event", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "requeued"})
}
