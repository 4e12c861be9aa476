package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finbooks/journal/internal/adapter/http/dto"
	"github.com/finbooks/journal/internal/usecase"
)

// SagaHandler exposes saga execution records for inspection. Executions
// in compensation_failed surface here for manual resolution.
type SagaHandler struct {
	sagaRepo usecase.SagaRepository
}

// NewSagaHandler creates a new SagaHandler.
func NewSagaHandler(sagaRepo usecase.SagaRepository) *SagaHandler {
	return &SagaHandler{sagaRepo: sagaRepo}
}

// Get retrieves a saga execution by ID.
func (h *SagaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing saga ID", "")
		return
	}

	execution, err := h.sagaRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get saga", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SagaFromDomain(execution))
}

// List lists saga executions, newest first.
func (h *SagaHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	executions, err := h.sagaRepo.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sagas", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SagasFromDomain(executions))
}
