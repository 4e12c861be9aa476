package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finbooks/journal/internal/adapter/http/dto"
	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
)

// JournalHandler handles journal entry HTTP requests.
type JournalHandler struct {
	journalUC *usecase.JournalUseCase
	postingUC *usecase.PostingUseCase
	batchUC   *usecase.BatchUseCase
	outboxUC  usecase.OutboxRepository
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(journalUC *usecase.JournalUseCase, postingUC *usecase.PostingUseCase, batchUC *usecase.BatchUseCase, outboxRepo usecase.OutboxRepository) *JournalHandler {
	return &JournalHandler{
		journalUC: journalUC,
		postingUC: postingUC,
		batchUC:   batchUC,
		outboxUC:  outboxRepo,
	}
}

// Create creates a new draft entry.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.journalUC.CreateEntry(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create entry", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// CreateAndPost creates and posts an entry in one saga-coordinated call.
func (h *JournalHandler) CreateAndPost(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.postingUC.CreateAndPostEntry(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create and post entry", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// ApplyBatch applies a batch of entries all-or-nothing.
func (h *JournalHandler) ApplyBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplyBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.batchUC.ApplyBatch(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to apply batch", err.Error())
		return
	}

	status := http.StatusCreated
	if result.Status != usecase.BatchStatusApplied {
		// The request was processed but the batch did not apply; the body
		// carries the failed index and cause.
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, dto.BatchFromResult(result))
}

// Get retrieves an entry by ID.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	entry, err := h.journalUC.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// List lists entries, newest first.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.journalUC.ListEntries(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Update updates a draft entry.
func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.journalUC.UpdateDraft(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to update entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Delete deletes a draft entry.
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	if err := h.journalUC.DeleteDraft(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to delete entry", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Post transitions a draft entry to posted.
func (h *JournalHandler) Post(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	entry, err := h.journalUC.PostEntry(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to post entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Reverse reverses a posted entry and returns the reversal entry.
func (h *JournalHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	reversal, err := h.postingUC.ReverseEntry(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reverse entry", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(reversal))
}

// ListEvents lists the outbox events recorded for an entry.
func (h *JournalHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	events, err := h.outboxUC.GetByEntity(r.Context(), domain.EntityTypeJournalEntry, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}
