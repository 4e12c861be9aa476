package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finbooks/journal/internal/adapter/http/dto"
	"github.com/finbooks/journal/internal/usecase"
)

// AccountHandler exposes read-only access to the chart of accounts.
type AccountHandler struct {
	accountRepo usecase.AccountRepository
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountRepo usecase.AccountRepository) *AccountHandler {
	return &AccountHandler{accountRepo: accountRepo}
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts ordered by code.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accountRepo.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}
