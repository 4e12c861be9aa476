package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterhttp "github.com/finbooks/journal/internal/adapter/http"
	"github.com/finbooks/journal/internal/adapter/http/handler"
	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
	"github.com/finbooks/journal/internal/usecase/mocks"
)

type apiFixture struct {
	router  http.Handler
	journal *usecase.JournalUseCase
	outbox  *mocks.MockOutboxRepository
}

func newAPIFixture() *apiFixture {
	accounts := mocks.NewMockAccountRepository()
	accounts.Seed(
		&domain.Account{ID: "acc-cash", Code: "1000", Name: "Cash", Type: domain.AccountTypeAsset, Active: true},
		&domain.Account{ID: "acc-revenue", Code: "4000", Name: "Sales Revenue", Type: domain.AccountTypeRevenue, Active: true},
	)

	journalRepo := mocks.NewMockJournalRepository()
	outbox := mocks.NewMockOutboxRepository()
	sagaRepo := mocks.NewMockSagaRepository()
	idGen := mocks.NewMockIDGenerator()

	journal := usecase.NewJournalUseCase(
		mocks.NewMockTransactionManager(),
		accounts,
		journalRepo,
		outbox,
		mocks.NewMockEntryLocker(),
		idGen,
		nil,
	)

	orch := usecase.NewSagaOrchestrator(sagaRepo, zerolog.Nop(), nil)
	posting := usecase.NewPostingUseCase(journal, outbox, orch, idGen)
	batch := usecase.NewBatchUseCase(posting, journal, orch, idGen, zerolog.Nop(), nil)

	router := adapterhttp.NewRouter(adapterhttp.RouterConfig{
		JournalHandler: handler.NewJournalHandler(journal, posting, batch, outbox),
		AccountHandler: handler.NewAccountHandler(accounts),
		SagaHandler:    handler.NewSagaHandler(sagaRepo),
		OutboxHandler:  handler.NewOutboxHandler(outbox),
		HealthHandler:  handler.NewHealthHandler(nil, nil),
		Logger:         zerolog.Nop(),
	})

	return &apiFixture{router: router, journal: journal, outbox: outbox}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func entryBody(debit, credit string) map[string]any {
	return map[string]any{
		"description": "test entry",
		"lines": []map[string]any{
			{"account_id": "acc-cash", "debit": debit},
			{"account_id": "acc-revenue", "credit": credit},
		},
	}
}

func TestRouter_CreateDraftEntry(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodPost, "/api/v1/entries", entryBody("100", "60"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "draft", resp["status"])
	assert.Equal(t, "JE-000001", resp["entry_number"])
}

func TestRouter_CreateAndPostEntry(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodPost, "/api/v1/entries/posted", entryBody("100", "100"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "posted", resp["status"])
}

func TestRouter_CreateAndPostUnbalancedEntry(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodPost, "/api/v1/entries/posted", entryBody("100", "60"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRouter_PostAndReverseEntry(t *testing.T) {
	f := newAPIFixture()

	entry, err := f.journal.CreateEntry(context.Background(), usecase.CreateEntryInput{
		Lines: []usecase.LineInput{
			{AccountID: "acc-cash", Debit: mustDecimal(t, "100")},
			{AccountID: "acc-revenue", Credit: mustDecimal(t, "100")},
		},
	})
	require.NoError(t, err)

	rr := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/post", entry.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// Posting twice conflicts with the entry's state.
	rr = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/post", entry.ID), nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/reverse", entry.ID), nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "posted", resp["status"])
	assert.Equal(t, entry.ID, resp["reversal_of_id"])
}

func TestRouter_GetMissingEntry(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodGet, "/api/v1/entries/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_ApplyBatchReportsFailedIndex(t *testing.T) {
	f := newAPIFixture()

	body := map[string]any{
		"entries": []map[string]any{
			entryBody("100", "100"),
			entryBody("200", "200"),
			entryBody("300", "299"),
		},
	}

	rr := f.do(t, http.MethodPost, "/api/v1/entries/batch", body)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp["status"])
	assert.Equal(t, float64(2), resp["failed_index"])
	assert.Len(t, resp["applied"], 2)
}

func TestRouter_ListEntryEvents(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodPost, "/api/v1/entries/posted", entryBody("100", "100"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entry))

	rr = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/entries/%s/events", entry["id"]), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var events []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "created", events[0]["action"])
	assert.Equal(t, "posted", events[1]["action"])
}

func TestRouter_SagaExecutionsAreVisible(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodPost, "/api/v1/entries/posted", entryBody("100", "100"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/v1/sagas", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var sagas []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sagas))
	require.Len(t, sagas, 1)
	assert.Equal(t, "entry-creation", sagas[0]["type"])
	assert.Equal(t, "completed", sagas[0]["status"])
}

func TestRouter_RequeueUnknownDeadLetter(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodPost, "/api/v1/outbox/dead-letters/evt-1/requeue", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_ListAccounts(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodGet, "/api/v1/accounts", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var accounts []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 2)
}

func TestRouter_Health(t *testing.T) {
	f := newAPIFixture()

	rr := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
