package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// LineResponse represents a journal line in API responses.
type LineResponse struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// EntryResponse represents a journal entry in API responses.
type EntryResponse struct {
	ID           string         `json:"id"`
	EntryNumber  string         `json:"entry_number"`
	Date         time.Time      `json:"date"`
	Reference    string         `json:"reference,omitempty"`
	Description  string         `json:"description,omitempty"`
	Status       string         `json:"status"`
	IsAdjustment bool           `json:"is_adjustment"`
	ReversalOfID *string        `json:"reversal_of_id,omitempty"`
	Lines        []LineResponse `json:"lines"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.JournalEntry) *EntryResponse {
	lines := make([]LineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = LineResponse{
			ID:        l.ID,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
		}
	}

	return &EntryResponse{
		ID:           e.ID,
		EntryNumber:  e.EntryNumber,
		Date:         e.Date,
		Reference:    e.Reference,
		Description:  e.Description,
		Status:       string(e.Status),
		IsAdjustment: e.IsAdjustment,
		ReversalOfID: e.ReversalOfID,
		Lines:        lines,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.JournalEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// AccountResponse represents a chart-of-accounts entry in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// EventResponse represents an outbox event in API responses.
type EventResponse struct {
	ID           string         `json:"id"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Action       string         `json:"action"`
	Payload      map[string]any `json:"payload,omitempty"`
	Status       string         `json:"status"`
	Attempts     int            `json:"attempts"`
	LastError    string         `json:"last_error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	DispatchedAt *time.Time     `json:"dispatched_at,omitempty"`
}

// EventFromDomain converts a domain outbox event to a response.
func EventFromDomain(e *domain.OutboxEvent) *EventResponse {
	return &EventResponse{
		ID:           e.ID,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Action:       e.Action,
		Payload:      e.Payload,
		Status:       string(e.Status),
		Attempts:     e.Attempts,
		LastError:    e.LastError,
		CreatedAt:    e.CreatedAt,
		DispatchedAt: e.DispatchedAt,
	}
}

// EventsFromDomain converts domain outbox events to responses.
func EventsFromDomain(events []*domain.OutboxEvent) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = EventFromDomain(e)
	}
	return result
}

// SagaStepResponse represents one step of a saga execution.
type SagaStepResponse struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SagaResponse represents a saga execution in API responses.
type SagaResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Status     string             `json:"status"`
	Steps      []SagaStepResponse `json:"steps"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

// SagaFromDomain converts a domain saga execution to a response.
func SagaFromDomain(s *domain.SagaExecution) *SagaResponse {
	steps := make([]SagaStepResponse, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = SagaStepResponse{
			Name:       step.Name,
			Status:     string(step.Status),
			Error:      step.Error,
			FinishedAt: step.FinishedAt,
		}
	}

	return &SagaResponse{
		ID:         s.ID,
		Type:       string(s.Type),
		Status:     string(s.Status),
		Steps:      steps,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		FinishedAt: s.FinishedAt,
	}
}

// SagasFromDomain converts domain saga executions to responses.
func SagasFromDomain(executions []*domain.SagaExecution) []*SagaResponse {
	result := make([]*SagaResponse, len(executions))
	for i, s := range executions {
		result[i] = SagaFromDomain(s)
	}
	return result
}

// BatchResponse represents the outcome of a batch application.
type BatchResponse struct {
	BatchID     string   `json:"batch_id"`
	Status      string   `json:"status"`
	Applied     []string `json:"applied"`
	FailedIndex int      `json:"failed_index"`
	Cause       string   `json:"cause,omitempty"`
}

// BatchFromResult converts a use case batch result to a response.
func BatchFromResult(r *usecase.BatchResult) *BatchResponse {
	return &BatchResponse{
		BatchID:     r.BatchID,
		Status:      string(r.Status),
		Applied:     r.Applied,
		FailedIndex: r.FailedIndex,
		Cause:       r.Cause,
	}
}
