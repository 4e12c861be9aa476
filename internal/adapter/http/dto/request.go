package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbooks/journal/internal/usecase"
)

// LineItem represents one journal line in a request.
type LineItem struct {
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// CreateEntryRequest represents a request to create a journal entry.
type CreateEntryRequest struct {
	Date         *time.Time `json:"date,omitempty"`
	Reference    string     `json:"reference,omitempty"`
	Description  string     `json:"description,omitempty"`
	IsAdjustment bool       `json:"is_adjustment,omitempty"`
	Lines        []LineItem `json:"lines"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput() usecase.CreateEntryInput {
	input := usecase.CreateEntryInput{
		Reference:    r.Reference,
		Description:  r.Description,
		IsAdjustment: r.IsAdjustment,
		Lines:        toLineInputs(r.Lines),
	}
	if r.Date != nil {
		input.Date = *r.Date
	}
	return input
}

// UpdateEntryRequest represents a request to update a draft entry. Nil
// fields are left unchanged; a non-nil Lines replaces all lines.
type UpdateEntryRequest struct {
	Date         *time.Time `json:"date,omitempty"`
	Reference    *string    `json:"reference,omitempty"`
	Description  *string    `json:"description,omitempty"`
	IsAdjustment *bool      `json:"is_adjustment,omitempty"`
	Lines        []LineItem `json:"lines,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEntryRequest) ToUseCaseInput(entryID string) usecase.UpdateDraftInput {
	input := usecase.UpdateDraftInput{
		EntryID:      entryID,
		Date:         r.Date,
		Reference:    r.Reference,
		Description:  r.Description,
		IsAdjustment: r.IsAdjustment,
	}
	if r.Lines != nil {
		input.Lines = toLineInputs(r.Lines)
	}
	return input
}

// ApplyBatchRequest represents a request to apply a batch of entries.
type ApplyBatchRequest struct {
	Entries []CreateEntryRequest `json:"entries"`
}

// ToUseCaseInput converts to use case input.
func (r *ApplyBatchRequest) ToUseCaseInput() usecase.ApplyBatchInput {
	entries := make([]usecase.CreateEntryInput, len(r.Entries))
	for i := range r.Entries {
		entries[i] = r.Entries[i].ToUseCaseInput()
	}
	return usecase.ApplyBatchInput{Entries: entries}
}

func toLineInputs(items []LineItem) []usecase.LineInput {
	lines := make([]usecase.LineInput, len(items))
	for i, item := range items {
		lines[i] = usecase.LineInput{
			AccountID: item.AccountID,
			Debit:     item.Debit,
			Credit:    item.Credit,
		}
	}
	return lines
}
