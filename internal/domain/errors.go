package domain

import "errors"

var (
	// Journal entry validation errors
	ErrUnbalanced  = errors.New("entry debits and credits are not balanced")
	ErrNoLines     = errors.New("entry has no lines")
	ErrInvalidLine = errors.New("line must have exactly one of debit or credit set")

	// Journal entry state errors
	ErrEntryNotFound = errors.New("journal entry not found")
	ErrNotDraft      = errors.New("journal entry is not in draft status")
	ErrNotPosted     = errors.New("journal entry is not in posted status")

	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is inactive")

	// Saga errors
	ErrSagaNotFound           = errors.New("saga execution not found")
	ErrSagaCompensationFailed = errors.New("saga compensation failed")

	// Outbox errors
	ErrEventNotFound = errors.New("outbox event not found")
)
