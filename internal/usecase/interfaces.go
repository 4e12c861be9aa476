package usecase

import (
	"context"
	"time"

	"github.com/finbooks/journal/internal/domain"
)

// AccountRepository defines read-only access to the chart of accounts.
// The posting core references accounts but never mutates them.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// JournalRepository defines data access for journal entries and lines.
type JournalRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, id string) (*domain.JournalEntry, error)
	// GetByIDForUpdate locks the entry row for the duration of the transaction.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.JournalEntry, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.EntryStatus, updatedAt time.Time) error
	UpdateDraft(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	ReplaceLines(ctx context.Context, tx Transaction, entryID string, lines []domain.JournalEntryLine) error
	Delete(ctx context.Context, tx Transaction, id string) error
	NextEntryNumber(ctx context.Context, tx Transaction) (string, error)
	List(ctx context.Context, limit, offset int) ([]*domain.JournalEntry, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	// Drain returns events eligible for dispatch (pending or failed below
	// the retry budget), oldest first.
	Drain(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string, dispatchedAt time.Time) error
	// MarkFailed increments the attempt count; events at or above
	// maxAttempts move to dead_letter instead.
	MarkFailed(ctx context.Context, id string, reason string, maxAttempts int) error
	MarkDropped(ctx context.Context, id string, reason string) error
	// Release flips staged events to pending so the dispatcher picks them up.
	Release(ctx context.Context, ids []string) error
	GetByEntity(ctx context.Context, entityType, entityID string) ([]*domain.OutboxEvent, error)
	ListDeadLetters(ctx context.Context, limit, offset int) ([]*domain.OutboxEvent, error)
	// Requeue resets a dead-lettered event to pending with zero attempts.
	Requeue(ctx context.Context, id string) error
	DeleteDispatched(ctx context.Context, before time.Time) error
}

// SagaRepository defines data access for saga execution records.
type SagaRepository interface {
	Create(ctx context.Context, execution *domain.SagaExecution) error
	Update(ctx context.Context, execution *domain.SagaExecution) error
	GetByID(ctx context.Context, id string) (*domain.SagaExecution, error)
	List(ctx context.Context, limit, offset int) ([]*domain.SagaExecution, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// EntryLocker serializes state transitions per entry id. Lock blocks
// until the lock is acquired or ctx/wait expires; the returned release
// function is safe to call once.
type EntryLocker interface {
	Lock(ctx context.Context, entryID string) (release func(), err error)
}

// Retrier retries an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}
