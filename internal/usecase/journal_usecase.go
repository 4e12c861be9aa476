package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/infrastructure/metrics"
)

// JournalUseCase owns the journal entry lifecycle: DRAFT -> POSTED ->
// REVERSED. Every status-mutating operation runs in a single storage
// transaction that also writes the corresponding outbox event rows.
type JournalUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	journalRepo JournalRepository
	outboxRepo  OutboxRepository
	locker      EntryLocker
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
}

// NewJournalUseCase creates a new JournalUseCase.
func NewJournalUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	journalRepo JournalRepository,
	outboxRepo OutboxRepository,
	locker EntryLocker,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *JournalUseCase {
	return &JournalUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		outboxRepo:  outboxRepo,
		locker:      locker,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// WithRetrier configures transient-error retries for transactional operations.
func (uc *JournalUseCase) WithRetrier(r Retrier) *JournalUseCase {
	uc.retrier = r
	return uc
}

// LineInput is one requested journal line.
type LineInput struct {
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// CreateEntryInput is the input for creating a draft entry.
type CreateEntryInput struct {
	Date         time.Time
	Reference    string
	Description  string
	IsAdjustment bool
	Lines        []LineInput
}

// CreateEntry creates a DRAFT entry. Line shape (debit/credit
// exclusivity) is enforced, balance is not: drafts may be edited into
// balance later. The entry number is assigned here and never reused.
func (uc *JournalUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.JournalEntry, error) {
	return uc.createEntry(ctx, input, domain.EventStatusPending)
}

func (uc *JournalUseCase) createEntry(ctx context.Context, input CreateEntryInput, eventStatus domain.EventStatus) (*domain.JournalEntry, error) {
	lines := make([]domain.JournalEntryLine, 0, len(input.Lines))
	for _, li := range input.Lines {
		lines = append(lines, domain.JournalEntryLine{
			AccountID: li.AccountID,
			Debit:     li.Debit,
			Credit:    li.Credit,
		})
	}

	if err := domain.ValidateLineShape(lines); err != nil {
		return nil, err
	}

	if err := uc.checkAccounts(ctx, lines); err != nil {
		return nil, err
	}

	var entry *domain.JournalEntry
	err := uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		now := time.Now().UTC()

		number, err := uc.journalRepo.NextEntryNumber(txCtx, tx)
		if err != nil {
			return err
		}

		date := input.Date
		if date.IsZero() {
			date = now
		}

		entry = &domain.JournalEntry{
			ID:           uc.idGen.Generate(),
			EntryNumber:  number,
			Date:         date,
			Reference:    input.Reference,
			Description:  input.Description,
			Status:       domain.EntryStatusDraft,
			IsAdjustment: input.IsAdjustment,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		for i := range lines {
			lines[i].ID = uc.idGen.Generate()
			lines[i].EntryID = entry.ID
			lines[i].CreatedAt = now
		}
		entry.Lines = lines

		if err := uc.journalRepo.Create(txCtx, tx, entry); err != nil {
			return err
		}

		return uc.enqueueEvent(txCtx, tx, entry, domain.EventActionCreated, eventStatus, now)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesCreated.Inc()
	}

	return entry, nil
}

// PostEntry transitions a DRAFT entry to POSTED. The entry must satisfy
// the double-entry invariant; its lines become immutable afterwards.
func (uc *JournalUseCase) PostEntry(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	return uc.postEntry(ctx, entryID, domain.EventStatusPending)
}

func (uc *JournalUseCase) postEntry(ctx context.Context, entryID string, eventStatus domain.EventStatus) (*domain.JournalEntry, error) {
	release, err := uc.locker.Lock(ctx, entryID)
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *domain.JournalEntry
	err = uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		var err error
		entry, err = uc.journalRepo.GetByIDForUpdate(txCtx, tx, entryID)
		if err != nil {
			return err
		}

		if entry.Status != domain.EntryStatusDraft {
			return domain.ErrNotDraft
		}

		if err := domain.ValidateBalanced(entry.Lines); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := uc.journalRepo.UpdateStatus(txCtx, tx, entry.ID, domain.EntryStatusPosted, now); err != nil {
			return err
		}

		entry.Status = domain.EntryStatusPosted
		entry.UpdatedAt = now

		return uc.enqueueEvent(txCtx, tx, entry, domain.EventActionPosted, eventStatus, now)
	})
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.PostingErrors.WithLabelValues(postingErrorReason(err)).Inc()
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesPosted.Inc()
	}

	return entry, nil
}

func postingErrorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnbalanced):
		return "unbalanced"
	case errors.Is(err, domain.ErrNotDraft):
		return "not_draft"
	case errors.Is(err, domain.ErrEntryNotFound):
		return "not_found"
	default:
		return "other"
	}
}

// ReverseEntry flips a POSTED entry to REVERSED and creates the
// compensating POSTED reversal entry with debit/credit swapped lines,
// all within one transaction. Reversal is not deletion: the original
// entry stays on the books.
func (uc *JournalUseCase) ReverseEntry(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	release, err := uc.locker.Lock(ctx, entryID)
	if err != nil {
		return nil, err
	}
	defer release()

	var reversal *domain.JournalEntry
	err = uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		original, err := uc.journalRepo.GetByIDForUpdate(txCtx, tx, entryID)
		if err != nil {
			return err
		}

		if original.Status != domain.EntryStatusPosted {
			return domain.ErrNotPosted
		}

		now := time.Now().UTC()
		if err := uc.journalRepo.UpdateStatus(txCtx, tx, original.ID, domain.EntryStatusReversed, now); err != nil {
			return err
		}

		original.Status = domain.EntryStatusReversed
		original.UpdatedAt = now

		number, err := uc.journalRepo.NextEntryNumber(txCtx, tx)
		if err != nil {
			return err
		}

		originalID := original.ID
		reversal = &domain.JournalEntry{
			ID:           uc.idGen.Generate(),
			EntryNumber:  number,
			Date:         now,
			Reference:    original.EntryNumber,
			Description:  fmt.Sprintf("reversal of %s", original.EntryNumber),
			Status:       domain.EntryStatusPosted,
			IsAdjustment: original.IsAdjustment,
			ReversalOfID: &originalID,
			Lines:        original.ReversalLines(),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		for i := range reversal.Lines {
			reversal.Lines[i].ID = uc.idGen.Generate()
			reversal.Lines[i].EntryID = reversal.ID
			reversal.Lines[i].CreatedAt = now
		}

		if err := uc.journalRepo.Create(txCtx, tx, reversal); err != nil {
			return err
		}

		if err := uc.enqueueEvent(txCtx, tx, original, domain.EventActionReversed, domain.EventStatusPending, now); err != nil {
			return err
		}

		return uc.enqueueEvent(txCtx, tx, reversal, domain.EventActionPosted, domain.EventStatusPending, now)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesReversed.Inc()
	}

	return reversal, nil
}

// UpdateDraftInput patches a DRAFT entry. Nil fields are left unchanged.
type UpdateDraftInput struct {
	EntryID      string
	Reference    *string
	Description  *string
	Date         *time.Time
	IsAdjustment *bool
	Lines        []LineInput
}

// UpdateDraft updates a DRAFT entry in place. Fails with ErrNotDraft for
// posted or reversed entries.
func (uc *JournalUseCase) UpdateDraft(ctx context.Context, input UpdateDraftInput) (*domain.JournalEntry, error) {
	release, err := uc.locker.Lock(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *domain.JournalEntry
	err = uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		var err error
		entry, err = uc.journalRepo.GetByIDForUpdate(txCtx, tx, input.EntryID)
		if err != nil {
			return err
		}

		if entry.Status != domain.EntryStatusDraft {
			return domain.ErrNotDraft
		}

		now := time.Now().UTC()

		if input.Reference != nil {
			entry.Reference = *input.Reference
		}
		if input.Description != nil {
			entry.Description = *input.Description
		}
		if input.Date != nil {
			entry.Date = *input.Date
		}
		if input.IsAdjustment != nil {
			entry.IsAdjustment = *input.IsAdjustment
		}
		entry.UpdatedAt = now

		if input.Lines != nil {
			lines := make([]domain.JournalEntryLine, 0, len(input.Lines))
			for _, li := range input.Lines {
				lines = append(lines, domain.JournalEntryLine{
					ID:        uc.idGen.Generate(),
					EntryID:   entry.ID,
					AccountID: li.AccountID,
					Debit:     li.Debit,
					Credit:    li.Credit,
					CreatedAt: now,
				})
			}

			if err := domain.ValidateLineShape(lines); err != nil {
				return err
			}

			if err := uc.checkAccounts(txCtx, lines); err != nil {
				return err
			}

			if err := uc.journalRepo.ReplaceLines(txCtx, tx, entry.ID, lines); err != nil {
				return err
			}

			entry.Lines = lines
		}

		return uc.journalRepo.UpdateDraft(txCtx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// DeleteDraft deletes a DRAFT entry. Fails with ErrNotDraft otherwise.
func (uc *JournalUseCase) DeleteDraft(ctx context.Context, entryID string) error {
	release, err := uc.locker.Lock(ctx, entryID)
	if err != nil {
		return err
	}
	defer release()

	return uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		entry, err := uc.journalRepo.GetByIDForUpdate(txCtx, tx, entryID)
		if err != nil {
			return err
		}

		if entry.Status != domain.EntryStatusDraft {
			return domain.ErrNotDraft
		}

		return uc.journalRepo.Delete(txCtx, tx, entryID)
	})
}

// revertToDraft undoes a post as saga compensation. Legal only while the
// orchestrator holds single-writer ownership of the entry for the saga's
// duration, so no downstream consumer can have observed the posted state
// through a released event.
func (uc *JournalUseCase) revertToDraft(ctx context.Context, entryID string) error {
	release, err := uc.locker.Lock(ctx, entryID)
	if err != nil {
		return err
	}
	defer release()

	return uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		entry, err := uc.journalRepo.GetByIDForUpdate(txCtx, tx, entryID)
		if err != nil {
			return err
		}

		if entry.Status != domain.EntryStatusPosted {
			return domain.ErrNotPosted
		}

		return uc.journalRepo.UpdateStatus(txCtx, tx, entryID, domain.EntryStatusDraft, time.Now().UTC())
	})
}

// GetEntry retrieves an entry with its lines.
func (uc *JournalUseCase) GetEntry(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	return uc.journalRepo.GetByID(ctx, entryID)
}

// ListEntries lists entries, newest first.
func (uc *JournalUseCase) ListEntries(ctx context.Context, limit, offset int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	return uc.journalRepo.List(ctx, limit, offset)
}

func (uc *JournalUseCase) checkAccounts(ctx context.Context, lines []domain.JournalEntryLine) error {
	seen := make(map[string]bool)

	var ids []string
	for _, l := range lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}

	accounts, err := uc.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	if len(accounts) != len(ids) {
		return domain.ErrAccountNotFound
	}

	for _, a := range accounts {
		if err := a.ValidateReferenced(); err != nil {
			return fmt.Errorf("account %s: %w", a.Code, err)
		}
	}

	return nil
}

func (uc *JournalUseCase) enqueueEvent(ctx context.Context, tx Transaction, entry *domain.JournalEntry, action string, status domain.EventStatus, now time.Time) error {
	return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:         uc.idGen.Generate(),
		EntityType: domain.EntityTypeJournalEntry,
		EntityID:   entry.ID,
		Action:     action,
		Payload:    domain.EntryEventPayload(entry),
		Status:     status,
		CreatedAt:  now,
	})
}

// inTx runs fn inside a bounded transaction, retrying transient storage
// errors when a retrier is configured.
func (uc *JournalUseCase) inTx(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	run := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	if uc.retrier != nil {
		return uc.retrier.Retry(ctx, run)
	}

	return run()
}
