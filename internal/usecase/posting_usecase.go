package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/finbooks/journal/internal/domain"
)

// Saga step names for the entry-creation workflow.
const (
	stepCreateDraft     = "create draft"
	stepValidateAndPost = "validate and post"
	stepPublish         = "publish"
)

// PostingUseCase exposes the createAndPostEntry operation as a saga:
// create draft -> validate and post -> publish. Outbox events written by
// the first two steps stay staged until the publish step releases them,
// so a compensated saga never leaks a posted event downstream.
type PostingUseCase struct {
	journal      *JournalUseCase
	outboxRepo   OutboxRepository
	orchestrator *SagaOrchestrator
	idGen        IDGenerator
}

// NewPostingUseCase creates a new PostingUseCase.
func NewPostingUseCase(journal *JournalUseCase, outboxRepo OutboxRepository, orchestrator *SagaOrchestrator, idGen IDGenerator) *PostingUseCase {
	return &PostingUseCase{
		journal:      journal,
		outboxRepo:   outboxRepo,
		orchestrator: orchestrator,
		idGen:        idGen,
	}
}

// CreateAndPostEntry creates and posts an entry atomically at the
// business level. On any step failure the completed steps are
// compensated and the cause is returned to the caller.
func (uc *PostingUseCase) CreateAndPostEntry(ctx context.Context, input CreateEntryInput) (*domain.JournalEntry, error) {
	entry, result, err := uc.runCreationSaga(ctx, uc.idGen.Generate(), input)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case SagaCompleted:
		return entry, nil
	case SagaCompensationFailed:
		return nil, fmt.Errorf("%w: saga %s froze at step %q: %v",
			domain.ErrSagaCompensationFailed, result.Execution.ID, result.CompensationStep, result.CompensationErr)
	default:
		return nil, result.Cause
	}
}

// runCreationSaga executes the creation saga under the given saga id.
// Re-running with the same id resumes instead of duplicating work.
func (uc *PostingUseCase) runCreationSaga(ctx context.Context, sagaID string, input CreateEntryInput) (*domain.JournalEntry, *SagaResult, error) {
	var entry *domain.JournalEntry

	steps := []SagaStep{
		{
			Name: stepCreateDraft,
			Forward: func(ctx context.Context) error {
				created, err := uc.journal.createEntry(ctx, input, domain.EventStatusStaged)
				if err != nil {
					return err
				}
				entry = created
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if entry == nil {
					return nil
				}
				err := uc.journal.DeleteDraft(ctx, entry.ID)
				if errors.Is(err, domain.ErrEntryNotFound) {
					return nil
				}
				return err
			},
		},
		{
			Name: stepValidateAndPost,
			Forward: func(ctx context.Context) error {
				posted, err := uc.journal.postEntry(ctx, entry.ID, domain.EventStatusStaged)
				if err != nil {
					return err
				}
				entry = posted
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return uc.journal.revertToDraft(ctx, entry.ID)
			},
		},
		{
			Name: stepPublish,
			Forward: func(ctx context.Context) error {
				return uc.releaseStagedEvents(ctx, entry.ID)
			},
			// No compensation: dispatch is decoupled, and the dispatcher
			// drops any staged event whose entry is no longer in the
			// state the event describes.
		},
	}

	result, err := uc.orchestrator.Run(ctx, sagaID, domain.SagaTypeEntryCreation, steps)
	if err != nil {
		return nil, nil, err
	}

	return entry, result, nil
}

func (uc *PostingUseCase) releaseStagedEvents(ctx context.Context, entryID string) error {
	events, err := uc.outboxRepo.GetByEntity(ctx, domain.EntityTypeJournalEntry, entryID)
	if err != nil {
		return err
	}

	var staged []string
	for _, e := range events {
		if e.Status == domain.EventStatusStaged {
			staged = append(staged, e.ID)
		}
	}

	if len(staged) == 0 {
		return nil
	}

	return uc.outboxRepo.Release(ctx, staged)
}

// ReverseEntry reverses a posted entry. Reversal is a single atomic
// transition in the state machine and needs no multi-step saga; its
// events are enqueued pending inside the same transaction.
func (uc *PostingUseCase) ReverseEntry(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	return uc.journal.ReverseEntry(ctx, entryID)
}
