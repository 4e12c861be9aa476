package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/infrastructure/metrics"
)

// BatchStatus is the outcome of a batch application.
type BatchStatus string

const (
	BatchStatusApplied            BatchStatus = "applied"
	BatchStatusFailed             BatchStatus = "failed"
	BatchStatusCompensationFailed BatchStatus = "compensation_failed"
)

// BatchResult reports the outcome of ApplyBatch. On failure, Applied
// lists the entries that were posted and subsequently reversed; they are
// never silently erased.
type BatchResult struct {
	BatchID     string
	Status      BatchStatus
	Applied     []string
	FailedIndex int
	Cause       string
}

// ApplyBatchInput is an ordered list of entry creation requests applied
// as one business-level unit.
type ApplyBatchInput struct {
	Entries []CreateEntryInput
}

// BatchUseCase applies a set of journal entries all-or-nothing at the
// business level by composing entry-creation sagas into an outer saga.
// Batch-level compensation is reversal, not deletion: downstream
// consumers may already have observed posted events for earlier entries,
// and a reversal emits its own compensating event.
type BatchUseCase struct {
	posting *PostingUseCase
	journal *JournalUseCase
	orch    *SagaOrchestrator
	idGen   IDGenerator
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewBatchUseCase creates a new BatchUseCase.
func NewBatchUseCase(posting *PostingUseCase, journal *JournalUseCase, orch *SagaOrchestrator, idGen IDGenerator, logger zerolog.Logger, metrics *metrics.Metrics) *BatchUseCase {
	return &BatchUseCase{
		posting: posting,
		journal: journal,
		orch:    orch,
		idGen:   idGen,
		logger:  logger,
		metrics: metrics,
	}
}

// ApplyBatch runs the entry-creation saga for each entry in order. If
// any entry fails, every previously applied entry is reversed in reverse
// order and the failed index is reported.
func (uc *BatchUseCase) ApplyBatch(ctx context.Context, input ApplyBatchInput) (*BatchResult, error) {
	if len(input.Entries) == 0 {
		return nil, domain.ErrNoLines
	}

	batchID := uc.idGen.Generate()
	entryIDs := make([]string, len(input.Entries))
	stepIndex := make(map[string]int, len(input.Entries))

	steps := make([]SagaStep, 0, len(input.Entries))
	for i := range input.Entries {
		i := i
		name := fmt.Sprintf("entry %d", i)
		stepIndex[name] = i

		steps = append(steps, SagaStep{
			Name: name,
			Forward: func(ctx context.Context) error {
				entry, result, err := uc.posting.runCreationSaga(ctx, fmt.Sprintf("%s-%d", batchID, i), input.Entries[i])
				if err != nil {
					return err
				}

				switch result.Outcome {
				case SagaCompleted:
					entryIDs[i] = entry.ID
					return nil
				case SagaCompensationFailed:
					return fmt.Errorf("%w: %v", domain.ErrSagaCompensationFailed, result.CompensationErr)
				default:
					return result.Cause
				}
			},
			Compensate: func(ctx context.Context) error {
				// The inner saga completed, so the entry is posted;
				// reverse it rather than delete it.
				_, err := uc.journal.ReverseEntry(ctx, entryIDs[i])
				return err
			},
		})
	}

	result, err := uc.orch.Run(ctx, batchID, domain.SagaTypeBatchProcessing, steps)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(entryIDs))
	for _, id := range entryIDs {
		if id != "" {
			applied = append(applied, id)
		}
	}

	batch := &BatchResult{
		BatchID:     batchID,
		Applied:     applied,
		FailedIndex: -1,
	}

	switch result.Outcome {
	case SagaCompleted:
		batch.Status = BatchStatusApplied
		if uc.metrics != nil {
			uc.metrics.BatchesApplied.Inc()
		}
	case SagaCompensated:
		batch.Status = BatchStatusFailed
		batch.FailedIndex = stepIndex[result.FailedStep]
		batch.Cause = result.Cause.Error()
		if uc.metrics != nil {
			uc.metrics.BatchesFailed.Inc()
		}
		uc.logger.Warn().
			Str("batch_id", batchID).
			Int("failed_index", batch.FailedIndex).
			Str("cause", batch.Cause).
			Msg("batch failed, prior entries reversed")
	case SagaCompensationFailed:
		batch.Status = BatchStatusCompensationFailed
		batch.FailedIndex = stepIndex[result.FailedStep]
		batch.Cause = fmt.Sprintf("compensation failed at %q: %v", result.CompensationStep, result.CompensationErr)
		if uc.metrics != nil {
			uc.metrics.BatchesFailed.Inc()
		}
		uc.logger.Error().
			Str("batch_id", batchID).
			Str("step", result.CompensationStep).
			Msg("batch compensation failed, manual resolution required")
	}

	return batch, nil
}
