package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/infrastructure/metrics"
)

// SagaStep is one orchestrated step: a forward action plus an optional
// compensating action that semantically undoes it.
type SagaStep struct {
	Name       string
	Forward    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// SagaOutcome is the terminal outcome of a saga run.
type SagaOutcome string

const (
	SagaCompleted          SagaOutcome = "completed"
	SagaCompensated        SagaOutcome = "compensated"
	SagaCompensationFailed SagaOutcome = "compensation_failed"
)

// SagaResult reports how a saga run ended.
type SagaResult struct {
	Execution        *domain.SagaExecution
	Outcome          SagaOutcome
	FailedStep       string
	Cause            error
	CompensationStep string
	CompensationErr  error
}

// SagaOrchestrator executes named step sequences with reverse-order
// compensation. Execution records are persisted before the first step
// and after every transition, and retained for audit.
type SagaOrchestrator struct {
	sagaRepo    SagaRepository
	retrier     Retrier
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	stepTimeout time.Duration
}

// NewSagaOrchestrator creates a new SagaOrchestrator.
func NewSagaOrchestrator(sagaRepo SagaRepository, logger zerolog.Logger, metrics *metrics.Metrics) *SagaOrchestrator {
	return &SagaOrchestrator{
		sagaRepo:    sagaRepo,
		logger:      logger,
		metrics:     metrics,
		stepTimeout: DefaultStepTimeout,
	}
}

// WithRetrier configures transient-error retries for forward actions.
func (o *SagaOrchestrator) WithRetrier(r Retrier) *SagaOrchestrator {
	o.retrier = r
	return o
}

// WithStepTimeout overrides the per-step execution timeout.
func (o *SagaOrchestrator) WithStepTimeout(d time.Duration) *SagaOrchestrator {
	o.stepTimeout = d
	return o
}

// Run executes the steps in declared order. On a forward failure, every
// previously completed step is compensated in strict reverse order. A
// failed compensation freezes the saga in compensation_failed; it is
// never retried automatically because re-running a compensation risks
// double-compensation.
//
// Re-invoking Run with the same sagaID resumes the execution: steps
// already recorded as done are skipped, which makes caller-level retries
// of idempotent workflows safe.
func (o *SagaOrchestrator) Run(ctx context.Context, sagaID string, sagaType domain.SagaType, steps []SagaStep) (*SagaResult, error) {
	execution, err := o.loadOrCreate(ctx, sagaID, sagaType, steps)
	if err != nil {
		return nil, err
	}

	if execution.Status == domain.SagaStatusCompensationFailed {
		// Frozen for manual repair; refuse to touch it.
		return nil, fmt.Errorf("%w: saga %s requires manual resolution", domain.ErrSagaCompensationFailed, sagaID)
	}

	logger := o.logger.With().Str("saga_id", sagaID).Str("saga_type", string(sagaType)).Logger()

	if o.metrics != nil {
		o.metrics.SagasStarted.Inc()
	}

	for i, step := range steps {
		record := execution.StepRecord(step.Name)

		if record != nil && record.Status == domain.StepStatusDone {
			logger.Debug().Str("step", step.Name).Msg("step already done, skipping")
			continue
		}

		stepStart := time.Now()
		err := o.runForward(ctx, step)
		if o.metrics != nil {
			o.metrics.SagaStepDuration.WithLabelValues(step.Name).Observe(time.Since(stepStart).Seconds())
		}

		if err == nil {
			o.markStep(ctx, execution, step.Name, domain.StepStatusDone, "")
			logger.Debug().Str("step", step.Name).Msg("step completed")
			continue
		}

		logger.Warn().Err(err).Str("step", step.Name).Msg("step failed, compensating")
		o.markStep(ctx, execution, step.Name, domain.StepStatusFailed, err.Error())

		return o.compensate(ctx, logger, execution, steps[:i], step.Name, err)
	}

	execution.Finish(domain.SagaStatusCompleted, time.Now().UTC())
	o.persist(ctx, execution)

	if o.metrics != nil {
		o.metrics.SagasCompleted.Inc()
	}

	return &SagaResult{Execution: execution, Outcome: SagaCompleted}, nil
}

func (o *SagaOrchestrator) runForward(ctx context.Context, step SagaStep) error {
	run := func() error {
		stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
		defer cancel()

		return step.Forward(stepCtx)
	}

	if o.retrier != nil {
		return o.retrier.Retry(ctx, run)
	}

	return run()
}

// compensate undoes completed steps in reverse order. Once compensation
// has begun it runs to completion or to compensation_failed; it is not
// cancellable.
func (o *SagaOrchestrator) compensate(ctx context.Context, logger zerolog.Logger, execution *domain.SagaExecution, completed []SagaStep, failedStep string, cause error) (*SagaResult, error) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}

		if record := execution.StepRecord(step.Name); record == nil || record.Status != domain.StepStatusDone {
			continue
		}

		// Detached from the caller's cancellation: an in-progress
		// compensation must not be interrupted mid-write.
		compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stepTimeout)
		err := step.Compensate(compCtx)
		cancel()

		if err != nil {
			logger.Error().Err(err).Str("step", step.Name).Msg("compensation failed, saga frozen for manual repair")

			execution.Finish(domain.SagaStatusCompensationFailed, time.Now().UTC())
			o.markStep(ctx, execution, step.Name, domain.StepStatusFailed, err.Error())

			if o.metrics != nil {
				o.metrics.SagasCompensationFailed.Inc()
			}

			return &SagaResult{
				Execution:        execution,
				Outcome:          SagaCompensationFailed,
				FailedStep:       failedStep,
				Cause:            cause,
				CompensationStep: step.Name,
				CompensationErr:  err,
			}, nil
		}

		o.markStep(ctx, execution, step.Name, domain.StepStatusCompensated, "")
		logger.Debug().Str("step", step.Name).Msg("step compensated")
	}

	execution.Finish(domain.SagaStatusCompensated, time.Now().UTC())
	o.persist(ctx, execution)

	if o.metrics != nil {
		o.metrics.SagasCompensated.Inc()
	}

	return &SagaResult{
		Execution:  execution,
		Outcome:    SagaCompensated,
		FailedStep: failedStep,
		Cause:      cause,
	}, nil
}

func (o *SagaOrchestrator) loadOrCreate(ctx context.Context, sagaID string, sagaType domain.SagaType, steps []SagaStep) (*domain.SagaExecution, error) {
	existing, err := o.sagaRepo.GetByID(ctx, sagaID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrSagaNotFound) {
		return nil, fmt.Errorf("load saga execution: %w", err)
	}

	now := time.Now().UTC()
	execution := &domain.SagaExecution{
		ID:        sagaID,
		Type:      sagaType,
		Status:    domain.SagaStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, step := range steps {
		execution.Steps = append(execution.Steps, domain.SagaStepRecord{
			Name:   step.Name,
			Status: domain.StepStatusPending,
		})
	}

	if err := o.sagaRepo.Create(ctx, execution); err != nil {
		return nil, err
	}

	return execution, nil
}

func (o *SagaOrchestrator) markStep(ctx context.Context, execution *domain.SagaExecution, name string, status domain.StepStatus, stepErr string) {
	record := execution.StepRecord(name)
	if record == nil {
		return
	}

	now := time.Now().UTC()
	record.Status = status
	record.Error = stepErr
	record.FinishedAt = &now

	o.persist(ctx, execution)
}

// persist is best-effort: the execution record is an audit trail, and a
// failed write must not abort a saga that is mid-compensation.
func (o *SagaOrchestrator) persist(ctx context.Context, execution *domain.SagaExecution) {
	execution.UpdatedAt = time.Now().UTC()
	if err := o.sagaRepo.Update(context.WithoutCancel(ctx), execution); err != nil {
		o.logger.Error().Err(err).Str("saga_id", execution.ID).Msg("failed to persist saga execution")
	}
}
