package domain

import "time"

// SagaType names a workflow driven by the orchestrator.
type SagaType string

const (
	SagaTypeEntryCreation   SagaType = "entry-creation"
	SagaTypeBatchProcessing SagaType = "batch-processing"
)

// SagaStatus is the overall status of a saga execution.
type SagaStatus string

const (
	SagaStatusRunning            SagaStatus = "running"
	SagaStatusCompleted          SagaStatus = "completed"
	SagaStatusCompensated        SagaStatus = "compensated"
	SagaStatusCompensationFailed SagaStatus = "compensation_failed"
)

// StepStatus is the status of a single saga step.
type StepStatus string

const (
	StepStatusPending     StepStatus = "pending"
	StepStatusDone        StepStatus = "done"
	StepStatusCompensated StepStatus = "compensated"
	StepStatusFailed      StepStatus = "failed"
)

// SagaStepRecord is the persisted state of one step within an execution.
type SagaStepRecord struct {
	Name       string     `json:"name"`
	Status     StepStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SagaExecution is the audit record of a saga run. It is owned and
// mutated exclusively by the orchestrator and retained after completion.
type SagaExecution struct {
	ID         string
	Type       SagaType
	Status     SagaStatus
	Steps      []SagaStepRecord
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// Finish moves the execution to a terminal status.
func (s *SagaExecution) Finish(status SagaStatus, at time.Time) {
	s.Status = status
	s.FinishedAt = &at
}

// StepRecord returns the record for a named step, or nil.
func (s *SagaExecution) StepRecord(name string) *SagaStepRecord {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i]
		}
	}
	return nil
}
