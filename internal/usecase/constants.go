package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a single database transaction so a
	// stuck statement cannot hold row locks indefinitely.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultStepTimeout bounds one saga step's forward action. Exceeding
	// it is treated as a step failure and triggers compensation.
	DefaultStepTimeout = 15 * time.Second

	// DefaultMaxDispatchAttempts is the outbox retry budget before an
	// event is dead-lettered.
	DefaultMaxDispatchAttempts = 5
)
