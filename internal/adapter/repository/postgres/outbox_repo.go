package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	pool *pgxpool.Pool
	// stagedGrace is how long a staged event may sit before it is
	// treated as orphaned by a crash and becomes drainable.
	stagedGrace time.Duration
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool, stagedGrace time.Duration) *OutboxRepository {
	if stagedGrace <= 0 {
		stagedGrace = time.Minute
	}

	return &OutboxRepository{pool: pool, stagedGrace: stagedGrace}
}

const outboxColumns = `id, entity_type, entity_id, action, payload, status, attempts, last_error, created_at, dispatched_at`

// Create inserts an outbox event within the mutating transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	pgxTx := tx.(*Tx).PgxTx()

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO outbox_events (id, entity_type, entity_id, action, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		event.ID,
		event.EntityType,
		event.EntityID,
		event.Action,
		payload,
		string(event.Status),
		event.Attempts,
		timeToPgTimestamptz(event.CreatedAt),
	)

	return err
}

// Drain returns events eligible for dispatch, oldest first: pending
// events, failed events whose backoff has elapsed, and staged events
// past the orphan grace period.
func (r *OutboxRepository) Drain(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE status = 'pending'
		   OR (status = 'failed' AND next_attempt_at <= now())
		   OR (status = 'staged' AND created_at <= now() - $2::interval)
		ORDER BY created_at, id
		LIMIT $1
	`, limit, r.stagedGrace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutboxEvents(rows)
}

// MarkDispatched records confirmed delivery.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, id string, dispatchedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'dispatched', dispatched_at = $2
		WHERE id = $1
	`, id, timeToPgTimestamptz(dispatchedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

// MarkFailed increments the attempt count and schedules the next retry
// with exponential backoff. Events reaching maxAttempts are moved to
// dead_letter and excluded from future drains.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string, maxAttempts int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN 'dead_letter' ELSE 'failed' END,
		    next_attempt_at = now() + make_interval(secs => LEAST(300, 2 ^ (attempts + 1)))
		WHERE id = $1
	`, id, reason, maxAttempts)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

// MarkDropped records that the entity left the state the event
// describes before dispatch; the event will never be delivered.
func (r *OutboxRepository) MarkDropped(ctx context.Context, id string, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'dropped', last_error = $2
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

// Release flips staged events to pending.
func (r *OutboxRepository) Release(ctx context.Context, ids []string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'pending'
		WHERE id = ANY($1) AND status = 'staged'
	`, ids)

	return err
}

// GetByEntity retrieves all events for one entity, oldest first.
func (r *OutboxRepository) GetByEntity(ctx context.Context, entityType, entityID string) ([]*domain.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id
	`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutboxEvents(rows)
}

// ListDeadLetters retrieves dead-lettered events for manual inspection.
func (r *OutboxRepository) ListDeadLetters(ctx context.Context, limit, offset int) ([]*domain.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE status = 'dead_letter'
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutboxEvents(rows)
}

// Requeue resets a dead-lettered event for a fresh round of delivery
// attempts.
func (r *OutboxRepository) Requeue(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'pending', attempts = 0, last_error = '', next_attempt_at = NULL
		WHERE id = $1 AND status = 'dead_letter'
	`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

// DeleteDispatched removes delivered events older than the given time.
func (r *OutboxRepository) DeleteDispatched(ctx context.Context, before time.Time) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM outbox_events
		WHERE status = 'dispatched' AND dispatched_at < $1
	`, timeToPgTimestamptz(before))

	return err
}

func scanOutboxEvents(rows pgx.Rows) ([]*domain.OutboxEvent, error) {
	var events []*domain.OutboxEvent
	for rows.Next() {
		var (
			event        domain.OutboxEvent
			status       string
			payload      []byte
			lastError    *string
			createdAt    pgtype.Timestamptz
			dispatchedAt pgtype.Timestamptz
		)

		err := rows.Scan(
			&event.ID,
			&event.EntityType,
			&event.EntityID,
			&event.Action,
			&payload,
			&status,
			&event.Attempts,
			&lastError,
			&createdAt,
			&dispatchedAt,
		)
		if err != nil {
			return nil, err
		}

		if payload != nil {
			_ = json.Unmarshal(payload, &event.Payload)
		}
		if lastError != nil {
			event.LastError = *lastError
		}

		event.Status = domain.EventStatus(status)
		event.CreatedAt = createdAt.Time
		if dispatchedAt.Valid {
			t := dispatchedAt.Time
			event.DispatchedAt = &t
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
