package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbooks/journal/internal/domain"
)

// SagaRepository persists saga execution records. Executions are written
// outside the sagas' own business transactions: the record must survive
// a rolled-back step to be useful as an audit trail.
type SagaRepository struct {
	pool *pgxpool.Pool
}

// NewSagaRepository creates a new SagaRepository.
func NewSagaRepository(pool *pgxpool.Pool) *SagaRepository {
	return &SagaRepository{pool: pool}
}

// Create inserts a new execution record.
func (r *SagaRepository) Create(ctx context.Context, execution *domain.SagaExecution) error {
	steps, err := json.Marshal(execution.Steps)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO saga_executions (id, saga_type, status, steps, created_at, updated_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		execution.ID,
		string(execution.Type),
		string(execution.Status),
		steps,
		timeToPgTimestamptz(execution.CreatedAt),
		timeToPgTimestamptz(execution.UpdatedAt),
		timePtrToPgTimestamptz(execution.FinishedAt),
	)

	return err
}

// Update persists the current step statuses and overall status.
func (r *SagaRepository) Update(ctx context.Context, execution *domain.SagaExecution) error {
	steps, err := json.Marshal(execution.Steps)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE saga_executions
		SET status = $2, steps = $3, updated_at = $4, finished_at = $5
		WHERE id = $1
	`,
		execution.ID,
		string(execution.Status),
		steps,
		timeToPgTimestamptz(execution.UpdatedAt),
		timePtrToPgTimestamptz(execution.FinishedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrSagaNotFound
	}

	return nil
}

// GetByID retrieves an execution record.
func (r *SagaRepository) GetByID(ctx context.Context, id string) (*domain.SagaExecution, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, saga_type, status, steps, created_at, updated_at, finished_at
		FROM saga_executions
		WHERE id = $1
	`, id)

	execution, err := scanSagaExecution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSagaNotFound
		}
		return nil, err
	}

	return execution, nil
}

// List retrieves execution records, newest first.
func (r *SagaRepository) List(ctx context.Context, limit, offset int) ([]*domain.SagaExecution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, saga_type, status, steps, created_at, updated_at, finished_at
		FROM saga_executions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []*domain.SagaExecution
	for rows.Next() {
		execution, err := scanSagaExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

func scanSagaExecution(row pgx.Row) (*domain.SagaExecution, error) {
	var (
		execution  domain.SagaExecution
		sagaType   string
		status     string
		steps      []byte
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
		finishedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&execution.ID,
		&sagaType,
		&status,
		&steps,
		&createdAt,
		&updatedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if steps != nil {
		if err := json.Unmarshal(steps, &execution.Steps); err != nil {
			return nil, err
		}
	}

	execution.Type = domain.SagaType(sagaType)
	execution.Status = domain.SagaStatus(status)
	execution.CreatedAt = createdAt.Time
	execution.UpdatedAt = updatedAt.Time
	if finishedAt.Valid {
		t := finishedAt.Time
		execution.FinishedAt = &t
	}

	return &execution, nil
}
