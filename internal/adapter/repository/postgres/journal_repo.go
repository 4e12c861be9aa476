package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
)

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Create inserts an entry and its lines within a transaction.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO journal_entries (
			id, entry_number, entry_date, reference, description,
			status, is_adjustment, reversal_of_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := pgxTx.Exec(ctx, query,
		entry.ID,
		entry.EntryNumber,
		timeToPgTimestamptz(entry.Date),
		entry.Reference,
		entry.Description,
		string(entry.Status),
		entry.IsAdjustment,
		entry.ReversalOfID,
		timeToPgTimestamptz(entry.CreatedAt),
		timeToPgTimestamptz(entry.UpdatedAt),
	)
	if err != nil {
		return err
	}

	return r.insertLines(ctx, pgxTx, entry.ID, entry.Lines)
}

// GetByID retrieves an entry with its lines in insertion order.
func (r *JournalRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return r.getByID(ctx, r.pool, id, false)
}

// GetByIDForUpdate locks the entry row for the duration of the transaction.
func (r *JournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	return r.getByID(ctx, tx.(*Tx).PgxTx(), id, true)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *JournalRepository) getByID(ctx context.Context, q queryer, id string, forUpdate bool) (*domain.JournalEntry, error) {
	query := `
		SELECT id, entry_number, entry_date, reference, description,
		       status, is_adjustment, reversal_of_id, created_at, updated_at
		FROM journal_entries
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	entry, err := scanEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	lines, err := r.linesByEntry(ctx, q, id)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines

	return entry, nil
}

// UpdateStatus updates an entry's lifecycle status.
func (r *JournalRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.EntryStatus, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx,
		`UPDATE journal_entries SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// UpdateDraft updates the header fields of a draft entry.
func (r *JournalRepository) UpdateDraft(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE journal_entries
		SET entry_date = $2, reference = $3, description = $4,
		    is_adjustment = $5, updated_at = $6
		WHERE id = $1
	`,
		entry.ID,
		timeToPgTimestamptz(entry.Date),
		entry.Reference,
		entry.Description,
		entry.IsAdjustment,
		timeToPgTimestamptz(entry.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// ReplaceLines swaps out all lines of a draft entry.
func (r *JournalRepository) ReplaceLines(ctx context.Context, tx usecase.Transaction, entryID string, lines []domain.JournalEntryLine) error {
	pgxTx := tx.(*Tx).PgxTx()

	if _, err := pgxTx.Exec(ctx, `DELETE FROM journal_entry_lines WHERE entry_id = $1`, entryID); err != nil {
		return err
	}

	return r.insertLines(ctx, pgxTx, entryID, lines)
}

// Delete removes a draft entry; lines are removed by cascade.
func (r *JournalRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// NextEntryNumber issues the next monotonic entry number from the
// database sequence. Numbers are never reused, including for drafts
// that are later deleted.
func (r *JournalRepository) NextEntryNumber(ctx context.Context, tx usecase.Transaction) (string, error) {
	pgxTx := tx.(*Tx).PgxTx()

	var seq int64
	if err := pgxTx.QueryRow(ctx, `SELECT nextval('journal_entry_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}

	return fmt.Sprintf("JE-%06d", seq), nil
}

// List retrieves entries newest first, with their lines.
func (r *JournalRepository) List(ctx context.Context, limit, offset int) ([]*domain.JournalEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entry_number, entry_date, reference, description,
		       status, is_adjustment, reversal_of_id, created_at, updated_at
		FROM journal_entries
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	ids := make([]string, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		ids = append(ids, entry.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return entries, nil
	}

	lineRows, err := r.pool.Query(ctx, `
		SELECT id, entry_id, account_id, debit, credit, created_at
		FROM journal_entry_lines
		WHERE entry_id = ANY($1)
		ORDER BY entry_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	byEntry := make(map[string][]domain.JournalEntryLine)
	for lineRows.Next() {
		line, err := scanLine(lineRows)
		if err != nil {
			return nil, err
		}
		byEntry[line.EntryID] = append(byEntry[line.EntryID], line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	for _, entry := range entries {
		entry.Lines = byEntry[entry.ID]
	}

	return entries, nil
}

func (r *JournalRepository) insertLines(ctx context.Context, tx pgx.Tx, entryID string, lines []domain.JournalEntryLine) error {
	query := `
		INSERT INTO journal_entry_lines (id, entry_id, account_id, debit, credit, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, line := range lines {
		debit, err := decimalToNumeric(line.Debit)
		if err != nil {
			return err
		}
		credit, err := decimalToNumeric(line.Credit)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, query,
			line.ID,
			entryID,
			line.AccountID,
			debit,
			credit,
			i,
			timeToPgTimestamptz(line.CreatedAt),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *JournalRepository) linesByEntry(ctx context.Context, q queryer, entryID string) ([]domain.JournalEntryLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, entry_id, account_id, debit, credit, created_at
		FROM journal_entry_lines
		WHERE entry_id = $1
		ORDER BY position
	`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.JournalEntryLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var (
		entry        domain.JournalEntry
		status       string
		date         pgtype.Timestamptz
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
		reversalOfID *string
	)

	err := row.Scan(
		&entry.ID,
		&entry.EntryNumber,
		&date,
		&entry.Reference,
		&entry.Description,
		&status,
		&entry.IsAdjustment,
		&reversalOfID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Status = domain.EntryStatus(status)
	entry.Date = date.Time
	entry.CreatedAt = createdAt.Time
	entry.UpdatedAt = updatedAt.Time
	entry.ReversalOfID = reversalOfID

	return &entry, nil
}

func scanLine(row pgx.Row) (domain.JournalEntryLine, error) {
	var (
		line      domain.JournalEntryLine
		debit     pgtype.Numeric
		credit    pgtype.Numeric
		createdAt pgtype.Timestamptz
	)

	err := row.Scan(
		&line.ID,
		&line.EntryID,
		&line.AccountID,
		&debit,
		&credit,
		&createdAt,
	)
	if err != nil {
		return line, err
	}

	line.Debit = numericToDecimal(debit)
	line.Credit = numericToDecimal(credit)
	line.CreatedAt = createdAt.Time

	return line, nil
}
