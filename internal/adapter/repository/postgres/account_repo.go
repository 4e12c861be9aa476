package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbooks/journal/internal/domain"
)

// AccountRepository implements read-only access to the chart of
// accounts. Account management lives in another service; this core only
// references accounts on journal lines.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, code, name, account_type, active, created_at, updated_at`

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	return account, nil
}

// GetByIDs retrieves multiple accounts; missing IDs are simply absent
// from the result.
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// List retrieves accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account     domain.Account
		accountType string
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)

	err := row.Scan(
		&account.ID,
		&account.Code,
		&account.Name,
		&accountType,
		&account.Active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Type = domain.AccountType(accountType)
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time

	return &account, nil
}
