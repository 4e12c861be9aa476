package domain

import "time"

// AccountType classifies an account within the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Account is a chart-of-accounts entry referenced by journal lines.
// The posting core reads accounts but never mutates them.
type Account struct {
	ID        string
	Code      string
	Name      string
	Type      AccountType
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateReferenced checks that the account may appear on a journal line.
func (a *Account) ValidateReferenced() error {
	if !a.Active {
		return ErrAccountInactive
	}
	return nil
}
