package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle status of a journal entry.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "draft"
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusReversed EntryStatus = "reversed"
)

// MinorUnitExponent is the number of decimal places carried by monetary
// amounts. Balance comparison happens at this precision, never beyond it.
const MinorUnitExponent = 2

// JournalEntryLine is a single debit or credit against an account.
// Exactly one of Debit and Credit is non-zero; the other is zero.
type JournalEntryLine struct {
	ID        string
	EntryID   string
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	CreatedAt time.Time
}

// Validate checks the debit/credit exclusivity rule for one line.
func (l *JournalEntryLine) Validate() error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return fmt.Errorf("%w: amounts must be non-negative", ErrInvalidLine)
	}

	debitSet := l.Debit.IsPositive()
	creditSet := l.Credit.IsPositive()

	if debitSet == creditSet {
		return ErrInvalidLine
	}

	return nil
}

// JournalEntry is a double-entry journal entry with its lines.
// Line order is insertion order; it carries no semantics but is preserved
// for audit display.
type JournalEntry struct {
	ID           string
	EntryNumber  string
	Date         time.Time
	Reference    string
	Description  string
	Status       EntryStatus
	IsAdjustment bool
	ReversalOfID *string
	Lines        []JournalEntryLine
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateLineShape checks that lines are non-empty and each line has
// exactly one of debit/credit set. It does not require balance, so a
// draft may be created while still being edited.
func ValidateLineShape(lines []JournalEntryLine) error {
	if len(lines) == 0 {
		return ErrNoLines
	}

	for i := range lines {
		if err := lines[i].Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}

	return nil
}

// ValidateBalanced checks the double-entry invariant over a candidate set
// of lines: sum(debit) == sum(credit) at minor-unit precision. It implies
// ValidateLineShape.
func ValidateBalanced(lines []JournalEntryLine) error {
	if err := ValidateLineShape(lines); err != nil {
		return err
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i := range lines {
		totalDebit = totalDebit.Add(lines[i].Debit)
		totalCredit = totalCredit.Add(lines[i].Credit)
	}

	diff := totalDebit.Sub(totalCredit).Round(MinorUnitExponent)
	if !diff.IsZero() {
		return fmt.Errorf("%w: difference %s", ErrUnbalanced, diff)
	}

	return nil
}

// Balanced reports whether the entry currently satisfies the double-entry
// invariant.
func (e *JournalEntry) Balanced() bool {
	return ValidateBalanced(e.Lines) == nil
}

// ReversalLines returns the entry's lines with debit and credit swapped,
// for building the compensating reversal entry.
func (e *JournalEntry) ReversalLines() []JournalEntryLine {
	lines := make([]JournalEntryLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, JournalEntryLine{
			AccountID: l.AccountID,
			Debit:     l.Credit,
			Credit:    l.Debit,
		})
	}

	return lines
}
