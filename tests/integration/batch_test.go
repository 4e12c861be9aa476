package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
	"github.com/finbooks/journal/tests/testutil"
)

func TestBatchFailureReversesAppliedEntries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	s := newStack(t, testDB)

	cash := testDB.CreateTestAccount(ctx, "1000", "Cash", domain.AccountTypeAsset, true)
	revenue := testDB.CreateTestAccount(ctx, "4000", "Sales Revenue", domain.AccountTypeRevenue, true)

	result, err := s.batch.ApplyBatch(ctx, usecase.ApplyBatchInput{
		Entries: []usecase.CreateEntryInput{
			{Lines: balancedLines(cash, revenue, "100.00")},
			{Lines: balancedLines(cash, revenue, "200.00")},
			{Lines: []usecase.LineInput{
				{AccountID: cash.ID, Debit: mustDecimal("300.00")},
				{AccountID: revenue.ID, Credit: mustDecimal("299.00")},
			}},
		},
	})
	if err != nil {
		t.Fatalf("failed to apply batch: %v", err)
	}

	if result.Status != usecase.BatchStatusFailed {
		t.Fatalf("expected batch failed, got %s", result.Status)
	}
	if result.FailedIndex != 2 {
		t.Errorf("expected failed index 2, got %d", result.FailedIndex)
	}
	if !strings.Contains(result.Cause, domain.ErrUnbalanced.Error()) {
		t.Errorf("expected cause to mention the balance violation, got %q", result.Cause)
	}
	if len(result.Applied) != 2 {
		t.Fatalf("expected 2 applied entries, got %d", len(result.Applied))
	}

	// Batch compensation is reversal: the applied entries remain in the
	// ledger as reversed, each paired with its reversal entry.
	for _, id := range result.Applied {
		entry, err := s.journal.GetEntry(ctx, id)
		if err != nil {
			t.Fatalf("failed to reload applied entry: %v", err)
		}
		if entry.Status != domain.EntryStatusReversed {
			t.Errorf("expected entry %s reversed, got %s", id, entry.Status)
		}
	}

	entries, err := s.journal.ListEntries(ctx, 20, 0)
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	// Two applied entries plus their two reversals.
	if len(entries) != 4 {
		t.Errorf("expected 4 entries after batch compensation, got %d", len(entries))
	}
}

func TestBatchAppliesAllEntries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	s := newStack(t, testDB)

	cash := testDB.CreateTestAccount(ctx, "1000", "Cash", domain.AccountTypeAsset, true)
	revenue := testDB.CreateTestAccount(ctx, "4000", "Sales Revenue", domain.AccountTypeRevenue, true)

	result, err := s.batch.ApplyBatch(ctx, usecase.ApplyBatchInput{
		Entries: []usecase.CreateEntryInput{
			{Lines: balancedLines(cash, revenue, "10.00")},
			{Lines: balancedLines(cash, revenue, "20.00")},
		},
	})
	if err != nil {
		t.Fatalf("failed to apply batch: %v", err)
	}

	if result.Status != usecase.BatchStatusApplied {
		t.Fatalf("expected batch applied, got %s", result.Status)
	}
	if len(result.Applied) != 2 {
		t.Fatalf("expected 2 applied entries, got %d", len(result.Applied))
	}

	for _, id := range result.Applied {
		entry, err := s.journal.GetEntry(ctx, id)
		if err != nil {
			t.Fatalf("failed to reload entry: %v", err)
		}
		if entry.Status != domain.EntryStatusPosted {
			t.Errorf("expected entry %s posted, got %s", id, entry.Status)
		}
	}
}
