package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
	"github.com/finbooks/journal/tests/testutil"
)

func TestConcurrentPostingOfSameEntry(t *testing.T) {
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

	entry, err := s.journal.CreateEntry(ctx, usecase.CreateEntryInput{
		Lines: balancedLines(cash, revenue, "500.00"),
	})
	if err != nil {
		t.Fatalf("failed to create entry: %v", err)
	}

	const workers = 10

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.journal.PostEntry(ctx, entry.ID)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrNotDraft):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("expected exactly one successful post, got %d", succeeded)
	}
	if rejected != workers-1 {
		t.Errorf("expected %d rejections, got %d", workers-1, rejected)
	}

	// Only a single posted event was written.
	events, err := s.outboxRepo.GetByEntity(ctx, domain.EntityTypeJournalEntry, entry.ID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}

	var posted int
	for _, event := range events {
		if event.Action == domain.EventActionPosted {
			posted++
		}
	}
	if posted != 1 {
		t.Errorf("expected 1 posted event, got %d", posted)
	}
}

func TestConcurrentEntryCreationIssuesDistinctNumbers(t *testing.T) {
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

	const workers = 8

	var wg sync.WaitGroup
	numbers := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := s.journal.CreateEntry(ctx, usecase.CreateEntryInput{
				Lines: balancedLines(cash, revenue, "10.00"),
			})
			if err != nil {
				t.Errorf("failed to create entry: %v", err)
				return
			}
			numbers <- entry.EntryNumber
		}()
	}

	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for number := range numbers {
		if seen[number] {
			t.Errorf("entry number %s issued twice", number)
		}
		seen[number] = true
	}

	if len(seen) != workers {
		t.Errorf("expected %d distinct entry numbers, got %d", workers, len(seen))
	}
}
