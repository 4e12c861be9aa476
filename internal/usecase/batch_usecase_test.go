package usecase_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
	"github.com/finbooks/journal/internal/usecase/mocks"
)

type batchFixture struct {
	batch   *usecase.BatchUseCase
	journal *usecase.JournalUseCase
	outbox  *mocks.MockOutboxRepository
}

func newBatchFixture() *batchFixture {
	accounts := mocks.NewMockAccountRepository()
	accounts.Seed(
		&domain.Account{ID: "acc-cash", Code: "1000", Name: "Cash", Type: domain.AccountTypeAsset, Active: true},
		&domain.Account{ID: "acc-revenue", Code: "4000", Name: "Sales Revenue", Type: domain.AccountTypeRevenue, Active: true},
	)

	journalRepo := mocks.NewMockJournalRepository()
	outbox := mocks.NewMockOutboxRepository()
	sagaRepo := mocks.NewMockSagaRepository()
	idGen := mocks.NewMockIDGenerator()

	journal := usecase.NewJournalUseCase(
		mocks.NewMockTransactionManager(),
		accounts,
		journalRepo,
		outbox,
		mocks.NewMockEntryLocker(),
		idGen,
		nil,
	)

	orch := usecase.NewSagaOrchestrator(sagaRepo, zerolog.Nop(), nil)
	posting := usecase.NewPostingUseCase(journal, outbox, orch, idGen)
	batch := usecase.NewBatchUseCase(posting, journal, orch, idGen, zerolog.Nop(), nil)

	return &batchFixture{batch: batch, journal: journal, outbox: outbox}
}

func balancedEntry(amount int64) usecase.CreateEntryInput {
	return usecase.CreateEntryInput{
		Lines: []usecase.LineInput{
			{AccountID: "acc-cash", Debit: decimal.NewFromInt(amount)},
			{AccountID: "acc-revenue", Credit: decimal.NewFromInt(amount)},
		},
	}
}

func TestBatchUseCase_ApplyBatch(t *testing.T) {
	f := newBatchFixture()
	ctx := context.Background()

	result, err := f.batch.ApplyBatch(ctx, usecase.ApplyBatchInput{
		Entries: []usecase.CreateEntryInput{
			balancedEntry(100),
			balancedEntry(200),
			balancedEntry(300),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, usecase.BatchStatusApplied, result.Status)
	assert.Equal(t, -1, result.FailedIndex)
	require.Len(t, result.Applied, 3)

	for _, id := range result.Applied {
		entry, err := f.journal.GetEntry(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.EntryStatusPosted, entry.Status)
	}
}

func TestBatchUseCase_FailedEntryReversesPriorOnes(t *testing.T) {
	f := newBatchFixture()
	ctx := context.Background()

	unbalanced := usecase.CreateEntryInput{
		Lines: []usecase.LineInput{
			{AccountID: "acc-cash", Debit: decimal.NewFromInt(300)},
			{AccountID: "acc-revenue", Credit: decimal.NewFromInt(299)},
		},
	}

	result, err := f.batch.ApplyBatch(ctx, usecase.ApplyBatchInput{
		Entries: []usecase.CreateEntryInput{
			balancedEntry(100),
			balancedEntry(200),
			unbalanced,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, usecase.BatchStatusFailed, result.Status)
	assert.Equal(t, 2, result.FailedIndex)
	assert.Contains(t, result.Cause, domain.ErrUnbalanced.Error())

	// The two entries posted before the failure are reversed on the
	// books, not erased.
	require.Len(t, result.Applied, 2)
	for _, id := range result.Applied {
		entry, err := f.journal.GetEntry(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.EntryStatusReversed, entry.Status)
	}

	// Each reversal emits its own compensating event downstream.
	var reversed int
	for _, event := range f.outbox.Events() {
		if event.Action == domain.EventActionReversed {
			assert.Equal(t, domain.EventStatusPending, event.Status)
			reversed++
		}
	}
	assert.Equal(t, 2, reversed)
}

func TestBatchUseCase_FirstEntryFailureAppliesNothing(t *testing.T) {
	f := newBatchFixture()
	ctx := context.Background()

	result, err := f.batch.ApplyBatch(ctx, usecase.ApplyBatchInput{
		Entries: []usecase.CreateEntryInput{
			{
				Lines: []usecase.LineInput{
					{AccountID: "acc-cash", Debit: decimal.NewFromInt(10)},
					{AccountID: "acc-revenue", Credit: decimal.NewFromInt(5)},
				},
			},
			balancedEntry(100),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, usecase.BatchStatusFailed, result.Status)
	assert.Equal(t, 0, result.FailedIndex)
	assert.Empty(t, result.Applied)

	entries, err := f.journal.ListEntries(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBatchUseCase_EmptyBatch(t *testing.T) {
	f := newBatchFixture()

	_, err := f.batch.ApplyBatch(context.Background(), usecase.ApplyBatchInput{})
	assert.ErrorIs(t, err, domain.ErrNoLines)
}
