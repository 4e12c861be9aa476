package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finbooks/journal/internal/adapter/repository/postgres"
	redisrepo "github.com/finbooks/journal/internal/adapter/repository/redis"
	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
	"github.com/finbooks/journal/tests/testutil"
)

// stack wires the full use case layer over real repositories, with a
// miniredis-backed entry lock so no external Redis is needed.
type stack struct {
	journal     *usecase.JournalUseCase
	posting     *usecase.PostingUseCase
	batch       *usecase.BatchUseCase
	journalRepo *postgres.JournalRepository
	outboxRepo  *postgres.OutboxRepository
	sagaRepo    *postgres.SagaRepository
}

func newStack(t *testing.T, db *testutil.TestDB) *stack {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	pool := db.Pool
	txManager := postgres.NewTxManager(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	journalRepo := postgres.NewJournalRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool, 0)
	sagaRepo := postgres.NewSagaRepository(pool)
	idGen := postgres.NewULIDGenerator()
	locker := redisrepo.NewEntryLocker(redisClient, 0, 0)

	journal := usecase.NewJournalUseCase(txManager, accountRepo, journalRepo, outboxRepo, locker, idGen, nil).
		WithRetrier(postgres.NewRetrier(zerolog.Nop()))
	orch := usecase.NewSagaOrchestrator(sagaRepo, zerolog.Nop(), nil)
	posting := usecase.NewPostingUseCase(journal, outboxRepo, orch, idGen)
	batch := usecase.NewBatchUseCase(posting, journal, orch, idGen, zerolog.Nop(), nil)

	return &stack{
		journal:     journal,
		posting:     posting,
		batch:       batch,
		journalRepo: journalRepo,
		outboxRepo:  outboxRepo,
		sagaRepo:    sagaRepo,
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// balancedLines builds a cash-debit / revenue-credit line pair.
func balancedLines(cash, revenue *domain.Account, amount string) []usecase.LineInput {
	return []usecase.LineInput{
		{AccountID: cash.ID, Debit: mustDecimal(amount)},
		{AccountID: revenue.ID, Credit: mustDecimal(amount)},
	}
}

// captureTransport records published envelopes. An error, if set, is
// returned for every publish.
type captureTransport struct {
	mu        sync.Mutex
	envelopes []domain.EventEnvelope
	err       error
}

func (t *captureTransport) Publish(_ context.Context, _ string, envelope domain.EventEnvelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil {
		return t.err
	}

	t.envelopes = append(t.envelopes, envelope)
	return nil
}

func (t *captureTransport) published() []domain.EventEnvelope {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.EventEnvelope, len(t.envelopes))
	copy(out, t.envelopes)
	return out
}
