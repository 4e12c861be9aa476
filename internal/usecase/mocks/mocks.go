package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	GetByIDFunc  func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsFunc func(ctx context.Context, ids []string) ([]*domain.Account, error)
	ListFunc     func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Seed stores an account for lookup by the default implementations.
func (m *MockAccountRepository) Seed(accounts ...*domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range accounts {
		m.accounts[account.ID] = account
	}
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if acc, ok := m.accounts[id]; ok {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// MockJournalRepository is a mock implementation of JournalRepository.
type MockJournalRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.JournalEntry
	seq     int64

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.JournalEntry, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error)
	UpdateStatusFunc     func(ctx context.Context, tx usecase.Transaction, id string, status domain.EntryStatus, updatedAt time.Time) error
	UpdateDraftFunc      func(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error
	ReplaceLinesFunc     func(ctx context.Context, tx usecase.Transaction, entryID string, lines []domain.JournalEntryLine) error
	DeleteFunc           func(ctx context.Context, tx usecase.Transaction, id string) error
	NextEntryNumberFunc  func(ctx context.Context, tx usecase.Transaction) (string, error)
	ListFunc             func(ctx context.Context, limit, offset int) ([]*domain.JournalEntry, error)
}

func NewMockJournalRepository() *MockJournalRepository {
	return &MockJournalRepository{
		entries: make(map[string]*domain.JournalEntry),
	}
}

func (m *MockJournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *entry
	stored.Lines = append([]domain.JournalEntryLine(nil), entry.Lines...)
	m.entries[entry.ID] = &stored
	return nil
}

func (m *MockJournalRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	copied := *entry
	copied.Lines = append([]domain.JournalEntryLine(nil), entry.Lines...)
	return &copied, nil
}

func (m *MockJournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockJournalRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.EntryStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	entry.Status = status
	entry.UpdatedAt = updatedAt
	return nil
}

func (m *MockJournalRepository) UpdateDraft(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	if m.UpdateDraftFunc != nil {
		return m.UpdateDraftFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.entries[entry.ID]
	if !ok {
		return domain.ErrEntryNotFound
	}
	stored.Date = entry.Date
	stored.Reference = entry.Reference
	stored.Description = entry.Description
	stored.IsAdjustment = entry.IsAdjustment
	stored.UpdatedAt = entry.UpdatedAt
	return nil
}

func (m *MockJournalRepository) ReplaceLines(ctx context.Context, tx usecase.Transaction, entryID string, lines []domain.JournalEntryLine) error {
	if m.ReplaceLinesFunc != nil {
		return m.ReplaceLinesFunc(ctx, tx, entryID, lines)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[entryID]
	if !ok {
		return domain.ErrEntryNotFound
	}
	entry.Lines = append([]domain.JournalEntryLine(nil), lines...)
	return nil
}

func (m *MockJournalRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *MockJournalRepository) NextEntryNumber(ctx context.Context, tx usecase.Transaction) (string, error) {
	if m.NextEntryNumberFunc != nil {
		return m.NextEntryNumberFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("JE-%06d", m.seq), nil
}

func (m *MockJournalRepository) List(ctx context.Context, limit, offset int) ([]*domain.JournalEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.JournalEntry
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	return entries, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository. The
// default implementation keeps events in insertion order so drain and
// dispatch tests are deterministic.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.OutboxEvent
	order  []string

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	DrainFunc           func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkDispatchedFunc  func(ctx context.Context, id string, dispatchedAt time.Time) error
	MarkFailedFunc      func(ctx context.Context, id string, reason string, maxAttempts int) error
	MarkDroppedFunc     func(ctx context.Context, id string, reason string) error
	ReleaseFunc         func(ctx context.Context, ids []string) error
	GetByEntityFunc     func(ctx context.Context, entityType, entityID string) ([]*domain.OutboxEvent, error)
	ListDeadLettersFunc func(ctx context.Context, limit, offset int) ([]*domain.OutboxEvent, error)
	RequeueFunc         func(ctx context.Context, id string) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{
		events: make(map[string]*domain.OutboxEvent),
	}
}

// Events returns all stored events in insertion order.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]*domain.OutboxEvent, 0, len(m.order))
	for _, id := range m.order {
		events = append(events, m.events[id])
	}
	return events
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	m.order = append(m.order, event.ID)
	return nil
}

func (m *MockOutboxRepository) Drain(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.DrainFunc != nil {
		return m.DrainFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, id := range m.order {
		event := m.events[id]
		if event.Status != domain.EventStatusPending && event.Status != domain.EventStatusFailed {
			continue
		}
		events = append(events, event)
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkDispatched(ctx context.Context, id string, dispatchedAt time.Time) error {
	if m.MarkDispatchedFunc != nil {
		return m.MarkDispatchedFunc(ctx, id, dispatchedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Status = domain.EventStatusDispatched
	event.DispatchedAt = &dispatchedAt
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id string, reason string, maxAttempts int) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, reason, maxAttempts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Attempts++
	event.LastError = reason
	if event.Attempts >= maxAttempts {
		event.Status = domain.EventStatusDeadLetter
	} else {
		event.Status = domain.EventStatusFailed
	}
	return nil
}

func (m *MockOutboxRepository) MarkDropped(ctx context.Context, id string, reason string) error {
	if m.MarkDroppedFunc != nil {
		return m.MarkDroppedFunc(ctx, id, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Status = domain.EventStatusDropped
	event.LastError = reason
	return nil
}

func (m *MockOutboxRepository) Release(ctx context.Context, ids []string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, ids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if event, ok := m.events[id]; ok && event.Status == domain.EventStatusStaged {
			event.Status = domain.EventStatusPending
		}
	}
	return nil
}

func (m *MockOutboxRepository) GetByEntity(ctx context.Context, entityType, entityID string) ([]*domain.OutboxEvent, error) {
	if m.GetByEntityFunc != nil {
		return m.GetByEntityFunc(ctx, entityType, entityID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, id := range m.order {
		event := m.events[id]
		if event.EntityType == entityType && event.EntityID == entityID {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) ListDeadLetters(ctx context.Context, limit, offset int) ([]*domain.OutboxEvent, error) {
	if m.ListDeadLettersFunc != nil {
		return m.ListDeadLettersFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, id := range m.order {
		if event := m.events[id]; event.Status == domain.EventStatusDeadLetter {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) Requeue(ctx context.Context, id string) error {
	if m.RequeueFunc != nil {
		return m.RequeueFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok || event.Status != domain.EventStatusDeadLetter {
		return domain.ErrEventNotFound
	}
	event.Status = domain.EventStatusPending
	event.Attempts = 0
	event.LastError = ""
	return nil
}

func (m *MockOutboxRepository) DeleteDispatched(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	for _, id := range m.order {
		event := m.events[id]
		if event.Status == domain.EventStatusDispatched && event.DispatchedAt != nil && event.DispatchedAt.Before(before) {
			delete(m.events, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return nil
}

// MockSagaRepository is a mock implementation of SagaRepository.
type MockSagaRepository struct {
	mu         sync.RWMutex
	executions map[string]*domain.SagaExecution

	CreateFunc  func(ctx context.Context, execution *domain.SagaExecution) error
	UpdateFunc  func(ctx context.Context, execution *domain.SagaExecution) error
	GetByIDFunc func(ctx context.Context, id string) (*domain.SagaExecution, error)
	ListFunc    func(ctx context.Context, limit, offset int) ([]*domain.SagaExecution, error)
}

func NewMockSagaRepository() *MockSagaRepository {
	return &MockSagaRepository{
		executions: make(map[string]*domain.SagaExecution),
	}
}

func (m *MockSagaRepository) Create(ctx context.Context, execution *domain.SagaExecution) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, execution)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[execution.ID] = cloneExecution(execution)
	return nil
}

func (m *MockSagaRepository) Update(ctx context.Context, execution *domain.SagaExecution) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, execution)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.executions[execution.ID]; !ok {
		return domain.ErrSagaNotFound
	}
	m.executions[execution.ID] = cloneExecution(execution)
	return nil
}

func (m *MockSagaRepository) GetByID(ctx context.Context, id string) (*domain.SagaExecution, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	execution, ok := m.executions[id]
	if !ok {
		return nil, domain.ErrSagaNotFound
	}
	return cloneExecution(execution), nil
}

func (m *MockSagaRepository) List(ctx context.Context, limit, offset int) ([]*domain.SagaExecution, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var executions []*domain.SagaExecution
	for _, execution := range m.executions {
		executions = append(executions, cloneExecution(execution))
	}
	return executions, nil
}

func cloneExecution(execution *domain.SagaExecution) *domain.SagaExecution {
	copied := *execution
	copied.Steps = append([]domain.SagaStepRecord(nil), execution.Steps...)
	return &copied
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockEntryLocker is a mock implementation of EntryLocker. The default
// implementation serializes callers per entry id in-process.
type MockEntryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	LockFunc func(ctx context.Context, entryID string) (func(), error)
}

func NewMockEntryLocker() *MockEntryLocker {
	return &MockEntryLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *MockEntryLocker) Lock(ctx context.Context, entryID string) (func(), error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, entryID)
	}
	m.mu.Lock()
	lock, ok := m.locks[entryID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[entryID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	var once sync.Once
	return func() { once.Do(lock.Unlock) }, nil
}
