package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/usecase"
)

// LedgerStore is an in-memory store implementing the product, ledger, purchase and
// outbox repositories plus the transaction manager.
//
// Serializable transactions are modeled first-committer-wins: a transaction remembers the
// ledger version of every user it read or wrote, and Commit fails with domain.ErrConflict
// when any of those versions moved in the meantime.
type LedgerStore struct {
	mu        sync.Mutex
	products  map[string]*domain.Product
	entries   []*domain.TransactionEntry
	purchases []*domain.Purchase
	events    []*domain.OutboxEvent
	versions  map[string]int64

	// Hooks for fault injection. Nil means default behavior.
	BeginFunc   func(ctx context.Context) error
	CommitFunc  func(ctx context.Context) error
	BalanceFunc func(ctx context.Context, userID string) (decimal.Decimal, error)

	commits   int
	rollbacks int
}

// NewLedgerStore creates an empty LedgerStore.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		products: make(map[string]*domain.Product),
		versions: make(map[string]int64),
	}
}

// AddProduct seeds a product.
func (s *LedgerStore) AddProduct(id string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = &domain.Product{ID: id, Name: id, Price: price}
}

// Credit seeds a committed ledger entry.
func (s *LedgerStore) Credit(userID string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &domain.TransactionEntry{
		ID:        "seed-" + strconv.Itoa(len(s.entries)),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	})
	s.versions[userID]++
}

// Entries returns a copy of the committed entries of userID.
func (s *LedgerStore) Entries(userID string) []*domain.TransactionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.TransactionEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// Purchases returns a copy of the committed purchases.
func (s *LedgerStore) Purchases() []*domain.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Purchase(nil), s.purchases...)
}

// Events returns a copy of the committed outbox events.
func (s *LedgerStore) Events() []*domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.OutboxEvent(nil), s.events...)
}

// Commits returns the number of successful commits.
func (s *LedgerStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Rollbacks returns the number of transactions that ended without committing.
func (s *LedgerStore) Rollbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbacks
}

type memoryTx struct {
	store     *LedgerStore
	seen      map[string]int64
	entries   []*domain.TransactionEntry
	purchases []*domain.Purchase
	events    []*domain.OutboxEvent
	done      bool
}

// Begin starts a transaction.
func (s *LedgerStore) Begin(ctx context.Context) (usecase.Transaction, error) {
	return s.BeginSerializable(ctx)
}

// BeginSerializable starts a transaction.
func (s *LedgerStore) BeginSerializable(ctx context.Context) (usecase.Transaction, error) {
	if s.BeginFunc != nil {
		if err := s.BeginFunc(ctx); err != nil {
			return nil, err
		}
	}
	return &memoryTx{store: s, seen: make(map[string]int64)}, nil
}

func (t *memoryTx) observe(userID string) {
	if _, ok := t.seen[userID]; !ok {
		t.seen[userID] = t.store.versions[userID]
	}
}

// Commit applies the pending writes unless a conflicting commit happened first.
func (t *memoryTx) Commit(ctx context.Context) error {
	s := t.store
	if s.CommitFunc != nil {
		if err := s.CommitFunc(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true

	for userID, version := range t.seen {
		if s.versions[userID] != version {
			s.rollbacks++
			return fmt.Errorf("%w: ledger of %s changed", domain.ErrConflict, userID)
		}
	}

	s.entries = append(s.entries, t.entries...)
	s.purchases = append(s.purchases, t.purchases...)
	s.events = append(s.events, t.events...)
	for _, e := range t.entries {
		s.versions[e.UserID]++
	}
	s.commits++

	return nil
}

// Rollback discards the pending writes.
func (t *memoryTx) Rollback(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if !t.done {
		t.done = true
		t.store.rollbacks++
	}
	return nil
}

func asMemoryTx(tx usecase.Transaction) *memoryTx {
	mtx, ok := tx.(*memoryTx)
	if !ok {
		panic(fmt.Sprintf("unexpected transaction type %T", tx))
	}
	return mtx
}

// GetByID retrieves a product by ID.
func (s *LedgerStore) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// GetByIDTx retrieves a product by ID inside a transaction.
func (s *LedgerStore) GetByIDTx(ctx context.Context, _ usecase.Transaction, id string) (*domain.Product, error) {
	return s.GetByID(ctx, id)
}

// Append stages a ledger entry.
func (s *LedgerStore) Append(_ context.Context, tx usecase.Transaction, entry *domain.TransactionEntry) error {
	mtx := asMemoryTx(tx)
	s.mu.Lock()
	defer s.mu.Unlock()
	mtx.observe(entry.UserID)
	mtx.entries = append(mtx.entries, entry)
	return nil
}

// Balance sums committed entries.
func (s *LedgerStore) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if s.BalanceFunc != nil {
		return s.BalanceFunc(ctx, userID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(userID, nil), nil
}

// BalanceTx sums committed entries plus the transaction's own pending ones.
func (s *LedgerStore) BalanceTx(_ context.Context, tx usecase.Transaction, userID string) (decimal.Decimal, error) {
	mtx := asMemoryTx(tx)
	s.mu.Lock()
	defer s.mu.Unlock()
	mtx.observe(userID)
	return s.sumLocked(userID, mtx.entries), nil
}

func (s *LedgerStore) sumLocked(userID string, pending []*domain.TransactionEntry) decimal.Decimal {
	var mine []*domain.TransactionEntry
	for _, e := range append(append([]*domain.TransactionEntry(nil), s.entries...), pending...) {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	return domain.SumEntries(mine)
}

// Create stages a purchase record.
func (s *LedgerStore) Create(_ context.Context, tx usecase.Transaction, purchase *domain.Purchase) error {
	mtx := asMemoryTx(tx)
	s.mu.Lock()
	defer s.mu.Unlock()
	mtx.purchases = append(mtx.purchases, purchase)
	return nil
}

// ListByUser lists committed purchases of a user, newest first.
func (s *LedgerStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Purchase
	for _, p := range s.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return []*domain.Purchase{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Outbox returns an OutboxRepository view of the store.
func (s *LedgerStore) Outbox() usecase.OutboxRepository {
	return &memoryOutbox{store: s}
}

type memoryOutbox struct {
	store *LedgerStore
}

func (o *memoryOutbox) Create(_ context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	mtx := asMemoryTx(tx)
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	mtx.events = append(mtx.events, event)
	return nil
}

func (o *memoryOutbox) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range o.store.events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *memoryOutbox) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for _, e := range o.store.events {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

// ConflictRetrier retries operations failing with domain.ErrConflict, without sleeping.
type ConflictRetrier struct {
	MaxAttempts int
}

// NewConflictRetrier creates a ConflictRetrier.
func NewConflictRetrier(maxAttempts int) *ConflictRetrier {
	return &ConflictRetrier{MaxAttempts: maxAttempts}
}

// Retry runs operation until it succeeds, fails permanently or runs out of attempts.
func (r *ConflictRetrier) Retry(ctx context.Context, operation func() error) error {
	var err error
	for attempt := 0; attempt < r.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = operation()
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	prefix       string
	counter      int
	mu           sync.Mutex
}

// NewMockIDGenerator returns a generator of sequential IDs.
func NewMockIDGenerator(prefix string) *MockIDGenerator {
	return &MockIDGenerator{prefix: prefix}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.prefix + strconv.Itoa(m.counter)
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
	Committed    bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
	Tx        *MockTransaction
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{Tx: &MockTransaction{}}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return m.Tx, nil
}

func (m *MockTransactionManager) BeginSerializable(ctx context.Context) (usecase.Transaction, error) {
	return m.Begin(ctx)
}
