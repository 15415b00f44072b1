package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/marketplace/internal/domain"
)

// ProductRepository defines read access to the product catalog of the store.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDTx(ctx context.Context, tx Transaction, id string) (*domain.Product, error)
}

// LedgerRepository defines access to the append-only transaction ledger.
// Balances are always derived by summing entries; there is no stored balance.
type LedgerRepository interface {
	Append(ctx context.Context, tx Transaction, entry *domain.TransactionEntry) error
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	BalanceTx(ctx context.Context, tx Transaction, userID string) (decimal.Decimal, error)
}

// PurchaseRepository defines data access for purchase audit records.
type PurchaseRepository interface {
	Create(ctx context.Context, tx Transaction, purchase *domain.Purchase) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Purchase, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePasswordTx(ctx context.Context, tx Transaction, id, hashedPassword string, updatedAt time.Time) error
}

// SessionRepository defines data access for login sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Expire(ctx context.Context, id string, at time.Time) error
	ExpireAllForUserTx(ctx context.Context, tx Transaction, userID string, at time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
	// BeginSerializable starts a transaction at SERIALIZABLE isolation. The store
	// aborts one side of any conflicting pair with domain.ErrConflict.
	BeginSerializable(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation while it fails with a retriable store error.
// Exhausting the budget yields an error wrapping domain.ErrUnavailable.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache is a remote key-value blob store with no locking.
// Get returns domain.ErrCacheMiss when the key is absent.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// PriceSource lists upstream minimum prices, either tradable or not.
type PriceSource interface {
	ListItems(ctx context.Context, tradable bool) ([]domain.MarketItem, error)
}

// TokenManager signs and parses the token that carries a session id.
type TokenManager interface {
	Generate(session *domain.Session) (string, error)
	ParseSessionID(token string) (string, error)
}

// IdempotencyStore remembers the outcome of requests carrying an idempotency key.
type IdempotencyStore interface {
	// Reserve claims key for a request about to run. When the key is already claimed it
	// reports reserved=false together with the stored response, which is nil while the
	// first request is still in flight.
	Reserve(ctx context.Context, key string, ttl time.Duration) (reserved bool, stored []byte, err error)
	// Complete stores the final response under a reserved key.
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a reservation so the request may be retried.
	Release(ctx context.Context, key string) error
}

// PurchaseRecorder receives purchase telemetry.
type PurchaseRecorder interface {
	ObservePurchase(outcome string, duration time.Duration)
	IncPurchaseRetry()
}

// CatalogRecorder receives catalog cache telemetry.
type CatalogRecorder interface {
	ObserveCatalogRead(state string)
	ObserveCatalogRefresh(outcome string, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObservePurchase(string, time.Duration)       {}
func (noopRecorder) IncPurchaseRetry()                           {}
func (noopRecorder) ObserveCatalogRead(string)                   {}
func (noopRecorder) ObserveCatalogRefresh(string, time.Duration) {}
