package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/marketplace/internal/domain"
)

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) *Tx {
	t.Helper()
	pool.ExpectBegin()
	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	require.NoError(t, err)
	return tx.(*Tx)
}

func TestProductRepositoryGetByID(t *testing.T) {
	pool := newMockPool(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	pool.ExpectQuery("SELECT id, name, price, created_at FROM products").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "price", "created_at"}).
			AddRow("p1", "Sticker Capsule", "12.50", created))

	repo := NewProductRepository(pool)
	product, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "p1", product.ID)
	assert.Equal(t, "Sticker Capsule", product.Name)
	assert.True(t, decimal.RequireFromString("12.50").Equal(product.Price), "price %s", product.Price)
	assert.True(t, created.Equal(product.CreatedAt))
	assertExpectations(t, pool)
}

func TestProductRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM products").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := NewProductRepository(pool).GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	assertExpectations(t, pool)
}

func TestProductRepositoryGetByIDTxConflict(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	pool.ExpectQuery("FROM products").
		WithArgs("p1").
		WillReturnError(&pgconn.PgError{Code: pgErrSerializationFailure})

	_, err := NewProductRepository(pool).GetByIDTx(context.Background(), tx, "p1")
	require.ErrorIs(t, err, domain.ErrConflict)
	assertExpectations(t, pool)
}

func TestLedgerRepositoryBalance(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\)").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow("40.00"))

	balance, err := NewLedgerRepository(pool).Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(balance), "balance %s", balance)
	assertExpectations(t, pool)
}

func TestLedgerRepositoryAppendAndBalanceTx(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	pool.ExpectQuery("FROM transactions").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow("100"))
	pool.ExpectExec("INSERT INTO transactions").
		WithArgs("e1", "u1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCommit()

	repo := NewLedgerRepository(pool)
	ctx := context.Background()

	balance, err := repo.BalanceTx(ctx, tx, "u1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(balance))

	entry := domain.NewDebitEntry("e1", "u1", decimal.NewFromInt(60), time.Now())
	require.NoError(t, repo.Append(ctx, tx, entry))
	require.NoError(t, tx.Commit(ctx))

	assertExpectations(t, pool)
}

func TestPurchaseRepository(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	pool.ExpectExec("INSERT INTO purchases").
		WithArgs("pu1", "u1", "p1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCommit()
	pool.ExpectQuery("FROM purchases").
		WithArgs("u1", int32(20), int32(0)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "product_id", "price", "created_at"}).
			AddRow("pu1", "u1", "p1", "60", now))

	repo := NewPurchaseRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, tx, &domain.Purchase{
		ID: "pu1", UserID: "u1", ProductID: "p1", Price: decimal.NewFromInt(60), CreatedAt: now,
	}))
	require.NoError(t, tx.Commit(ctx))

	purchases, err := repo.ListByUser(ctx, "u1", 20, 0)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "pu1", purchases[0].ID)
	assert.True(t, decimal.NewFromInt(60).Equal(purchases[0].Price))
	assertExpectations(t, pool)
}

func TestUserRepositoryCreateDuplicate(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec("INSERT INTO users").
		WithArgs("u1", "alice", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := NewUserRepository(pool).Create(context.Background(), &domain.User{
		ID: "u1", Username: "alice", HashedPassword: "hash",
	})
	require.ErrorIs(t, err, domain.ErrUserExists)
	assertExpectations(t, pool)
}

func TestUserRepositoryGetByUsername(t *testing.T) {
	pool := newMockPool(t)
	now := time.Now().UTC()

	pool.ExpectQuery("FROM users").
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "hashed_password", "created_at", "updated_at"}).
			AddRow("u1", "alice", "hash", now, now))
	pool.ExpectQuery("FROM users").
		WithArgs("bob").
		WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(pool)

	user, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "hash", user.HashedPassword)

	_, err = repo.GetByUsername(context.Background(), "bob")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assertExpectations(t, pool)
}

func TestUserRepositoryUpdatePasswordMissingUser(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	pool.ExpectExec("UPDATE users").
		WithArgs("u1", "new-hash", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewUserRepository(pool).UpdatePasswordTx(context.Background(), tx, "u1", "new-hash", time.Now())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assertExpectations(t, pool)
}

func TestSessionRepository(t *testing.T) {
	pool := newMockPool(t)
	expires := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	created := expires.Add(-time.Hour)

	pool.ExpectQuery("FROM sessions").
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "expires_at", "created_at"}).
			AddRow("s1", "u1", expires, created))
	pool.ExpectQuery("FROM sessions").
		WithArgs("s2").
		WillReturnError(pgx.ErrNoRows)
	pool.ExpectExec("UPDATE sessions").
		WithArgs("s1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	session, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.True(t, expires.Equal(session.ExpiresAt))

	_, err = repo.GetByID(ctx, "s2")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, repo.Expire(ctx, "s1", time.Now()))
	assertExpectations(t, pool)
}

func TestSessionRepositoryExpireAllForUserTx(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	pool.ExpectExec("UPDATE sessions").
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	require.NoError(t, NewSessionRepository(pool).ExpireAllForUserTx(context.Background(), tx, "u1", time.Now()))
	assertExpectations(t, pool)
}

func TestOutboxRepository(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	pool.ExpectExec("INSERT INTO outbox_events").
		WithArgs("ev1", "pu1", domain.AggregateTypePurchase, domain.EventTypePurchaseCompleted, pgxmock.AnyArg(), pgxmock.AnyArg(), false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectQuery("FROM outbox_events").
		WithArgs(int32(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published", "published_at"}).
			AddRow("ev1", "pu1", domain.AggregateTypePurchase, domain.EventTypePurchaseCompleted, []byte(`{"purchase_id":"pu1"}`), now, false, nil))
	pool.ExpectExec("UPDATE outbox_events").
		WithArgs("ev1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewOutboxRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            "ev1",
		AggregateID:   "pu1",
		AggregateType: domain.AggregateTypePurchase,
		EventType:     domain.EventTypePurchaseCompleted,
		Payload:       map[string]any{"purchase_id": "pu1"},
		CreatedAt:     now,
	}))

	events, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pu1", events[0].Payload["purchase_id"])
	assert.Nil(t, events[0].PublishedAt)

	require.NoError(t, repo.MarkPublished(ctx, "ev1", now))
	assertExpectations(t, pool)
}

func TestRepositoryConnectionFailureIsUnavailable(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM transactions").
		WithArgs("u1").
		WillReturnError(context.DeadlineExceeded)

	_, err := NewLedgerRepository(pool).Balance(context.Background(), "u1")
	require.True(t, errors.Is(err, domain.ErrUnavailable), "got %v", err)
}
