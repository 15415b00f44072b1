package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/infrastructure/postgres/generated"
	"github.com/iho/marketplace/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository over the transactions table.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// Append writes a ledger entry within a transaction.
func (r *LedgerRepository) Append(ctx context.Context, tx usecase.Transaction, entry *domain.TransactionEntry) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	err := queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Amount:    decimalToNumeric(entry.Amount),
		CreatedAt: timeToPgTimestamptz(entry.CreatedAt),
	})

	return translateError(err)
}

// Balance sums the user's committed entries.
func (r *LedgerRepository) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return sumEntries(ctx, r.queries, userID)
}

// BalanceTx sums the user's entries as seen by the transaction. At SERIALIZABLE
// isolation the read registers a predicate lock on the user's rows.
func (r *LedgerRepository) BalanceTx(ctx context.Context, tx usecase.Transaction, userID string) (decimal.Decimal, error) {
	return sumEntries(ctx, generated.New(tx.(*Tx).PgxTx()), userID)
}

func sumEntries(ctx context.Context, q *generated.Queries, userID string) (decimal.Decimal, error) {
	sum, err := q.SumTransactionsByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	return numericToDecimal(sum), nil
}
