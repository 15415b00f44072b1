package postgres

import (
	"context"

	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/infrastructure/postgres/generated"
	"github.com/iho/marketplace/internal/usecase"
)

// PurchaseRepository implements usecase.PurchaseRepository.
type PurchaseRepository struct {
	queries *generated.Queries
}

// NewPurchaseRepository creates a new PurchaseRepository.
func NewPurchaseRepository(db generated.DBTX) *PurchaseRepository {
	return &PurchaseRepository{queries: generated.New(db)}
}

// Create records a purchase within a transaction.
func (r *PurchaseRepository) Create(ctx context.Context, tx usecase.Transaction, purchase *domain.Purchase) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	err := queries.CreatePurchase(ctx, generated.CreatePurchaseParams{
		ID:        purchase.ID,
		UserID:    purchase.UserID,
		ProductID: purchase.ProductID,
		Price:     decimalToNumeric(purchase.Price),
		CreatedAt: timeToPgTimestamptz(purchase.CreatedAt),
	})

	return translateError(err)
}

// ListByUser lists a user's purchases, newest first.
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Purchase, error) {
	rows, err := r.queries.ListPurchasesByUser(ctx, generated.ListPurchasesByUserParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, translateError(err)
	}

	purchases := make([]*domain.Purchase, 0, len(rows))
	for _, row := range rows {
		purchases = append(purchases, &domain.Purchase{
			ID:        row.ID,
			UserID:    row.UserID,
			ProductID: row.ProductID,
			Price:     numericToDecimal(row.Price),
			CreatedAt: row.CreatedAt.Time,
		})
	}

	return purchases, nil
}
