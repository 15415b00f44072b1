package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/infrastructure/postgres/generated"
	"github.com/iho/marketplace/internal/usecase"
)

// ProductRepository implements usecase.ProductRepository.
type ProductRepository struct {
	queries *generated.Queries
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db generated.DBTX) *ProductRepository {
	return &ProductRepository{queries: generated.New(db)}
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(ctx, r.queries, id)
}

// GetByIDTx retrieves a product by ID within a transaction.
func (r *ProductRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.Product, error) {
	return getProduct(ctx, generated.New(tx.(*Tx).PgxTx()), id)
}

func getProduct(ctx context.Context, q *generated.Queries, id string) (*domain.Product, error) {
	row, err := q.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, translateError(err)
	}

	return &domain.Product{
		ID:        row.ID,
		Name:      row.Name,
		Price:     numericToDecimal(row.Price),
		CreatedAt: row.CreatedAt.Time,
	}, nil
}
