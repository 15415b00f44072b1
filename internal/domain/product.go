package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a purchasable item. Read-only from the ledger's perspective.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	CreatedAt time.Time
}

// Validate checks the product invariant: price is strictly positive.
func (p *Product) Validate() error {
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}

// Purchase is the append-only audit record of one committed purchase.
type Purchase struct {
	ID        string
	UserID    string
	ProductID string
	Price     decimal.Decimal
	CreatedAt time.Time
}
