package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/marketplace/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BalanceResponse represents the derived balance of a user.
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// PurchaseResponse is returned by a committed purchase.
type PurchaseResponse struct {
	Balance  decimal.Decimal `json:"balance"`
	Purchase *PurchaseRecord `json:"purchase"`
}

// PurchaseRecord represents a purchase in API responses.
type PurchaseRecord struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// PurchaseFromDomain converts a domain purchase to a response.
func PurchaseFromDomain(p *domain.Purchase) *PurchaseRecord {
	return &PurchaseRecord{
		ID:        p.ID,
		ProductID: p.ProductID,
		Price:     p.Price,
		CreatedAt: p.CreatedAt,
	}
}

// PurchasesFromDomain converts domain purchases to responses.
func PurchasesFromDomain(purchases []*domain.Purchase) []*PurchaseRecord {
	result := make([]*PurchaseRecord, len(purchases))
	for i, p := range purchases {
		result[i] = PurchaseFromDomain(p)
	}
	return result
}

// PurchaseListResponse is a page of purchases.
type PurchaseListResponse struct {
	Purchases []*PurchaseRecord `json:"purchases"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}
