package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionEntry is one signed, immutable line of a user's ledger.
// Negative amounts are debits. A user's balance is the sum of their entries.
type TransactionEntry struct {
	ID        string
	UserID    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// NewDebitEntry builds the entry that charges price to userID.
func NewDebitEntry(id, userID string, price decimal.Decimal, at time.Time) *TransactionEntry {
	return &TransactionEntry{
		ID:        id,
		UserID:    userID,
		Amount:    price.Neg(),
		CreatedAt: at,
	}
}

// SumEntries derives a balance from ledger entries.
func SumEntries(entries []*TransactionEntry) decimal.Decimal {
	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Amount)
	}
	return balance
}

// CanAfford reports whether debiting price from balance keeps it non-negative.
func CanAfford(balance, price decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(price)
}
