package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewDebitEntry(t *testing.T) {
	at := time.Now().UTC()
	entry := NewDebitEntry("e-1", "user-1", decimal.NewFromInt(60), at)

	if !entry.Amount.Equal(decimal.NewFromInt(-60)) {
		t.Errorf("expected debit amount -60, got %s", entry.Amount)
	}

	if entry.UserID != "user-1" || !entry.CreatedAt.Equal(at) {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestSumEntries(t *testing.T) {
	entries := []*TransactionEntry{
		{Amount: decimal.NewFromInt(100)},
		{Amount: decimal.NewFromInt(-60)},
		{Amount: decimal.RequireFromString("0.5")},
	}

	balance := SumEntries(entries)

	expected := decimal.RequireFromString("40.5")
	if !balance.Equal(expected) {
		t.Errorf("expected balance %s, got %s", expected, balance)
	}

	if !SumEntries(nil).Equal(decimal.Zero) {
		t.Errorf("expected empty ledger to sum to zero")
	}
}

func TestCanAfford(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		price   int64
		want    bool
	}{
		{name: "balance exceeds price", balance: 100, price: 60, want: true},
		{name: "balance equals price", balance: 60, price: 60, want: true},
		{name: "balance below price", balance: 40, price: 60, want: false},
		{name: "empty ledger", balance: 0, price: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAfford(decimal.NewFromInt(tt.balance), decimal.NewFromInt(tt.price))
			if got != tt.want {
				t.Errorf("CanAfford(%d, %d) = %v, want %v", tt.balance, tt.price, got, tt.want)
			}
		})
	}
}

func TestProduct_Validate(t *testing.T) {
	if err := (&Product{Price: decimal.NewFromInt(5)}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := (&Product{Price: decimal.Zero}).Validate(); err != ErrInvalidPrice {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestSession_IsActive(t *testing.T) {
	now := time.Now()

	if !(&Session{ExpiresAt: now.Add(time.Hour)}).IsActive(now) {
		t.Error("expected future expiry to be active")
	}

	if (&Session{ExpiresAt: now}).IsActive(now) {
		t.Error("expected session expiring now to be inactive")
	}
}
