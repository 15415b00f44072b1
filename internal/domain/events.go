package domain

import "time"

// Event types
const (
	EventTypePurchaseCompleted = "purchase.completed"
	EventTypeUserRegistered    = "user.registered"
)

// Aggregate types
const (
	AggregateTypePurchase = "purchase"
	AggregateTypeUser     = "user"
)

// OutboxEvent is written in the same transaction as the state change it describes
// and published asynchronously.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// PurchaseCompletedEvent payload
type PurchaseCompletedEvent struct {
	PurchaseID string `json:"purchase_id"`
	UserID     string `json:"user_id"`
	ProductID  string `json:"product_id"`
	Price      string `json:"price"`
	OccurredAt string `json:"occurred_at"`
}

// ToPayload converts the event into an outbox payload.
func (e PurchaseCompletedEvent) ToPayload() map[string]any {
	return map[string]any{
		"purchase_id": e.PurchaseID,
		"user_id":     e.UserID,
		"product_id":  e.ProductID,
		"price":       e.Price,
		"occurred_at": e.OccurredAt,
	}
}
