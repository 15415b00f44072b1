package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a single purchase attempt against the store.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultSessionTTL is how long a login session stays valid.
	DefaultSessionTTL = time.Hour

	// DefaultCatalogKey is the cache key of the whole catalog snapshot.
	DefaultCatalogKey = "skinport_items_min_prices"

	// DefaultCatalogTTL is how long a catalog snapshot counts as fresh.
	DefaultCatalogTTL = time.Hour

	// DefaultRefreshTimeout bounds a detached background catalog refresh.
	DefaultRefreshTimeout = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// Purchase outcomes reported to PurchaseRecorder.
const (
	OutcomeSuccess           = "success"
	OutcomeNotFound          = "not_found"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeUnavailable       = "unavailable"
	OutcomeError             = "error"
)

// Catalog read states reported to CatalogRecorder.
const (
	CatalogStateFresh = "fresh"
	CatalogStateStale = "stale"
	CatalogStateMiss  = "miss"
	CatalogStateError = "error"
)
