package domain

import "errors"

// Error taxonomy. Handlers classify with errors.Is, so adapters wrap rather than replace these.
var (
	ErrValidation = errors.New("validation failed")

	// Ledger errors
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidPrice      = errors.New("price must be positive")

	// ErrConflict marks a serialization failure or deadlock detected by the store.
	// It is retried internally and never reaches the caller as-is.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrUnavailable means a downstream collaborator was unreachable, timed out,
	// or kept conflicting past the retry budget.
	ErrUnavailable = errors.New("service unavailable")

	// Catalog errors
	ErrCacheMiss = errors.New("cache miss")

	// Account errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordMismatch   = errors.New("old password is incorrect")
	ErrPasswordReused     = errors.New("new password matches old password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session has expired")

	// Authentication errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
