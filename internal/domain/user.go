package domain

import "time"

// User represents a registered buyer.
type User struct {
	ID             string
	Username       string
	HashedPassword string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Session is a server-side login session. It is revoked by moving ExpiresAt to the past.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsActive reports whether the session can still authenticate requests at now.
func (s *Session) IsActive(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
