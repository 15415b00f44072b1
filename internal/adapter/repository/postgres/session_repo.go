package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/infrastructure/postgres/generated"
	"github.com/iho/marketplace/internal/usecase"
)

// SessionRepository implements usecase.SessionRepository.
type SessionRepository struct {
	queries *generated.Queries
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db generated.DBTX) *SessionRepository {
	return &SessionRepository{queries: generated.New(db)}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	return translateError(r.queries.CreateSession(ctx, generated.CreateSessionParams{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: timeToPgTimestamptz(session.ExpiresAt),
		CreatedAt: timeToPgTimestamptz(session.CreatedAt),
	}))
}

// GetByID retrieves a session, expired or not.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row, err := r.queries.GetSessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, translateError(err)
	}

	return &domain.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		ExpiresAt: row.ExpiresAt.Time,
		CreatedAt: row.CreatedAt.Time,
	}, nil
}

// Expire ends a session at the given time. Already expired sessions are left alone.
func (r *SessionRepository) Expire(ctx context.Context, id string, at time.Time) error {
	return translateError(r.queries.ExpireSession(ctx, generated.ExpireSessionParams{
		ID:        id,
		ExpiresAt: timeToPgTimestamptz(at),
	}))
}

// ExpireAllForUserTx ends every active session of a user within a transaction.
func (r *SessionRepository) ExpireAllForUserTx(ctx context.Context, tx usecase.Transaction, userID string, at time.Time) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	return translateError(queries.ExpireUserSessions(ctx, generated.ExpireUserSessionsParams{
		UserID:    userID,
		ExpiresAt: timeToPgTimestamptz(at),
	}))
}
