package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/marketplace/internal/domain"
)

type authenticatorFunc func(ctx context.Context, token string) (*domain.Session, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	return f(ctx, token)
}

func sessionFor(token string) authenticatorFunc {
	return func(ctx context.Context, got string) (*domain.Session, error) {
		if got != token {
			return nil, domain.ErrInvalidToken
		}
		return &domain.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		auth       authenticatorFunc
		wantStatus int
	}{
		{
			name: "cookie",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})
			},
			auth:       sessionFor("tok"),
			wantStatus: http.StatusOK,
		},
		{
			name: "bearer header",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer tok")
			},
			auth:       sessionFor("tok"),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing credentials",
			prepare:    func(r *http.Request) {},
			auth:       sessionFor("tok"),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "malformed header",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic abc")
			},
			auth:       sessionFor("tok"),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired session",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer tok")
			},
			auth: func(ctx context.Context, token string) (*domain.Session, error) {
				return nil, domain.ErrSessionExpired
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "store failure",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer tok")
			},
			auth: func(ctx context.Context, token string) (*domain.Session, error) {
				return nil, errors.New("db down")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var session *domain.Session
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				session, _ = GetSessionFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me/balance", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()

			AuthMiddleware(tt.auth, zerolog.Nop())(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus == http.StatusOK && (session == nil || session.UserID != "u1") {
				t.Fatalf("expected session in context, got %+v", session)
			}
		})
	}
}

func TestGetSessionFromContextEmpty(t *testing.T) {
	if _, ok := GetSessionFromContext(context.Background()); ok {
		t.Fatalf("expected no session")
	}
}
