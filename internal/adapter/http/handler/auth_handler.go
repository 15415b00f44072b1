package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/marketplace/internal/adapter/http/dto"
	"github.com/iho/marketplace/internal/adapter/http/middleware"
	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/usecase"
)

// AuthService defines the behavior needed by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	ChangePassword(ctx context.Context, input usecase.ChangePasswordInput) error
}

// AuthRecorder receives authentication telemetry.
type AuthRecorder interface {
	ObserveAuth(operation, status string)
}

type noopAuthRecorder struct{}

func (noopAuthRecorder) ObserveAuth(string, string) {}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authUC       AuthService
	cookieSecure bool
	recorder     AuthRecorder
	logger       zerolog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authUC AuthService, cookieSecure bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authUC:       authUC,
		cookieSecure: cookieSecure,
		recorder:     noopAuthRecorder{},
		logger:       logger,
	}
}

// WithRecorder sets the telemetry sink.
func (h *AuthHandler) WithRecorder(recorder AuthRecorder) *AuthHandler {
	if recorder != nil {
		h.recorder = recorder
	}
	return h
}

// Register creates a user.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if _, err := h.authUC.Register(r.Context(), req.ToUseCaseInput()); err != nil {
		h.recorder.ObserveAuth("register", "failed")
		respondError(w, r, h.logger, err)
		return
	}

	h.recorder.ObserveAuth("register", "ok")
	writeJSON(w, http.StatusCreated, struct{}{})
}

// Login verifies credentials, sets the session cookie and returns the token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.authUC.Login(r.Context(), req.ToUseCaseInput())
	if err != nil {
		h.recorder.ObserveAuth("login", "failed")
		respondError(w, r, h.logger, err)
		return
	}

	h.recorder.ObserveAuth("login", "ok")
	http.SetCookie(w, h.sessionCookie(result.Token, result.ExpiresAt))
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout expires the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	if err := h.authUC.Logout(r.Context(), session.ID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, h.expiredCookie())
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword replaces the password of the current user. Every session of the
// user ends, the current one included.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	var req dto.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.authUC.ChangePassword(r.Context(), req.ToUseCaseInput(session.UserID)); err != nil {
		h.recorder.ObserveAuth("change_password", "failed")
		respondError(w, r, h.logger, err)
		return
	}

	h.recorder.ObserveAuth("change_password", "ok")
	http.SetCookie(w, h.expiredCookie())
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *AuthHandler) sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
