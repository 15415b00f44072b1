package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/marketplace/internal/domain"
)

// AuthUseCase handles registration, login sessions and password changes
type AuthUseCase struct {
	txManager    TransactionManager
	userRepo     UserRepository
	sessionRepo  SessionRepository
	tokens       TokenManager
	idGen        IDGenerator
	sessionIDGen IDGenerator
	sessionTTL   time.Duration
	bcryptCost   int
	now          func() time.Time
}

// NewAuthUseCase creates a new auth use case
func NewAuthUseCase(
	txManager TransactionManager,
	userRepo UserRepository,
	sessionRepo SessionRepository,
	tokens TokenManager,
	idGen IDGenerator,
	sessionIDGen IDGenerator,
	sessionTTL time.Duration,
) *AuthUseCase {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	return &AuthUseCase{
		txManager:    txManager,
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		tokens:       tokens,
		idGen:        idGen,
		sessionIDGen: sessionIDGen,
		sessionTTL:   sessionTTL,
		bcryptCost:   bcrypt.DefaultCost,
		now:          time.Now,
	}
}

// WithPasswordCost overrides the bcrypt cost
func (uc *AuthUseCase) WithPasswordCost(cost int) *AuthUseCase {
	uc.bcryptCost = cost
	return uc
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username string
	Password string
}

// Register creates a user with a hashed password
func (uc *AuthUseCase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)

	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	existing, err := uc.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	hashedPassword, err := uc.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	user := &domain.User{
		ID:             uc.idGen.Generate(),
		Username:       username,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The unique index still decides a registration race.
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	user.HashedPassword = ""
	return user, nil
}

// LoginInput represents login input
type LoginInput struct {
	Username string
	Password string
}

// LoginResult carries the signed session token
type LoginResult struct {
	Token     string
	Session   *domain.Session
	ExpiresAt time.Time
}

// Login verifies credentials and opens a session
func (uc *AuthUseCase) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)

	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	if err := domain.ValidateLoginPassword(input.Password); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := verifyPassword(user.HashedPassword, input.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := uc.now().UTC()
	session := &domain.Session{
		ID:        uc.sessionIDGen.Generate(),
		UserID:    user.ID,
		ExpiresAt: now.Add(uc.sessionTTL),
		CreatedAt: now,
	}

	if err := uc.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	token, err := uc.tokens.Generate(session)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, Session: session, ExpiresAt: session.ExpiresAt}, nil
}

// Authenticate resolves a token to an active session
func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	sessionID, err := uc.tokens.ParseSessionID(token)
	if err != nil {
		return nil, err
	}

	session, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	if !session.IsActive(uc.now()) {
		return nil, domain.ErrSessionExpired
	}

	return session, nil
}

// Logout expires a single session
func (uc *AuthUseCase) Logout(ctx context.Context, sessionID string) error {
	return uc.sessionRepo.Expire(ctx, sessionID, uc.now().UTC())
}

// ChangePasswordInput represents password change input
type ChangePasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string
}

// ChangePassword replaces the password and expires every active session of the user
func (uc *AuthUseCase) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	if err := domain.ValidateLoginPassword(input.OldPassword); err != nil {
		return err
	}

	if err := domain.ValidatePassword(input.NewPassword); err != nil {
		return err
	}

	user, err := uc.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}

	if err := verifyPassword(user.HashedPassword, input.OldPassword); err != nil {
		return domain.ErrPasswordMismatch
	}

	if verifyPassword(user.HashedPassword, input.NewPassword) == nil {
		return domain.ErrPasswordReused
	}

	hashedPassword, err := uc.hashPassword(input.NewPassword)
	if err != nil {
		return err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := uc.now().UTC()

	if err := uc.userRepo.UpdatePasswordTx(ctx, tx, user.ID, hashedPassword, now); err != nil {
		return err
	}

	if err := uc.sessionRepo.ExpireAllForUserTx(ctx, tx, user.ID, now); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// hashPassword hashes a password using bcrypt
func (uc *AuthUseCase) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword verifies a password against a hash
func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
