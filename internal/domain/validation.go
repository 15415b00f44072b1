package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants
const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 9
	MaxPasswordLength = 72 // bcrypt ignores anything longer
	MaxPageSize       = 100
	DefaultPageSize   = 20
)

var (
	lowerRegex   = regexp.MustCompile(`[a-z]`)
	upperRegex   = regexp.MustCompile(`[A-Z]`)
	digitRegex   = regexp.MustCompile(`\d`)
	specialRegex = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// ValidateUsername validates a username
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	if len(username) < MinUsernameLength {
		return fmt.Errorf("%w: username must be at least %d characters", ErrValidation, MinUsernameLength)
	}

	if len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username must not exceed %d characters", ErrValidation, MaxUsernameLength)
	}

	return nil
}

// ValidatePassword validates password strength.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}

	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must not exceed %d characters", ErrValidation, MaxPasswordLength)
	}

	var missing []string
	if !lowerRegex.MatchString(password) {
		missing = append(missing, "a lowercase letter")
	}
	if !upperRegex.MatchString(password) {
		missing = append(missing, "an uppercase letter")
	}
	if !digitRegex.MatchString(password) {
		missing = append(missing, "a number")
	}
	if !specialRegex.MatchString(password) {
		missing = append(missing, "a special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: password must contain %s", ErrValidation, strings.Join(missing, ", "))
	}

	return nil
}

// ValidateLoginPassword only checks the length bounds; strength rules apply at registration.
func ValidateLoginPassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be between %d and %d characters", ErrValidation, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

// ValidateID rejects empty identifiers.
func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	return nil
}

// ValidatePagination clamps pagination parameters.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
