package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/iho/marketplace/internal/adapter/http/dto"
	"github.com/iho/marketplace/internal/domain"
)

// maxBodyBytes bounds request bodies; every request body here is a small JSON object.
const maxBodyBytes = 1 << 20

// Error codes returned in the error field of responses.
const (
	codeValidation         = "validation_failed"
	codeProductNotFound    = "product_not_found"
	codeInsufficientFunds  = "insufficient_funds"
	codeUserExists         = "user_exists"
	codeInvalidCredentials = "invalid_credentials"
	codeUnauthorized       = "unauthorized"
	codeUnavailable        = "unavailable"
	codeInternal           = "internal"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   code,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes and error codes.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, codeProductNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, codeInsufficientFunds
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrPasswordMismatch),
		errors.Is(err, domain.ErrPasswordReused):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, codeUserExists
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidCredentials
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken),
		errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusInternalServerError, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// respondError writes err as a mapped error response. Server errors are logged and
// their text is kept out of the response.
func respondError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status, code := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, code, "")
		return
	}

	writeError(w, status, code, publicMessage(err))
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrPasswordMismatch),
		errors.Is(err, domain.ErrPasswordReused),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInsufficientFunds):
		return rootMessage(err)
	default:
		return ""
	}
}

// rootMessage returns the message of the sentinel at the bottom of err's chain.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// decodeJSON decodes a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: request body must be a single JSON object", domain.ErrValidation)
	}

	return dto.Validate(dst)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
