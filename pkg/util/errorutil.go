package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors. Code values follow the
// response envelope contract (AUTH_REQUIRED, RATE_LIMIT, ...).
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewInvalidInput(message string, details map[string]any) error {
	return NewDomainError("INVALID_INPUT", message, http.StatusBadRequest, details)
}

func NewInvalidJSON(message string) error {
	return NewDomainError("INVALID_JSON", message, http.StatusBadRequest, nil)
}

func NewInvalidAction(action string) error {
	return NewDomainError("INVALID_ACTION", fmt.Sprintf("unknown action %q", action), http.StatusBadRequest, map[string]any{"action": action})
}

func NewAuthRequired(message string) error {
	return NewDomainError("AUTH_REQUIRED", message, http.StatusUnauthorized, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

func NewAccountPending() error {
	return NewDomainError("ACCOUNT_PENDING", "account pending admin approval", http.StatusForbidden, nil)
}

func NewAccountDisabled() error {
	return NewDomainError("ACCOUNT_DISABLED", "account disabled", http.StatusForbidden, nil)
}

// NewAccountExpired reports a lapsed validity window along with the moment
// it expired.
func NewAccountExpired(expiredAt time.Time) error {
	return NewDomainError("ACCOUNT_EXPIRED", "account validity expired", http.StatusForbidden, map[string]any{
		"expiredAt": expiredAt.UTC().Format(time.RFC3339),
	})
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewInsufficientRole(required string) error {
	return NewDomainError("INSUFFICIENT_ROLE", fmt.Sprintf("%s role required", required), http.StatusForbidden, map[string]any{"required": required})
}

func NewEmailExists(email string) error {
	return NewDomainError("EMAIL_EXISTS", "email already registered", http.StatusConflict, map[string]any{"email": email})
}

func NewInvalidOTP() error {
	return NewDomainError("INVALID_OTP", "code invalid or expired", http.StatusBadRequest, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

// NewRateLimit reports an exhausted window; retryAfter is whole seconds
// until the window resets.
func NewRateLimit(retryAfter int) error {
	return NewDomainError("RATE_LIMIT", "rate limit exceeded", http.StatusTooManyRequests, map[string]any{
		"retryAfter": retryAfter,
	})
}

func NewVersionConflict(resource string) error {
	return NewDomainError("VERSION_CONFLICT", fmt.Sprintf("%s was modified concurrently", resource), http.StatusConflict, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "SERVER_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError resolves any error to a DomainError: wrapped DomainErrors
// surface as themselves, pgx row misses become NOT_FOUND, everything else
// is a SERVER_ERROR carrying the cause.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, pgx.ErrNoRows):
		return NewDomainError("NOT_FOUND", "resource not found", http.StatusNotFound, nil)
	default:
		return &DomainError{
			Code:       "SERVER_ERROR",
			Message:    "internal server error",
			HTTPStatus: http.StatusInternalServerError,
			Err:        err,
		}
	}
}

// MapError is ToDomainError for call sites returning plain errors.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
