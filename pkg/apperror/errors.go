package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal server error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrNotEligible       = errors.New("not eligible")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap keeps the sentinel reachable through errors.Is while replacing the message.
func Wrap(sentinel error, format string, args ...any) error {
	return &AppError{
		Code:    MapErrorToStatus(sentinel),
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	}
}

// EligibilityError is returned when an applicant fails an eligibility rule.
// Reason is machine readable (not-open, full, age, region, kind-mismatch, duplicate).
type EligibilityError struct {
	Reason  string
	Message string
}

func (e *EligibilityError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "not eligible: " + e.Reason
}

func (e *EligibilityError) Unwrap() error {
	return ErrNotEligible
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 && appErr.Err == nil {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidState) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNotEligible) {
		return http.StatusUnprocessableEntity
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
