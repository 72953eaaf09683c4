package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the caller is authenticated but lacks permission for the action.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrRefreshTokenExpired indicates the stored refresh token is past its expiry.
var ErrRefreshTokenExpired = errors.New("refresh token expired")

// ErrConflict indicates the request conflicts with the current state of the resource.
var ErrConflict = errors.New("conflict with current state")

// ErrInvariantViolation indicates an aggregate invariant would be broken by the operation.
var ErrInvariantViolation = errors.New("invariant violation")

// ErrConcurrencyConflict indicates the aggregate was modified by another writer.
var ErrConcurrencyConflict = errors.New("aggregate was modified concurrently")

// ErrLockNotAcquired indicates the aggregate lock could not be obtained in time.
var ErrLockNotAcquired = errors.New("aggregate lock not acquired")

// ErrInternal is returned when the cause should not be exposed to the caller.
var ErrInternal = errors.New("internal error")

// DomainError is a structured business rule failure with a machine readable code.
// Kind links it to one of the sentinel errors above so callers can use errors.Is.
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Kind    error          `json:"-"`
}

// NewDomainError creates a DomainError of the given kind.
func NewDomainError(kind error, code, message string, data map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Data: data, Kind: kind}
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// AppError is an error with an HTTP status code, used at the handler boundary.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// NewAppError creates a new AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrValidation)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, ErrUnauthorized)
}

func NewInternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, message, ErrInternal)
}

func NewGatewayTimeoutError(message string) *AppError {
	return NewAppError(http.StatusGatewayTimeout, message, nil)
}

// StatusCode maps an error to the HTTP status it should be reported with.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict), errors.Is(err, ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvariantViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrLockNotAcquired):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
