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

// ErrConflict indicates that a guarded transition found its precondition already false,
// usually because another actor changed the row first. Callers re-read state instead of retrying.
var ErrConflict = errors.New("state changed concurrently")

// ErrNotOwner indicates that the actor does not hold the review claim it tried to use.
var ErrNotOwner = errors.New("review claim not held by actor")

// ErrInvalidAmount indicates an invoice amount that is missing or not positive.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInsufficientPrecision indicates an amount that does not round cleanly to 2 decimal places.
var ErrInsufficientPrecision = errors.New("amount exceeds 2 decimal places")

// ErrChainMismatch indicates the ledger chain or its projection is internally inconsistent.
// It is fatal for the operation that observed it.
var ErrChainMismatch = errors.New("ledger chain mismatch")

// ErrForbidden indicates the actor's role does not permit the action.
var ErrForbidden = errors.New("action not permitted")

// ErrDependency indicates that an external collaborator (object storage, notification) failed.
var ErrDependency = errors.New("dependency failure")

// AppError carries an HTTP-ish status code together with the underlying cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError wraps err with a status code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validationf builds an ErrValidation carrying an actionable message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StatusCode maps an error to the HTTP status a handler should return.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInsufficientPrecision):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotOwner), errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrDependency):
		return http.StatusBadGateway
	case errors.Is(err, ErrChainMismatch):
		return http.StatusInternalServerError
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
