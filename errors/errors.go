package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a failure class. Each code maps to one HTTP status.
type ErrorCode int

// System errors (1000-1999)
const (
	ErrInternal ErrorCode = 1000 + iota
	ErrDatabase
)

// Auth errors (2000-2999)
const (
	ErrUnauthorized ErrorCode = 2000 + iota
	ErrForbidden
	ErrInvalidCredentials
)

// Request errors (3000-3999)
const (
	ErrValidation ErrorCode = 3000 + iota
	ErrMissingFields
	ErrNotFound
	ErrConflict
)

// Campaign errors (4000-4999)
const (
	ErrInvalidGoal ErrorCode = 4000 + iota
	ErrInvalidDonation
	ErrExceedsRemaining
	ErrInvalidRecipient
	ErrInvalidTransition
)

type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, apperrors.New(apperrors.ErrNotFound, "")).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// HasCode reports whether err carries code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
