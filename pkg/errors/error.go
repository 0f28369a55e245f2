// Package errors carries the structured error type used across the module.
// Every error holds a numbered ErrorCode identifying its subsystem:
// validation (100s), data/feed (200s), indicator (300s), strategy (400s),
// order/broker (500s), backtest (600s) and market data (700s). Warm-up
// shortfalls in rolling calculations are signalled separately through
// InsufficientDataError so callers can abstain instead of failing.
package errors

import (
	"errors"
	"fmt"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return newError(code, message, nil)
}

// Newf creates an Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return newError(code, fmt.Sprintf(format, args...), nil)
}

// Wrap attaches a code and message to an existing cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return newError(code, message, cause)
}

// Wrapf attaches a code and formatted message to an existing cause.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return newError(code, fmt.Sprintf(format, args...), cause)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// GetCode extracts the ErrorCode from any error in err's chain.
// Returns ErrCodeUnknown when no *Error is present.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode reports whether err carries the given ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientDataError signals that a calculation has less history than it
// needs, typically a rolling indicator still inside its warm-up window.
type InsufficientDataError struct {
	Required int    // Minimum data points required
	Actual   int    // Actual data points available
	Symbol   string // Optional: symbol context
	Message  string // Human-readable message
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  message,
	}
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a
// formatted message.
func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError reports whether any error in err's chain is an
// InsufficientDataError.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}
