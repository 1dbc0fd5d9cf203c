package parcelhub

import (
	"errors"
	"fmt"
)

// Error represents a parcelhub error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for parcelhub operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates a store operation failed outside of notification persistence.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeAuthentication indicates a missing or invalid credential token.
	// The offending client is disconnected without any payload.
	ErrCodeAuthentication = "AUTHENTICATION_FAILURE"

	// ErrCodeIdentityNotFound indicates a valid token referencing a deleted or inactive identity.
	ErrCodeIdentityNotFound = "IDENTITY_NOT_FOUND"

	// ErrCodePersistence indicates the notification store write failed.
	// No live event is emitted for the record.
	ErrCodePersistence = "PERSISTENCE_FAILURE"

	// ErrCodeStateViolation indicates a connection was addressed after teardown.
	// Core operations treat it as a no-op; it only surfaces from Conn implementations.
	ErrCodeStateViolation = "INTERNAL_STATE_VIOLATION"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrMissingToken is returned when a connection arrives without a credential token.
	ErrMissingToken = &Error{
		Code:    ErrCodeAuthentication,
		Message: "credential token is required",
	}

	// ErrConnectionClosed is returned by Conn.Send after the connection was closed.
	ErrConnectionClosed = &Error{
		Code:    ErrCodeStateViolation,
		Message: "connection is closed",
	}

	// ErrSendQueueFull is returned by Conn.Send when the outbound queue has no room.
	ErrSendQueueFull = &Error{
		Code:    ErrCodeStateViolation,
		Message: "outbound queue is full",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// HasCode reports whether err is (or wraps) a parcelhub Error with the given code.
func HasCode(err error, code string) bool {
	var hubErr *Error
	if errors.As(err, &hubErr) {
		return hubErr.Code == code
	}
	return false
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	return HasCode(err, ErrCodeNoData) || errors.Is(err, ErrNoData)
}

// IsAuthenticationFailure checks if an error is an authentication failure.
func IsAuthenticationFailure(err error) bool {
	return HasCode(err, ErrCodeAuthentication)
}

// IsIdentityNotFound checks if an error reports a deleted or inactive identity.
func IsIdentityNotFound(err error) bool {
	return HasCode(err, ErrCodeIdentityNotFound)
}

// IsPersistenceFailure checks if an error reports a failed notification write.
func IsPersistenceFailure(err error) bool {
	return HasCode(err, ErrCodePersistence)
}

// IsValidation checks if an error is a validation failure.
func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

// errorCode extracts the code of a parcelhub Error, or "UNKNOWN".
func errorCode(err error) string {
	var hubErr *Error
	if errors.As(err, &hubErr) {
		return hubErr.Code
	}
	return "UNKNOWN"
}
