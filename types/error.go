package types

import "fmt"

// ErrorCode represents a unified error code across the coordination core.
type ErrorCode string

// Dependency and transport error codes.
const (
	ErrProtocolUnavailable ErrorCode = "PROTOCOL_UNAVAILABLE"
	ErrTimeout             ErrorCode = "TIMEOUT"
	ErrRetryExhausted      ErrorCode = "RETRY_EXHAUSTED"
	ErrCircuitOpen         ErrorCode = "CIRCUIT_OPEN"
)

// Not-found error codes.
const (
	ErrToolNotFound      ErrorCode = "TOOL_NOT_FOUND"
	ErrResourceNotFound  ErrorCode = "RESOURCE_NOT_FOUND"
	ErrNoCapabilityMatch ErrorCode = "NO_CAPABILITY_MATCH"
)

// Budget and lifecycle error codes.
const (
	ErrConcurrencyLimit ErrorCode = "CONCURRENCY_LIMIT"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrNotInitialized   ErrorCode = "NOT_INITIALIZED"
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Protocol  string    `json:"protocol,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProtocol sets the protocol name the error originated from.
func (e *Error) WithProtocol(protocol string) *Error {
	e.Protocol = protocol
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
