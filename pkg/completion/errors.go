package completion

import (
	"fmt"
	"time"
)

// ConfigError indicates an invalid client configuration.
// It is returned by New, never by per-request operations.
type ConfigError struct {
	// Field is the configuration field that is invalid.
	Field string

	// Message describes the configuration error.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("completion client configuration error for field %q: %s", e.Field, e.Message)
}

// StatusError indicates a non-success HTTP status received before any
// streaming began. It carries the status code and the upstream-supplied
// message, extracted from a structured error body when possible.
type StatusError struct {
	// StatusCode is the upstream HTTP status code.
	StatusCode int

	// Message is the upstream error message (or the raw body).
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.StatusCode, e.Message)
}

// StreamError indicates a failure after streaming started. The fragments
// already delivered remain valid; the stream cannot be resumed.
type StreamError struct {
	// Message describes where the stream broke down.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("completion stream error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("completion stream error: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// ConnectError indicates that the connect phase failed after exhausting
// all retry attempts.
type ConnectError struct {
	// Attempts is the number of attempts made.
	Attempts int

	// Timeout is the configured per-request timeout.
	Timeout time.Duration

	// Cause is the last underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("completion connect failed after %d attempts: %v", e.Attempts, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ConnectError) Unwrap() error {
	return e.Cause
}
