package store

import (
	"errors"
	"fmt"
)

// ErrEmptyContent is returned by AppendMessage when the message content
// is empty. Messages must carry non-empty text at creation.
var ErrEmptyContent = errors.New("message content cannot be empty")

// NotFoundError indicates that a conversation does not exist.
type NotFoundError struct {
	// ConversationID is the id that was looked up.
	ConversationID int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation %d not found", e.ConversationID)
}

// InvalidRoleError indicates a role outside the closed enumeration.
type InvalidRoleError struct {
	// Role is the rejected value.
	Role Role
}

// Error implements the error interface.
func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid message role %q (must be user, assistant, or system)", e.Role)
}

// StorageError wraps a failure of the underlying persistence engine.
type StorageError struct {
	// Op is the store operation that failed.
	Op string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err indicates a missing conversation.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
