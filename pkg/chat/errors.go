package chat

import "fmt"

// ErrorKind classifies request-level failures.
type ErrorKind string

const (
	// KindConversationNotFound: the supplied conversation id does not exist.
	// The request is not redirected to a new conversation.
	KindConversationNotFound ErrorKind = "conversation_not_found"

	// KindEmptyMessage: the inbound message is empty after trimming.
	KindEmptyMessage ErrorKind = "empty_message"

	// KindInternal: a storage or other internal failure.
	KindInternal ErrorKind = "internal"
)

// RequestError is a request-level failure: the request did not reach a
// completed state. It is distinct from a stream-level error, which is
// reported as a non-fatal event while the request still completes.
type RequestError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message is a human-readable description safe to return to callers.
	Message string

	// ConversationID is the resolved conversation id, if resolution
	// succeeded before the failure (0 otherwise).
	ConversationID int64

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("chat request failed (%s): %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *RequestError) Unwrap() error {
	return e.Cause
}
