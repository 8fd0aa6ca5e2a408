package chat

import (
	"context"

	"parleyhq/parley/pkg/completion"
)

// EventSink receives the per-request event sequence a delivery adapter
// translates onto its transport.
//
// Event order for one request: ConversationResolved once (before any
// persistence), Fragment zero or more times, StreamError at most once.
// The terminal signal (completed or request error) is carried by the
// return values of Orchestrator.Run rather than by the sink, so adapters
// cannot observe a terminal event without also observing the result.
type EventSink interface {
	// ConversationResolved is called once with the conversation the
	// request will run against.
	ConversationResolved(conversationID int64)

	// Fragment is called for each piece of incremental text, in delivery
	// order. The call completes before the next fragment is requested
	// from upstream.
	Fragment(text string)

	// StreamError is called at most once if the upstream stream failed.
	// It does not terminate the request; a completed result follows.
	StreamError(err error)
}

// NopSink discards all events. Useful for callers that only need the
// collected result.
type NopSink struct{}

func (NopSink) ConversationResolved(int64) {}
func (NopSink) Fragment(string)            {}
func (NopSink) StreamError(error)          {}

// Stream is the consume side of one completion exchange.
// *completion.Stream satisfies it.
type Stream interface {
	Recv(ctx context.Context) (string, error)
	Close() error
}

// Completer opens completion streams. It abstracts the concrete client so
// tests can substitute scripted streams.
type Completer interface {
	Open(ctx context.Context, turns []completion.Turn) (Stream, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, turns []completion.Turn) (Stream, error)

// Open implements Completer.
func (f CompleterFunc) Open(ctx context.Context, turns []completion.Turn) (Stream, error) {
	return f(ctx, turns)
}
