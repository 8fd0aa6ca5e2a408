package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"parleyhq/parley/pkg/completion"
	"parleyhq/parley/pkg/store"
	"parleyhq/parley/pkg/telemetry/metrics"
)

// DefaultFallbackMessage is persisted as the assistant turn when the stream
// yields no usable content.
const DefaultFallbackMessage = "I'm sorry, I couldn't generate a response."

// Request is the wire-level chat request consumed by the orchestrator.
type Request struct {
	// Message is the inbound user text. Must be non-empty after trimming.
	Message string `json:"message"`

	// ConversationID selects an existing conversation. Nil creates a new
	// one with the default title.
	ConversationID *int64 `json:"conversation_id"`
}

// Result is the terminal outcome of a completed request.
type Result struct {
	// ConversationID is the resolved conversation.
	ConversationID int64

	// UserMessage is the persisted user turn.
	UserMessage store.Message

	// AssistantMessage is the persisted assistant turn: the concatenated
	// stream output, or the fallback text if the stream yielded nothing.
	AssistantMessage store.Message

	// StreamErr is the non-fatal upstream error, if the stream failed.
	// The request still completed; the same error was already delivered
	// to the sink.
	StreamErr error
}

// Orchestrator coordinates the transcript store and the completion client
// for one chat request at a time. It is stateless across requests and safe
// for concurrent use.
type Orchestrator struct {
	store        store.TranscriptStore
	completer    Completer
	fallback     string
	defaultTitle string
	metrics      *metrics.ChatMetrics
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFallbackMessage overrides the fallback assistant text.
func WithFallbackMessage(text string) Option {
	return func(o *Orchestrator) {
		if text != "" {
			o.fallback = text
		}
	}
}

// WithDefaultTitle sets the title given to conversations created implicitly
// by a request without a conversation id. Empty keeps the store's default.
func WithDefaultTitle(title string) Option {
	return func(o *Orchestrator) {
		o.defaultTitle = title
	}
}

// WithMetrics wires chat metrics into the orchestrator.
func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates a session orchestrator.
func NewOrchestrator(ts store.TranscriptStore, completer Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     ts,
		completer: completer,
		fallback:  DefaultFallbackMessage,
		logger:    slog.Default().With("component", "chat"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one chat request against the store and the completion
// client, emitting events to sink as the request progresses.
//
// On success it returns a Result whose messages are the two turns persisted
// by this request; Result.StreamErr carries the upstream failure if the
// stream broke after opening. On a request-level failure it returns a
// *RequestError and guarantees that either both turns or no turns were
// persisted, except for an assistant-append storage failure, which is
// surfaced as a request error even though the user turn was already stored.
// A history-read failure after the user turn is stored does not abort: it is
// treated like a stream failure and paired with the fallback text.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink EventSink) (*Result, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, &RequestError{
			Kind:    KindEmptyMessage,
			Message: "Message cannot be empty",
		}
	}

	// Resolving.
	conv, reqErr := o.resolve(ctx, req.ConversationID)
	if reqErr != nil {
		return nil, reqErr
	}
	sink.ConversationResolved(conv.ID)

	// Persisting the user turn. A failure here aborts the request before
	// anything is sent upstream.
	userMsg, err := o.store.AppendMessage(ctx, conv.ID, store.RoleUser, text)
	if err != nil {
		return nil, &RequestError{
			Kind:           KindInternal,
			Message:        "Failed to save message",
			ConversationID: conv.ID,
			Cause:          err,
		}
	}
	o.metrics.RecordMessage(string(store.RoleUser))
	o.logger.Debug("user message persisted",
		"conversation_id", conv.ID,
		"message_id", userMsg.ID,
	)

	// Fresh read of the full history, including the turn just appended.
	var reply string
	var streamErr error
	history, err := o.store.ListMessages(ctx, conv.ID)
	if err != nil {
		// The user turn is already stored; aborting here would leave it
		// unpaired. Treated like a stream failure so the fallback text
		// pairs the turn and the error reaches the sink.
		streamErr = fmt.Errorf("failed to load conversation history: %w", err)
	} else {
		turns := make([]completion.Turn, len(history))
		for i, m := range history {
			turns[i] = completion.Turn{Role: string(m.Role), Content: m.Content}
		}

		// Streaming. A failure never discards what was already accumulated.
		reply, streamErr = o.stream(ctx, turns, sink)
	}

	content := strings.TrimSpace(reply)
	if content == "" {
		content = o.fallback
		if streamErr != nil {
			o.logger.Warn("stream failed before yielding content, persisting fallback",
				"conversation_id", conv.ID,
				"error", streamErr,
			)
		} else {
			o.logger.Warn("stream yielded no content, persisting fallback",
				"conversation_id", conv.ID,
			)
		}
	}

	// Persisting the assistant turn. Detached from request cancellation so
	// a dropped client connection cannot leave the user turn unpaired.
	asstMsg, err := o.store.AppendMessage(context.WithoutCancel(ctx), conv.ID, store.RoleAssistant, content)
	if err != nil {
		return nil, &RequestError{
			Kind:           KindInternal,
			Message:        "Failed to save assistant response",
			ConversationID: conv.ID,
			Cause:          err,
		}
	}
	o.metrics.RecordMessage(string(store.RoleAssistant))

	if streamErr != nil {
		sink.StreamError(streamErr)
	}

	o.logger.Info("chat request completed",
		"conversation_id", conv.ID,
		"response_len", len(content),
		"stream_error", streamErr != nil,
	)

	return &Result{
		ConversationID:   conv.ID,
		UserMessage:      *userMsg,
		AssistantMessage: *asstMsg,
		StreamErr:        streamErr,
	}, nil
}

// resolve looks up the supplied conversation or creates a new one.
func (o *Orchestrator) resolve(ctx context.Context, id *int64) (*store.Conversation, *RequestError) {
	if id == nil {
		conv, err := o.store.CreateConversation(ctx, o.defaultTitle)
		if err != nil {
			return nil, &RequestError{
				Kind:    KindInternal,
				Message: "Failed to create conversation",
				Cause:   err,
			}
		}
		o.logger.Info("conversation created", "conversation_id", conv.ID)
		return conv, nil
	}

	conv, err := o.store.GetConversation(ctx, *id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, &RequestError{
				Kind:           KindConversationNotFound,
				Message:        err.Error(),
				ConversationID: *id,
				Cause:          err,
			}
		}
		return nil, &RequestError{
			Kind:           KindInternal,
			Message:        "Failed to load conversation",
			ConversationID: *id,
			Cause:          err,
		}
	}
	return conv, nil
}

// stream drives one completion exchange, forwarding each fragment to the
// sink before requesting the next, and accumulating the full reply.
//
// The returned text is whatever was accumulated when the stream ended,
// whether it ended by exhaustion or by failure; err distinguishes the two.
func (o *Orchestrator) stream(ctx context.Context, turns []completion.Turn, sink EventSink) (string, error) {
	s, err := o.completer.Open(ctx, turns)
	if err != nil {
		// Failed before the first fragment; nothing was delivered.
		return "", err
	}
	defer s.Close()

	var reply strings.Builder
	for {
		frag, err := s.Recv(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return reply.String(), nil
			}
			// Partial output stays; mid-stream failures are not retried.
			return reply.String(), err
		}

		sink.Fragment(frag)
		reply.WriteString(frag)
		o.metrics.RecordFragment()
	}
}
