package store

import (
	"context"
	"time"
)

// Role identifies the sender of a message. The enumeration is closed:
// any other value is rejected by AppendMessage.
type Role string

const (
	// RoleUser marks messages sent by the end user.
	RoleUser Role = "user"

	// RoleAssistant marks messages generated by the model.
	RoleAssistant Role = "assistant"

	// RoleSystem marks configuration/instruction messages.
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the permitted roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// DefaultTitle is the title assigned to conversations created without one.
const DefaultTitle = "New Conversation"

// Conversation represents a persisted chat session grouping an ordered list
// of messages. Messages is populated by GetConversation and
// ListConversationsWithMessages; listing operations that return summaries
// leave it nil.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages,omitempty"`
}

// Message is one role-tagged unit of text within a conversation.
// Messages are immutable after creation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Stats summarizes the stored transcript volume.
type Stats struct {
	TotalConversations int64   `json:"total_conversations"`
	TotalMessages      int64   `json:"total_messages"`
	AvgMessagesPerConv float64 `json:"avg_messages_per_conversation"`
}

// TranscriptStore is the durable ordered log of conversations and messages.
//
// All operations are safe for concurrent use. The store is the only shared
// mutable resource in the system and owns its internal concurrency control;
// callers must not assume any serialization beyond single-append atomicity.
type TranscriptStore interface {
	// CreateConversation creates a conversation. An empty title is replaced
	// with DefaultTitle. The returned entity carries the generated id and
	// timestamps.
	CreateConversation(ctx context.Context, title string) (*Conversation, error)

	// GetConversation returns the conversation with its messages in
	// chronological order, or a *NotFoundError if no such conversation
	// exists.
	GetConversation(ctx context.Context, id int64) (*Conversation, error)

	// ListConversations returns conversation summaries (no messages)
	// ordered by most recent activity.
	ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error)

	// ListConversationsWithMessages returns conversations with their
	// messages, ordered by most recent activity.
	ListConversationsWithMessages(ctx context.Context, limit, offset int) ([]Conversation, error)

	// UpdateConversationTitle renames a conversation and returns the
	// updated entity, or a *NotFoundError.
	UpdateConversationTitle(ctx context.Context, id int64, title string) (*Conversation, error)

	// AppendMessage inserts a message and refreshes the conversation's
	// updated_at timestamp in one transaction. It fails with
	// *InvalidRoleError for roles outside the closed enumeration,
	// ErrEmptyContent for empty content, and *NotFoundError if the
	// conversation does not exist.
	AppendMessage(ctx context.Context, conversationID int64, role Role, content string) (*Message, error)

	// ListMessages returns all messages of a conversation in chronological
	// order. A missing conversation yields a *NotFoundError.
	ListMessages(ctx context.Context, conversationID int64) ([]Message, error)

	// DeleteConversation removes a conversation and, by cascade, all of its
	// messages. It reports whether a conversation existed.
	DeleteConversation(ctx context.Context, id int64) (bool, error)

	// Stats returns aggregate counts over the stored transcripts.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the underlying resources.
	Close() error
}
