package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements TranscriptStore with in-memory maps.
// It is used by tests and ephemeral deployments; contents are lost on
// process exit.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[int64]*Conversation
	messages      map[int64][]Message
	nextConvID    int64
	nextMsgID     int64
}

// NewMemoryStore creates an empty in-memory transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[int64]*Conversation),
		messages:      make(map[int64][]Message),
		nextConvID:    1,
		nextMsgID:     1,
	}
}

// CreateConversation creates a conversation with the given title.
func (s *MemoryStore) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conv := &Conversation{
		ID:        s.nextConvID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextConvID++
	s.conversations[conv.ID] = conv
	s.messages[conv.ID] = []Message{}

	result := *conv
	return &result, nil
}

// GetConversation returns the conversation with its messages.
func (s *MemoryStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, &NotFoundError{ConversationID: id}
	}

	result := *conv
	result.Messages = append([]Message(nil), s.messages[id]...)
	return &result, nil
}

// ListConversations returns summaries ordered by most recent activity.
func (s *MemoryStore) ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(limit, offset, false), nil
}

// ListConversationsWithMessages returns conversations with messages,
// ordered by most recent activity.
func (s *MemoryStore) ListConversationsWithMessages(ctx context.Context, limit, offset int) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(limit, offset, true), nil
}

func (s *MemoryStore) listLocked(limit, offset int, withMessages bool) []Conversation {
	all := make([]Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		all = append(all, *conv)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return []Conversation{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	if withMessages {
		for i := range all {
			all[i].Messages = append([]Message(nil), s.messages[all[i].ID]...)
		}
	}

	return all
}

// UpdateConversationTitle renames a conversation.
func (s *MemoryStore) UpdateConversationTitle(ctx context.Context, id int64, title string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, &NotFoundError{ConversationID: id}
	}
	conv.Title = title

	result := *conv
	result.Messages = append([]Message(nil), s.messages[id]...)
	return &result, nil
}

// AppendMessage inserts a message and refreshes the conversation's
// updated_at atomically under the store lock.
func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID int64, role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, &InvalidRoleError{Role: role}
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, &NotFoundError{ConversationID: conversationID}
	}

	now := time.Now().UTC()
	msg := Message{
		ID:             s.nextMsgID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}
	s.nextMsgID++
	s.messages[conversationID] = append(s.messages[conversationID], msg)

	if now.After(conv.UpdatedAt) {
		conv.UpdatedAt = now
	}

	return &msg, nil
}

// ListMessages returns all messages in insertion order.
func (s *MemoryStore) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, &NotFoundError{ConversationID: conversationID}
	}

	return append([]Message(nil), s.messages[conversationID]...), nil
}

// DeleteConversation removes a conversation and its messages.
func (s *MemoryStore) DeleteConversation(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false, nil
	}

	delete(s.conversations, id)
	delete(s.messages, id)
	return true, nil
}

// DeleteIdleConversations removes conversations idle since before the cutoff.
func (s *MemoryStore) DeleteIdleConversations(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, conv := range s.conversations {
		if conv.UpdatedAt.Before(before) {
			delete(s.conversations, id)
			delete(s.messages, id)
			removed++
		}
	}

	return removed, nil
}

// Stats returns aggregate counts.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{TotalConversations: int64(len(s.conversations))}
	for _, msgs := range s.messages {
		stats.TotalMessages += int64(len(msgs))
	}
	if stats.TotalConversations > 0 {
		avg := float64(stats.TotalMessages) / float64(stats.TotalConversations)
		stats.AvgMessagesPerConv = float64(int(avg*100+0.5)) / 100
	}

	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
