package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// newBackends returns a fresh instance of every TranscriptStore
// implementation, so the contract tests run against both.
func newBackends(t *testing.T) map[string]TranscriptStore {
	t.Helper()

	sqlite, err := NewSQLiteStore(&SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	memory := NewMemoryStore()
	t.Cleanup(func() { memory.Close() })

	return map[string]TranscriptStore{
		"sqlite": sqlite,
		"memory": memory,
	}
}

func TestCreateConversation(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv, err := ts.CreateConversation(ctx, "Trip planning")
			if err != nil {
				t.Fatalf("CreateConversation() error = %v", err)
			}
			if conv.ID == 0 {
				t.Error("expected non-zero conversation id")
			}
			if conv.Title != "Trip planning" {
				t.Errorf("Title = %q, want %q", conv.Title, "Trip planning")
			}
			if conv.CreatedAt.IsZero() || conv.UpdatedAt.IsZero() {
				t.Error("expected timestamps to be set")
			}

			// Empty title gets the default.
			conv2, err := ts.CreateConversation(ctx, "")
			if err != nil {
				t.Fatalf("CreateConversation() error = %v", err)
			}
			if conv2.Title != DefaultTitle {
				t.Errorf("Title = %q, want %q", conv2.Title, DefaultTitle)
			}
			if conv2.ID == conv.ID {
				t.Error("expected distinct conversation ids")
			}
		})
	}
}

func TestGetConversationNotFound(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := ts.GetConversation(context.Background(), 9999)
			if !IsNotFound(err) {
				t.Errorf("expected NotFoundError, got %v", err)
			}
		})
	}
}

func TestAppendAndListMessages(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv, err := ts.CreateConversation(ctx, "")
			if err != nil {
				t.Fatalf("CreateConversation() error = %v", err)
			}

			first, err := ts.AppendMessage(ctx, conv.ID, RoleUser, "Hello")
			if err != nil {
				t.Fatalf("AppendMessage() error = %v", err)
			}
			second, err := ts.AppendMessage(ctx, conv.ID, RoleAssistant, "Hi there!")
			if err != nil {
				t.Fatalf("AppendMessage() error = %v", err)
			}

			if first.ID == second.ID {
				t.Error("expected distinct message ids")
			}

			msgs, err := ts.ListMessages(ctx, conv.ID)
			if err != nil {
				t.Fatalf("ListMessages() error = %v", err)
			}
			if len(msgs) != 2 {
				t.Fatalf("len(msgs) = %d, want 2", len(msgs))
			}
			if msgs[0].Content != "Hello" || msgs[0].Role != RoleUser {
				t.Errorf("msgs[0] = %+v, want user Hello", msgs[0])
			}
			if msgs[1].Content != "Hi there!" || msgs[1].Role != RoleAssistant {
				t.Errorf("msgs[1] = %+v, want assistant reply", msgs[1])
			}
		})
	}
}

func TestAppendMessageValidation(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv, err := ts.CreateConversation(ctx, "")
			if err != nil {
				t.Fatalf("CreateConversation() error = %v", err)
			}

			if _, err := ts.AppendMessage(ctx, conv.ID, Role("moderator"), "hi"); err == nil {
				t.Error("expected error for invalid role")
			} else {
				var roleErr *InvalidRoleError
				if !errors.As(err, &roleErr) {
					t.Errorf("expected InvalidRoleError, got %v", err)
				}
			}

			if _, err := ts.AppendMessage(ctx, conv.ID, RoleUser, ""); !errors.Is(err, ErrEmptyContent) {
				t.Errorf("expected ErrEmptyContent, got %v", err)
			}

			if _, err := ts.AppendMessage(ctx, 9999, RoleUser, "hi"); !IsNotFound(err) {
				t.Errorf("expected NotFoundError, got %v", err)
			}

			// None of the rejected appends may have persisted anything.
			msgs, err := ts.ListMessages(ctx, conv.ID)
			if err != nil {
				t.Fatalf("ListMessages() error = %v", err)
			}
			if len(msgs) != 0 {
				t.Errorf("len(msgs) = %d, want 0", len(msgs))
			}
		})
	}
}

func TestAppendMessageRefreshesUpdatedAt(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv, err := ts.CreateConversation(ctx, "")
			if err != nil {
				t.Fatalf("CreateConversation() error = %v", err)
			}

			time.Sleep(10 * time.Millisecond)
			if _, err := ts.AppendMessage(ctx, conv.ID, RoleUser, "hello"); err != nil {
				t.Fatalf("AppendMessage() error = %v", err)
			}

			after, err := ts.GetConversation(ctx, conv.ID)
			if err != nil {
				t.Fatalf("GetConversation() error = %v", err)
			}
			if !after.UpdatedAt.After(conv.UpdatedAt) {
				t.Errorf("UpdatedAt not refreshed: %v <= %v", after.UpdatedAt, conv.UpdatedAt)
			}
		})
	}
}

func TestListConversationsOrder(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, _ := ts.CreateConversation(ctx, "first")
			time.Sleep(5 * time.Millisecond)
			second, _ := ts.CreateConversation(ctx, "second")
			time.Sleep(5 * time.Millisecond)

			// Touch the first conversation so it becomes most recent.
			if _, err := ts.AppendMessage(ctx, first.ID, RoleUser, "bump"); err != nil {
				t.Fatalf("AppendMessage() error = %v", err)
			}

			convs, err := ts.ListConversations(ctx, 10, 0)
			if err != nil {
				t.Fatalf("ListConversations() error = %v", err)
			}
			if len(convs) != 2 {
				t.Fatalf("len(convs) = %d, want 2", len(convs))
			}
			if convs[0].ID != first.ID || convs[1].ID != second.ID {
				t.Errorf("order = [%d %d], want [%d %d]",
					convs[0].ID, convs[1].ID, first.ID, second.ID)
			}
			if convs[0].Messages != nil {
				t.Error("summaries should not carry messages")
			}

			// Pagination.
			page, err := ts.ListConversations(ctx, 1, 1)
			if err != nil {
				t.Fatalf("ListConversations() error = %v", err)
			}
			if len(page) != 1 || page[0].ID != second.ID {
				t.Errorf("page = %+v, want only conversation %d", page, second.ID)
			}
		})
	}
}

func TestListConversationsWithMessages(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv, _ := ts.CreateConversation(ctx, "")
			if _, err := ts.AppendMessage(ctx, conv.ID, RoleUser, "hello"); err != nil {
				t.Fatalf("AppendMessage() error = %v", err)
			}

			convs, err := ts.ListConversationsWithMessages(ctx, 10, 0)
			if err != nil {
				t.Fatalf("ListConversationsWithMessages() error = %v", err)
			}
			if len(convs) != 1 {
				t.Fatalf("len(convs) = %d, want 1", len(convs))
			}
			if len(convs[0].Messages) != 1 {
				t.Errorf("len(Messages) = %d, want 1", len(convs[0].Messages))
			}
		})
	}
}

func TestUpdateConversationTitle(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv, _ := ts.CreateConversation(ctx, "old")
			updated, err := ts.UpdateConversationTitle(ctx, conv.ID, "new")
			if err != nil {
				t.Fatalf("UpdateConversationTitle() error = %v", err)
			}
			if updated.Title != "new" {
				t.Errorf("Title = %q, want %q", updated.Title, "new")
			}

			if _, err := ts.UpdateConversationTitle(ctx, 9999, "x"); !IsNotFound(err) {
				t.Errorf("expected NotFoundError, got %v", err)
			}
		})
	}
}

func TestDeleteConversation(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv, _ := ts.CreateConversation(ctx, "")
			if _, err := ts.AppendMessage(ctx, conv.ID, RoleUser, "hello"); err != nil {
				t.Fatalf("AppendMessage() error = %v", err)
			}

			existed, err := ts.DeleteConversation(ctx, conv.ID)
			if err != nil {
				t.Fatalf("DeleteConversation() error = %v", err)
			}
			if !existed {
				t.Error("expected existed = true")
			}

			if _, err := ts.GetConversation(ctx, conv.ID); !IsNotFound(err) {
				t.Errorf("expected NotFoundError after delete, got %v", err)
			}

			// Messages are gone with the conversation.
			stats, err := ts.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if stats.TotalMessages != 0 {
				t.Errorf("TotalMessages = %d, want 0 after cascade", stats.TotalMessages)
			}

			existed, err = ts.DeleteConversation(ctx, conv.ID)
			if err != nil {
				t.Fatalf("DeleteConversation() error = %v", err)
			}
			if existed {
				t.Error("expected existed = false on second delete")
			}
		})
	}
}

func TestStats(t *testing.T) {
	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := ts.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if empty.TotalConversations != 0 || empty.AvgMessagesPerConv != 0 {
				t.Errorf("empty stats = %+v", empty)
			}

			a, _ := ts.CreateConversation(ctx, "")
			b, _ := ts.CreateConversation(ctx, "")
			ts.AppendMessage(ctx, a.ID, RoleUser, "1")
			ts.AppendMessage(ctx, a.ID, RoleAssistant, "2")
			ts.AppendMessage(ctx, b.ID, RoleUser, "3")

			stats, err := ts.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if stats.TotalConversations != 2 {
				t.Errorf("TotalConversations = %d, want 2", stats.TotalConversations)
			}
			if stats.TotalMessages != 3 {
				t.Errorf("TotalMessages = %d, want 3", stats.TotalMessages)
			}
			if stats.AvgMessagesPerConv != 1.5 {
				t.Errorf("AvgMessagesPerConv = %v, want 1.5", stats.AvgMessagesPerConv)
			}
		})
	}
}

func TestDeleteIdleConversations(t *testing.T) {
	ctx := context.Background()

	type idleDeleter interface {
		DeleteIdleConversations(ctx context.Context, before time.Time) (int64, error)
	}

	for name, ts := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			deleter, ok := ts.(idleDeleter)
			if !ok {
				t.Fatalf("%s store does not support idle deletion", name)
			}

			stale, _ := ts.CreateConversation(ctx, "stale")
			time.Sleep(10 * time.Millisecond)
			cutoff := time.Now().UTC()
			time.Sleep(10 * time.Millisecond)
			fresh, _ := ts.CreateConversation(ctx, "fresh")

			removed, err := deleter.DeleteIdleConversations(ctx, cutoff)
			if err != nil {
				t.Fatalf("DeleteIdleConversations() error = %v", err)
			}
			if removed != 1 {
				t.Errorf("removed = %d, want 1", removed)
			}
			if _, err := ts.GetConversation(ctx, stale.ID); !IsNotFound(err) {
				t.Errorf("stale conversation should be gone, got %v", err)
			}
			if _, err := ts.GetConversation(ctx, fresh.ID); err != nil {
				t.Errorf("fresh conversation should survive, got %v", err)
			}
		})
	}
}
