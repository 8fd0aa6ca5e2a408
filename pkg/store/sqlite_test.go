package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	cfg := &SQLiteConfig{
		Path:         path,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  time.Second,
	}

	first, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	conv, err := first.CreateConversation(ctx, "durable")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if _, err := first.AppendMessage(ctx, conv.ID, RoleUser, "still here?"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() reopen error = %v", err)
	}
	defer second.Close()

	got, err := second.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() after reopen error = %v", err)
	}
	if got.Title != "durable" {
		t.Errorf("Title = %q, want %q", got.Title, "durable")
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "still here?" {
		t.Errorf("Messages = %+v, want the persisted message", got.Messages)
	}
}

func TestSQLiteDefaultConfig(t *testing.T) {
	cfg := DefaultSQLiteConfig()
	if cfg.Path == "" {
		t.Error("expected a default path")
	}
	if !cfg.WALMode {
		t.Error("WAL mode should default to true")
	}
	if cfg.MaxOpenConns < 1 {
		t.Errorf("MaxOpenConns = %d, want >= 1", cfg.MaxOpenConns)
	}
}
