package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/parley.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements TranscriptStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if necessary) the database at config.Path
// and initializes the schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "store.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, &StorageError{Op: "open", Cause: err}
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite transcript store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets pragmas and creates the schema.
func (s *SQLiteStore) initialize() error {
	// Cascade delete from conversations to messages relies on this pragma.
	if _, err := s.db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return &StorageError{Op: "enable_foreign_keys", Cause: err}
	}

	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return &StorageError{Op: "enable_wal", Cause: err}
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return &StorageError{Op: "set_busy_timeout", Cause: err}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return &StorageError{Op: "create_schema", Cause: err}
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return &StorageError{Op: "insert_schema_version", Cause: err}
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return &StorageError{Op: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{Op: "schema_version_mismatch",
			Cause: fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version)}
	}

	return nil
}

// CreateConversation creates a conversation with the given title.
func (s *SQLiteStore) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (title, created_at, updated_at) VALUES (?, ?, ?)`,
		title, now, now,
	)
	if err != nil {
		return nil, &StorageError{Op: "create_conversation", Cause: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &StorageError{Op: "create_conversation", Cause: err}
	}

	s.logger.Debug("conversation created", "conversation_id", id, "title", title)

	return &Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetConversation returns the conversation with its messages.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	conv := &Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{ConversationID: id}
	}
	if err != nil {
		return nil, &StorageError{Op: "get_conversation", Cause: err}
	}

	messages, err := s.queryMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages

	return conv, nil
}

// ListConversations returns conversation summaries ordered by recency.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations
		 ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, &StorageError{Op: "list_conversations", Cause: err}
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, &StorageError{Op: "list_conversations", Cause: err}
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list_conversations", Cause: err}
	}

	return conversations, nil
}

// ListConversationsWithMessages returns conversations with their messages
// loaded, ordered by recency.
func (s *SQLiteStore) ListConversationsWithMessages(ctx context.Context, limit, offset int) ([]Conversation, error) {
	conversations, err := s.ListConversations(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	for i := range conversations {
		messages, err := s.queryMessages(ctx, conversations[i].ID)
		if err != nil {
			return nil, err
		}
		conversations[i].Messages = messages
	}

	return conversations, nil
}

// UpdateConversationTitle renames a conversation.
func (s *SQLiteStore) UpdateConversationTitle(ctx context.Context, id int64, title string) (*Conversation, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ? WHERE id = ?`, title, id,
	)
	if err != nil {
		return nil, &StorageError{Op: "update_conversation_title", Cause: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, &StorageError{Op: "update_conversation_title", Cause: err}
	}
	if affected == 0 {
		return nil, &NotFoundError{ConversationID: id}
	}

	return s.GetConversation(ctx, id)
}

// AppendMessage inserts a message and refreshes the conversation's
// updated_at in a single transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID int64, role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, &InvalidRoleError{Role: role}
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StorageError{Op: "append_message", Cause: err}
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM conversations WHERE id = ?`, conversationID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{ConversationID: conversationID}
	}
	if err != nil {
		return nil, &StorageError{Op: "append_message", Cause: err}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, string(role), content, now,
	)
	if err != nil {
		return nil, &StorageError{Op: "append_message", Cause: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &StorageError{Op: "append_message", Cause: err}
	}

	// updated_at only moves forward: concurrent appends may commit out of
	// wall-clock order under WAL.
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = MAX(updated_at, ?) WHERE id = ?`,
		now, conversationID,
	); err != nil {
		return nil, &StorageError{Op: "append_message", Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &StorageError{Op: "append_message", Cause: err}
	}

	s.logger.Debug("message appended",
		"conversation_id", conversationID,
		"message_id", id,
		"role", role,
	)

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

// ListMessages returns all messages of a conversation in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM conversations WHERE id = ?`, conversationID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{ConversationID: conversationID}
	}
	if err != nil {
		return nil, &StorageError{Op: "list_messages", Cause: err}
	}

	return s.queryMessages(ctx, conversationID)
}

// queryMessages loads messages in chronological order, ties broken by id.
func (s *SQLiteStore) queryMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at, id`,
		conversationID,
	)
	if err != nil {
		return nil, &StorageError{Op: "list_messages", Cause: err}
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, &StorageError{Op: "list_messages", Cause: err}
		}
		m.Role = Role(role)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list_messages", Cause: err}
	}

	return messages, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ?`, id,
	)
	if err != nil {
		return false, &StorageError{Op: "delete_conversation", Cause: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, &StorageError{Op: "delete_conversation", Cause: err}
	}

	if affected > 0 {
		s.logger.Info("conversation deleted", "conversation_id", id)
	}

	return affected > 0, nil
}

// DeleteIdleConversations removes conversations whose last activity is
// before the cutoff. Used by the retention janitor.
func (s *SQLiteStore) DeleteIdleConversations(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE updated_at < ?`, before.UTC(),
	)
	if err != nil {
		return 0, &StorageError{Op: "delete_idle_conversations", Cause: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "delete_idle_conversations", Cause: err}
	}

	return affected, nil
}

// Stats returns aggregate counts over the stored transcripts.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).
		Scan(&stats.TotalConversations)
	if err != nil {
		return nil, &StorageError{Op: "stats", Cause: err}
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).
		Scan(&stats.TotalMessages)
	if err != nil {
		return nil, &StorageError{Op: "stats", Cause: err}
	}

	if stats.TotalConversations > 0 {
		avg := float64(stats.TotalMessages) / float64(stats.TotalConversations)
		stats.AvgMessagesPerConv = float64(int(avg*100+0.5)) / 100
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
