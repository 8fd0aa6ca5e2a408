// Package store provides durable transcript storage for conversations and
// their messages.
//
// The TranscriptStore interface defines the operations required by the chat
// orchestrator and the REST surface: conversation lifecycle, ordered message
// append with atomic last-activity refresh, and cascade deletion.
//
// Two implementations are provided:
//   - SQLiteStore: SQLite-backed persistent storage (modernc.org/sqlite)
//   - MemoryStore: in-memory storage for tests and ephemeral deployments
//
// Ordering guarantees: messages within a conversation are returned in
// chronological order by creation timestamp, ties broken by id (insertion
// order). AppendMessage inserts the message and refreshes the conversation's
// updated_at timestamp in a single transaction; partial application is not
// possible.
package store
