package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the conversations and messages tables.
//
// Messages reference their owning conversation with ON DELETE CASCADE so a
// conversation delete can never leave orphan messages. The role column is
// constrained to the closed enumeration at the database level as a second
// line of defense behind Role.Valid.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL DEFAULT 'New Conversation',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_conversations_updated_at
	ON conversations(updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL
		REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL
		CHECK (role IN ('user', 'assistant', 'system')),
	content         TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_messages_conversation_created
	ON messages(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the schema version, ignoring duplicates.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion returns the highest applied schema version.
const GetSchemaVersion = `
SELECT COALESCE(MAX(version), 0) FROM schema_version;
`
