package eventlog

// SchemaDDL creates the event log table. Applied idempotently on every
// open.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	namespace  TEXT NOT NULL,
	command_id TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
CREATE INDEX IF NOT EXISTS idx_events_namespace ON events(namespace);
`
