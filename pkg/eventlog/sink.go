package eventlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"stitch/pkg/events"
)

// Sink writes every published event to a SQLite log. Payloads are
// redacted before serialization so credentials never reach disk.
type Sink struct {
	db     *sql.DB
	logger *slog.Logger
	sub    *events.Subscription
}

// NewSink opens (or creates) the log database at dbPath and applies the
// schema. The caller owns the returned sink and must Close it.
func NewSink(dbPath string, logger *slog.Logger) (*Sink, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(SchemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Sink{db: db, logger: logger}, nil
}

// Attach registers the sink on the hub's global wildcard scope. Events
// published after Attach returns are persisted.
func (s *Sink) Attach(hub *events.Hub) {
	s.sub = hub.SubscribeAny(s.record)
}

// Detach removes the sink's subscription. Safe to call when never attached.
func (s *Sink) Detach(hub *events.Hub) {
	if s.sub != nil {
		hub.Unsubscribe(s.sub)
		s.sub = nil
	}
}

// Close releases the database connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

// record is the hub handler. Insert failures are logged, never raised:
// a broken log must not take down a run in progress.
func (s *Sink) record(kind events.Kind, payload *events.Payload) {
	var (
		body      string
		commandID string
		createdAt = time.Now().UTC()
	)

	if payload != nil {
		if !payload.Timestamp.IsZero() {
			createdAt = payload.Timestamp.UTC()
		}
		if payload.Event != nil {
			commandID = payload.Event.CommandID
		}
		encoded, err := json.Marshal(events.Redacted(payload))
		if err != nil {
			s.logger.Warn("event log: encode payload", "kind", string(kind), "error", err)
		} else {
			body = string(encoded)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO events (kind, namespace, command_id, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(kind), string(kind.Namespace()), commandID, body,
		createdAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		s.logger.Warn("event log: insert", "kind", string(kind), "error", err)
	}
}
