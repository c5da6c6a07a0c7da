// Package eventlog persists pipeline events to a SQLite log and provides
// read-only access for stitch-dash and the logs subcommand.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Record is a single row from the event log.
type Record struct {
	ID        int64
	Kind      string
	Namespace string
	CommandID string
	Payload   string
	CreatedAt time.Time
}

// QueryOpts specifies filter criteria for querying the log.
type QueryOpts struct {
	// Kind filters to an exact event kind (e.g. "domain:file-edited")
	Kind string

	// Namespace filters to all kinds within a namespace (e.g. "domain")
	Namespace string

	// CommandID filters events tied to a specific command envelope
	CommandID string

	// After filters events created after this time (inclusive)
	After *time.Time

	// Before filters events created before this time (inclusive)
	Before *time.Time

	// Limit restricts the number of results (0 = no limit)
	Limit int
}

// Reader provides read-only access to the event log.
type Reader struct {
	db *sql.DB
}

// NewReader opens the event log database in read-only mode with WAL.
// Returns an error if the database doesn't exist or cannot be opened.
func NewReader(dbPath string) (*Reader, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}

	// Read-only with WAL so an in-flight run is never blocked
	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Reader{db: db}, nil
}

// Close releases the database connection.
// Safe to call multiple times.
func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Query retrieves log records matching the given filter criteria.
// Returns an empty slice if no records match.
func (r *Reader) Query(ctx context.Context, opts QueryOpts) ([]Record, error) {
	query, args := buildQuery(opts)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var createdAtStr string

		err := rows.Scan(
			&rec.ID,
			&rec.Kind,
			&rec.Namespace,
			&rec.CommandID,
			&rec.Payload,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if createdAtStr != "" {
			parsedTime, err := time.Parse("2006-01-02 15:04:05", createdAtStr)
			if err != nil {
				// Fallback: timezone-qualified format
				parsedTime, err = time.Parse(time.RFC3339, createdAtStr)
				if err != nil {
					return nil, fmt.Errorf("parse created_at: %w", err)
				}
			}
			rec.CreatedAt = parsedTime
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return records, nil
}

// buildQuery constructs the SQL query and arguments from QueryOpts.
func buildQuery(opts QueryOpts) (string, []any) {
	var conditions []string
	var args []any

	query := "SELECT id, kind, namespace, command_id, payload, created_at FROM events WHERE 1=1"

	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}

	if opts.Namespace != "" {
		conditions = append(conditions, "namespace = ?")
		args = append(args, opts.Namespace)
	}

	if opts.CommandID != "" {
		conditions = append(conditions, "command_id = ?")
		args = append(args, opts.CommandID)
	}

	if opts.After != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.After.Format("2006-01-02 15:04:05"))
	}

	if opts.Before != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, opts.Before.Format("2006-01-02 15:04:05"))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	// Newest first
	query += " ORDER BY id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	return query, args
}

// DefaultDBPath returns the default path to the event log database.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".stitch", "events.db")
}
