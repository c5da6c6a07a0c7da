package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"stitch/pkg/eventlog"
)

// feedLimit caps how many records one refresh pulls from the log.
const feedLimit = 200

// recordsMsg carries the latest batch of log records, newest first.
type recordsMsg []eventlog.Record

// fetchErrMsg reports a failed refresh. A missing database is normal
// before the first run, so the model renders it as a hint, not a crash.
type fetchErrMsg struct{ err error }

// fetchRecordsCmd returns a tea.Cmd that reads the newest records from
// the event log.
func fetchRecordsCmd(dbPath string) tea.Cmd {
	return func() tea.Msg {
		records, err := fetchRecords(context.Background(), dbPath)
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return recordsMsg(records)
	}
}

// fetchRecords opens the log read-only and queries the latest batch.
// The reader is opened per refresh so a run that recreates the
// database is picked up without restarting the dashboard.
func fetchRecords(ctx context.Context, dbPath string) ([]eventlog.Record, error) {
	reader, err := eventlog.NewReader(dbPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return reader.Query(ctx, eventlog.QueryOpts{Limit: feedLimit})
}
