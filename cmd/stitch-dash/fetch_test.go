package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"stitch/pkg/edit"
	"stitch/pkg/eventlog"
	"stitch/pkg/events"
)

func TestFetchRecordsCmdMissingDatabase(t *testing.T) {
	cmd := fetchRecordsCmd(filepath.Join(t.TempDir(), "absent.db"))
	msg := cmd()

	errMsg, ok := msg.(fetchErrMsg)
	if !ok {
		t.Fatalf("got %T, want fetchErrMsg", msg)
	}
	if errMsg.err == nil {
		t.Error("fetchErrMsg without an error")
	}
}

func TestFetchRecordsCmdReadsLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sink, err := eventlog.NewSink(dbPath, logger)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	hub := events.New(events.Options{Strict: true, Logger: logger})
	sink.Attach(hub)
	if _, err := hub.Publish(events.KindFileCreated, &events.Payload{
		Event: &edit.Event{Type: edit.EventFileCreated, CommandID: "c1", Path: "x.go"},
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_ = sink.Close()

	msg := fetchRecordsCmd(dbPath)()
	records, ok := msg.(recordsMsg)
	if !ok {
		t.Fatalf("got %T, want recordsMsg", msg)
	}
	if len(records) != 1 || records[0].Kind != "domain:file-created" {
		t.Errorf("records = %+v", records)
	}
}
