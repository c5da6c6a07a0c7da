package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"stitch/pkg/edit"
	"stitch/pkg/eventlog"
	"stitch/pkg/events"
)

// seedEventLog writes a few events into a fresh database under STITCH_HOME.
func seedEventLog(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("STITCH_HOME", home)
	t.Setenv("STITCH_DB_PATH", "")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink, err := eventlog.NewSink(filepath.Join(home, "events.db"), logger)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	defer sink.Close()

	hub := events.New(events.Options{Strict: true, Logger: logger})
	sink.Attach(hub)

	for _, commandID := range []string{"cmd-1", "cmd-2"} {
		if _, err := hub.Publish(events.KindFileEdited, &events.Payload{
			Event: &edit.Event{Type: edit.EventFileEdited, CommandID: commandID, Path: "main.go"},
		}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if _, err := hub.Publish(events.KindFinishSummary, &events.Payload{Stats: &events.RunStats{CommandsProcessed: 2}}); err != nil {
		t.Fatalf("publish summary: %v", err)
	}
}

func runLogsCmd(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newLogsCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("logs %v: %v", args, err)
	}
	return buf.String()
}

func TestLogsCmdPrintsChronologically(t *testing.T) {
	seedEventLog(t)

	out := runLogsCmd(t)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "cmd-1") {
		t.Errorf("first line = %q, want oldest event first", lines[0])
	}
	if !strings.Contains(lines[2], "finish:summary") {
		t.Errorf("last line = %q, want the summary last", lines[2])
	}
}

func TestLogsCmdKindFilter(t *testing.T) {
	seedEventLog(t)

	out := runLogsCmd(t, "--kind", "finish:summary")
	if strings.Contains(out, "file-edited") {
		t.Errorf("filter leaked other kinds:\n%s", out)
	}
	if !strings.Contains(out, "finish:summary") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestLogsCmdCommandFilter(t *testing.T) {
	seedEventLog(t)

	out := runLogsCmd(t, "--command", "cmd-2")
	if !strings.Contains(out, "cmd-2") || strings.Contains(out, "cmd-1") {
		t.Errorf("command filter output:\n%s", out)
	}
}

func TestLogsCmdTail(t *testing.T) {
	seedEventLog(t)

	out := runLogsCmd(t, "--tail", "1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), out)
	}
}

func TestLogsCmdEmptyDatabaseMissing(t *testing.T) {
	t.Setenv("STITCH_HOME", t.TempDir())
	t.Setenv("STITCH_DB_PATH", "")

	cmd := newLogsCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err == nil {
		t.Error("expected error when no event log exists yet")
	}
}
