package edit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	dir := t.TempDir()
	return NewExecutor(filepath.Join(dir, "backups")), dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func mustExecute(t *testing.T, x *Executor, cmd Command) Event {
	t.Helper()
	event, err := x.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("execute %s: %v", cmd.Kind, err)
	}
	return event
}

func TestExecuteView(t *testing.T) {
	x, dir := newTestExecutor(t)
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, path, "one\ntwo\nthree\nfour\n")

	t.Run("whole file", func(t *testing.T) {
		event := mustExecute(t, x, Command{ID: "v1", Kind: CommandView, Path: path})
		if event.Type != EventFileViewed {
			t.Fatalf("type = %s, want %s", event.Type, EventFileViewed)
		}
		if event.FileViewed.LineCount != 4 {
			t.Errorf("line count = %d, want 4", event.FileViewed.LineCount)
		}
		if event.FileViewed.Content != "one\ntwo\nthree\nfour" {
			t.Errorf("content = %q", event.FileViewed.Content)
		}
	})

	t.Run("range", func(t *testing.T) {
		event := mustExecute(t, x, Command{ID: "v2", Kind: CommandView, Path: path, ViewRange: []int{2, 3}})
		if event.FileViewed.Content != "two\nthree" {
			t.Errorf("content = %q, want lines 2-3", event.FileViewed.Content)
		}
	})

	t.Run("range to end of file", func(t *testing.T) {
		event := mustExecute(t, x, Command{ID: "v3", Kind: CommandView, Path: path, ViewRange: []int{3, -1}})
		if event.FileViewed.Content != "three\nfour" {
			t.Errorf("content = %q, want lines 3-4", event.FileViewed.Content)
		}
	})

	t.Run("range out of bounds", func(t *testing.T) {
		event := mustExecute(t, x, Command{ID: "v4", Kind: CommandView, Path: path, ViewRange: []int{1, 99}})
		if event.Type != EventErrorRaised {
			t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		event := mustExecute(t, x, Command{ID: "v5", Kind: CommandView, Path: filepath.Join(dir, "absent.txt")})
		if event.Type != EventErrorRaised {
			t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
		}
		if event.CommandID != "v5" {
			t.Errorf("command id = %q, want v5", event.CommandID)
		}
	})
}

func TestExecuteCreate(t *testing.T) {
	x, dir := newTestExecutor(t)

	t.Run("new file", func(t *testing.T) {
		path := filepath.Join(dir, "sub", "fresh.txt")
		event := mustExecute(t, x, Command{ID: "c1", Kind: CommandCreate, Path: path, FileText: "alpha\nbeta\n"})
		if event.Type != EventFileCreated {
			t.Fatalf("type = %s, want %s", event.Type, EventFileCreated)
		}
		if event.FileCreated.LineCount != 2 {
			t.Errorf("line count = %d, want 2", event.FileCreated.LineCount)
		}
		if got := readFile(t, path); got != "alpha\nbeta\n" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("existing file refused", func(t *testing.T) {
		path := filepath.Join(dir, "taken.txt")
		writeFile(t, path, "original")
		event := mustExecute(t, x, Command{ID: "c2", Kind: CommandCreate, Path: path, FileText: "clobber"})
		if event.Type != EventErrorRaised {
			t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
		}
		if got := readFile(t, path); got != "original" {
			t.Errorf("existing file was modified: %q", got)
		}
	})
}

func TestExecuteInsert(t *testing.T) {
	x, dir := newTestExecutor(t)

	t.Run("after a line", func(t *testing.T) {
		path := filepath.Join(dir, "list.txt")
		writeFile(t, path, "one\nthree\n")
		event := mustExecute(t, x, Command{ID: "i1", Kind: CommandInsert, Path: path, InsertLine: 1, NewStr: "two"})
		if event.Type != EventFileEdited {
			t.Fatalf("type = %s, want %s", event.Type, EventFileEdited)
		}
		if got := readFile(t, path); got != "one\ntwo\nthree\n" {
			t.Errorf("content = %q", got)
		}
		if event.FileEdited.Stats.Added != 1 {
			t.Errorf("added = %d, want 1", event.FileEdited.Stats.Added)
		}
		if event.FileEdited.BackupPath == "" {
			t.Error("expected a backup path")
		}
		if got := readFile(t, event.FileEdited.BackupPath); got != "one\nthree\n" {
			t.Errorf("backup content = %q", got)
		}
	})

	t.Run("at beginning", func(t *testing.T) {
		path := filepath.Join(dir, "head.txt")
		writeFile(t, path, "body\n")
		mustExecute(t, x, Command{ID: "i2", Kind: CommandInsert, Path: path, InsertLine: 0, NewStr: "header"})
		if got := readFile(t, path); got != "header\nbody\n" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("line out of range", func(t *testing.T) {
		path := filepath.Join(dir, "short.txt")
		writeFile(t, path, "only\n")
		event := mustExecute(t, x, Command{ID: "i3", Kind: CommandInsert, Path: path, InsertLine: 5, NewStr: "far"})
		if event.Type != EventErrorRaised {
			t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
		}
	})
}

func TestExecuteStrReplace(t *testing.T) {
	x, dir := newTestExecutor(t)

	t.Run("single match", func(t *testing.T) {
		path := filepath.Join(dir, "code.go")
		writeFile(t, path, "func old() {}\nfunc other() {}\n")
		event := mustExecute(t, x, Command{ID: "r1", Kind: CommandStrReplace, Path: path, OldStr: "func old()", NewStr: "func renamed()"})
		if event.Type != EventFileEdited {
			t.Fatalf("type = %s, want %s", event.Type, EventFileEdited)
		}
		if got := readFile(t, path); !strings.Contains(got, "func renamed()") {
			t.Errorf("content = %q", got)
		}
		if event.FileEdited.Stats.Changed != 1 {
			t.Errorf("changed = %d, want 1", event.FileEdited.Stats.Changed)
		}
	})

	t.Run("no match", func(t *testing.T) {
		path := filepath.Join(dir, "plain.txt")
		writeFile(t, path, "nothing here\n")
		event := mustExecute(t, x, Command{ID: "r2", Kind: CommandStrReplace, Path: path, OldStr: "absent", NewStr: "x"})
		if event.Type != EventErrorRaised {
			t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
		}
	})

	t.Run("ambiguous match", func(t *testing.T) {
		path := filepath.Join(dir, "dup.txt")
		writeFile(t, path, "same\nsame\n")
		event := mustExecute(t, x, Command{ID: "r3", Kind: CommandStrReplace, Path: path, OldStr: "same", NewStr: "x"})
		if event.Type != EventErrorRaised {
			t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
		}
		if got := readFile(t, path); got != "same\nsame\n" {
			t.Errorf("ambiguous replace modified the file: %q", got)
		}
	})

	t.Run("empty old_str", func(t *testing.T) {
		path := filepath.Join(dir, "any.txt")
		writeFile(t, path, "content\n")
		event := mustExecute(t, x, Command{ID: "r4", Kind: CommandStrReplace, Path: path, NewStr: "x"})
		if event.Type != EventErrorRaised {
			t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
		}
	})
}

func TestExecuteUndoEdit(t *testing.T) {
	x, dir := newTestExecutor(t)
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, "version one\n")

	t.Run("no backup yet", func(t *testing.T) {
		event := mustExecute(t, x, Command{ID: "u0", Kind: CommandUndoEdit, Path: path})
		if event.Type != EventErrorRaised {
			t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
		}
	})

	t.Run("restore latest backup", func(t *testing.T) {
		mustExecute(t, x, Command{ID: "e1", Kind: CommandStrReplace, Path: path, OldStr: "version one", NewStr: "version two"})
		event := mustExecute(t, x, Command{ID: "u1", Kind: CommandUndoEdit, Path: path})
		if event.Type != EventFileEdited {
			t.Fatalf("type = %s, want %s", event.Type, EventFileEdited)
		}
		if event.FileEdited.RestoredFrom == "" {
			t.Error("expected restored_from to name the consumed backup")
		}
		if event.FileEdited.BackupPath != "" {
			t.Error("undo must not report a fresh backup")
		}
		if got := readFile(t, path); got != "version one\n" {
			t.Errorf("content = %q, want restored original", got)
		}
	})

	t.Run("backup is consumed", func(t *testing.T) {
		event := mustExecute(t, x, Command{ID: "u2", Kind: CommandUndoEdit, Path: path})
		if event.Type != EventErrorRaised {
			t.Fatalf("second undo type = %s, want %s", event.Type, EventErrorRaised)
		}
	})
}

func TestExecuteUnknownKind(t *testing.T) {
	x, dir := newTestExecutor(t)
	event := mustExecute(t, x, Command{ID: "x1", Kind: "teleport", Path: filepath.Join(dir, "f.txt")})
	if event.Type != EventErrorRaised {
		t.Fatalf("type = %s, want %s", event.Type, EventErrorRaised)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	x, dir := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := x.Execute(ctx, Command{ID: "c1", Kind: CommandView, Path: filepath.Join(dir, "f.txt")})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 2},
	}
	for _, tt := range tests {
		if got := len(splitLines(tt.text)); got != tt.want {
			t.Errorf("splitLines(%q) = %d lines, want %d", tt.text, got, tt.want)
		}
	}
}

func TestDiffStats(t *testing.T) {
	stats := diffStats([]string{"a", "b", "c"}, []string{"a", "B", "c", "d"})
	if stats.Changed != 1 || stats.Added != 1 || stats.Removed != 0 {
		t.Errorf("stats = %+v, want changed=1 added=1", stats)
	}

	stats = diffStats([]string{"a", "b", "c"}, []string{"a"})
	if stats.Removed != 2 {
		t.Errorf("removed = %d, want 2", stats.Removed)
	}
}
