package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"stitch/pkg/edit"
)

func TestDryRunExecutorNeverWrites(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(existing, []byte("original\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	x := newRunExecutor(filepath.Join(dir, "backups"), true)
	ctx := context.Background()

	t.Run("create reports without writing", func(t *testing.T) {
		target := filepath.Join(dir, "new.txt")
		event, err := x.Execute(ctx, edit.Command{ID: "c1", Kind: edit.CommandCreate, Path: target, FileText: "a\nb\n"})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if event.Type != edit.EventFileCreated || event.FileCreated.LineCount != 2 {
			t.Errorf("event = %+v", event)
		}
		if _, err := os.Stat(target); !os.IsNotExist(err) {
			t.Error("dry run created a file")
		}
	})

	t.Run("str_replace reports without writing", func(t *testing.T) {
		event, err := x.Execute(ctx, edit.Command{ID: "c2", Kind: edit.CommandStrReplace, Path: existing, OldStr: "original", NewStr: "changed"})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if event.Type != edit.EventFileEdited {
			t.Errorf("type = %s", event.Type)
		}
		if event.FileEdited.BackupPath != "" {
			t.Error("dry run reported a backup")
		}
		data, _ := os.ReadFile(existing)
		if string(data) != "original\n" {
			t.Errorf("file modified: %q", data)
		}
	})

	t.Run("view still reads", func(t *testing.T) {
		event, err := x.Execute(ctx, edit.Command{ID: "c3", Kind: edit.CommandView, Path: existing})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if event.Type != edit.EventFileViewed || event.FileViewed.Content != "original" {
			t.Errorf("event = %+v", event)
		}
	})
}

func TestNewRunExecutorReal(t *testing.T) {
	dir := t.TempDir()
	x := newRunExecutor(filepath.Join(dir, "backups"), false)

	target := filepath.Join(dir, "made.txt")
	event, err := x.Execute(context.Background(), edit.Command{ID: "c1", Kind: edit.CommandCreate, Path: target, FileText: "hi\n"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if event.Type != edit.EventFileCreated {
		t.Errorf("type = %s", event.Type)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("real executor did not write: %v", err)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo\n", 2},
	}
	for _, tt := range tests {
		if got := countLines(tt.text); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
