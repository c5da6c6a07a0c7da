package main

import (
	"path/filepath"
	"testing"
)

func TestInitWatcherMissingDir(t *testing.T) {
	if w := initWatcher(filepath.Join(t.TempDir(), "absent")); w != nil {
		_ = w.Close()
		t.Error("expected nil watcher for a missing directory")
	}
}

func TestInitWatcherExistingDir(t *testing.T) {
	w := initWatcher(t.TempDir())
	if w == nil {
		t.Skip("fsnotify unavailable in this environment")
	}
	_ = w.Close()
}
