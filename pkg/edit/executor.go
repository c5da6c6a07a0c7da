package edit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Executor applies Commands to the local file system. Expected failure
// modes (missing file, bad range, ambiguous match) are returned as
// ErrorRaised events, never as errors; the error return is reserved for
// faults that should abort the run (e.g. an unwritable backup
// directory).
type Executor struct {
	// backupDir receives pre-edit copies of files about to be mutated.
	backupDir string

	// nowFunc allows tests to control backup timestamps.
	nowFunc func() time.Time
}

// NewExecutor creates an Executor writing backups under backupDir. The
// directory is created on first use.
func NewExecutor(backupDir string) *Executor {
	return &Executor{
		backupDir: backupDir,
		nowFunc:   time.Now,
	}
}

// Execute runs one command and returns the resulting Event. The
// returned Event always carries cmd.ID.
func (x *Executor) Execute(ctx context.Context, cmd Command) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}

	switch cmd.Kind {
	case CommandView:
		return x.view(cmd), nil
	case CommandCreate:
		return x.create(cmd), nil
	case CommandInsert:
		return x.insert(cmd)
	case CommandStrReplace:
		return x.strReplace(cmd)
	case CommandUndoEdit:
		return x.undoEdit(cmd), nil
	default:
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("unknown command kind %q", cmd.Kind)), nil
	}
}

// view reads the file, optionally restricted to a 1-based inclusive
// line range. End -1 means end of file.
func (x *Executor) view(cmd Command) Event {
	content, err := os.ReadFile(cmd.Path)
	if err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("view %s: %v", cmd.Path, err))
	}

	lines := splitLines(string(content))
	if len(cmd.ViewRange) > 0 {
		if len(cmd.ViewRange) != 2 {
			return NewError(cmd.ID, cmd.Path, fmt.Sprintf("view %s: view_range must be [start, end], got %v", cmd.Path, cmd.ViewRange))
		}
		start, end := cmd.ViewRange[0], cmd.ViewRange[1]
		if end == -1 {
			end = len(lines)
		}
		if start < 1 || start > len(lines) || end < start || end > len(lines) {
			return NewError(cmd.ID, cmd.Path, fmt.Sprintf("view %s: invalid range [%d, %d] for %d lines", cmd.Path, cmd.ViewRange[0], cmd.ViewRange[1], len(lines)))
		}
		lines = lines[start-1 : end]
	}

	return Event{
		Type:      EventFileViewed,
		CommandID: cmd.ID,
		Path:      cmd.Path,
		FileViewed: &FileViewedEvent{
			Content:   strings.Join(lines, "\n"),
			LineCount: len(lines),
		},
	}
}

// create writes a new file. Creating over an existing file is refused;
// the model must use str_replace or insert to change existing content.
func (x *Executor) create(cmd Command) Event {
	if _, err := os.Stat(cmd.Path); err == nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("create %s: file already exists", cmd.Path))
	}
	if dir := filepath.Dir(cmd.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return NewError(cmd.ID, cmd.Path, fmt.Sprintf("create %s: %v", cmd.Path, err))
		}
	}
	if err := writeFileAtomic(cmd.Path, []byte(cmd.FileText)); err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("create %s: %v", cmd.Path, err))
	}

	return Event{
		Type:      EventFileCreated,
		CommandID: cmd.ID,
		Path:      cmd.Path,
		FileCreated: &FileCreatedEvent{
			LineCount: len(splitLines(cmd.FileText)),
		},
	}
}

// insert places NewStr after the 0-based line InsertLine (0 inserts at
// the beginning of the file). A backup is written before the edit.
func (x *Executor) insert(cmd Command) (Event, error) {
	content, err := os.ReadFile(cmd.Path)
	if err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("insert %s: %v", cmd.Path, err)), nil
	}

	lines := splitLines(string(content))
	if cmd.InsertLine < 0 || cmd.InsertLine > len(lines) {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("insert %s: insert_line %d out of range (file has %d lines)", cmd.Path, cmd.InsertLine, len(lines))), nil
	}

	backupPath, err := x.backup(cmd.Path, content)
	if err != nil {
		return Event{}, err
	}

	inserted := splitLines(cmd.NewStr)
	updated := make([]string, 0, len(lines)+len(inserted))
	updated = append(updated, lines[:cmd.InsertLine]...)
	updated = append(updated, inserted...)
	updated = append(updated, lines[cmd.InsertLine:]...)

	text := strings.Join(updated, "\n")
	if strings.HasSuffix(string(content), "\n") {
		text += "\n"
	}
	if err := writeFileAtomic(cmd.Path, []byte(text)); err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("insert %s: %v", cmd.Path, err)), nil
	}

	return Event{
		Type:      EventFileEdited,
		CommandID: cmd.ID,
		Path:      cmd.Path,
		FileEdited: &FileEditedEvent{
			Stats:      &LineStats{Added: len(inserted)},
			BackupPath: backupPath,
		},
	}, nil
}

// strReplace replaces exactly one occurrence of OldStr with NewStr. A
// backup is written before the edit.
func (x *Executor) strReplace(cmd Command) (Event, error) {
	if cmd.OldStr == "" {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("str_replace %s: old_str is empty", cmd.Path)), nil
	}

	content, err := os.ReadFile(cmd.Path)
	if err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("str_replace %s: %v", cmd.Path, err)), nil
	}

	text := string(content)
	switch occurrences := strings.Count(text, cmd.OldStr); {
	case occurrences == 0:
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("str_replace %s: old_str not found", cmd.Path)), nil
	case occurrences > 1:
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("str_replace %s: old_str matches %d locations, must match exactly one", cmd.Path, occurrences)), nil
	}

	backupPath, err := x.backup(cmd.Path, content)
	if err != nil {
		return Event{}, err
	}

	updated := strings.Replace(text, cmd.OldStr, cmd.NewStr, 1)
	if err := writeFileAtomic(cmd.Path, []byte(updated)); err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("str_replace %s: %v", cmd.Path, err)), nil
	}

	stats := diffStats(splitLines(text), splitLines(updated))
	return Event{
		Type:      EventFileEdited,
		CommandID: cmd.ID,
		Path:      cmd.Path,
		FileEdited: &FileEditedEvent{
			Stats:      &stats,
			BackupPath: backupPath,
		},
	}, nil
}

// undoEdit restores the newest backup for the path and consumes it.
func (x *Executor) undoEdit(cmd Command) Event {
	backupPath, ok := x.latestBackup(cmd.Path)
	if !ok {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("undo_edit %s: no backup to restore", cmd.Path))
	}

	restored, err := os.ReadFile(backupPath)
	if err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("undo_edit %s: read backup: %v", cmd.Path, err))
	}

	current, err := os.ReadFile(cmd.Path)
	if err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("undo_edit %s: %v", cmd.Path, err))
	}

	if err := writeFileAtomic(cmd.Path, restored); err != nil {
		return NewError(cmd.ID, cmd.Path, fmt.Sprintf("undo_edit %s: %v", cmd.Path, err))
	}
	_ = os.Remove(backupPath)

	stats := diffStats(splitLines(string(current)), splitLines(string(restored)))
	return Event{
		Type:      EventFileEdited,
		CommandID: cmd.ID,
		Path:      cmd.Path,
		FileEdited: &FileEditedEvent{
			Stats:        &stats,
			RestoredFrom: backupPath,
		},
	}
}

// backup copies content into the backup directory and returns the
// backup file path. Backup failures are run-fatal: continuing to edit
// without a restore point would make undo_edit silently impossible.
func (x *Executor) backup(path string, content []byte) (string, error) {
	if err := os.MkdirAll(x.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir %s: %w", x.backupDir, err)
	}

	name := fmt.Sprintf("%s.%d.bak", sanitizeBackupName(path), x.nowFunc().UnixNano())
	backupPath := filepath.Join(x.backupDir, name)
	if err := os.WriteFile(backupPath, content, 0o644); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

// latestBackup returns the newest backup file for path, if any.
func (x *Executor) latestBackup(path string) (string, bool) {
	prefix := sanitizeBackupName(path) + "."
	entries, err := os.ReadDir(x.backupDir)
	if err != nil {
		return "", false
	}

	var matches []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".bak") {
			matches = append(matches, entry.Name())
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	// Names embed a nanosecond timestamp of fixed magnitude, so
	// lexicographic order is chronological.
	sort.Strings(matches)
	return filepath.Join(x.backupDir, matches[len(matches)-1]), true
}

// sanitizeBackupName flattens a file path into a backup file name.
func sanitizeBackupName(path string) string {
	s := strings.ReplaceAll(filepath.Clean(path), string(filepath.Separator), "_")
	return strings.TrimPrefix(s, "_")
}

// writeFileAtomic writes data to path via a temp file and rename, so a
// crash mid-write never leaves a truncated file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".stitch-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// splitLines splits text into lines without a trailing empty element
// for a trailing newline. An empty string has zero lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// diffStats approximates line-level change counts between two versions
// of a file: positions that differ within the common prefix length are
// changed, and the length delta is added or removed.
func diffStats(oldLines, newLines []string) LineStats {
	var stats LineStats

	minLen := len(oldLines)
	if len(newLines) < minLen {
		minLen = len(newLines)
	}
	for i := 0; i < minLen; i++ {
		if oldLines[i] != newLines[i] {
			stats.Changed++
		}
	}
	if len(newLines) > len(oldLines) {
		stats.Added = len(newLines) - len(oldLines)
	} else {
		stats.Removed = len(oldLines) - len(newLines)
	}
	return stats
}
