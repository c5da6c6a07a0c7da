// Package edit defines the units of work flowing through the pipeline:
// the Command envelope requested by the model, the Event produced by
// executing one, and the file-system Executor that performs the edits.
package edit

import (
	"fmt"
	"strings"
)

// CommandKind discriminates the edit operations the model may request.
type CommandKind string

// Command kind constants. These mirror the editor tool's command values
// on the wire.
const (
	CommandView       CommandKind = "view"
	CommandCreate     CommandKind = "create"
	CommandInsert     CommandKind = "insert"
	CommandStrReplace CommandKind = "str_replace"
	CommandUndoEdit   CommandKind = "undo_edit"
)

// Command is one edit operation requested by the model, pre-execution.
// The JSON tags match the tool-use block input emitted by the provider;
// ID is carried separately from the block id.
type Command struct {
	// ID correlates this command with the Event that results from it.
	ID string `json:"-"`

	Kind CommandKind `json:"command"`
	Path string      `json:"path"`

	// FileText is the full content for create.
	FileText string `json:"file_text,omitempty"`

	// InsertLine is the 0-based line after which insert places NewStr.
	// 0 inserts at the beginning of the file.
	InsertLine int `json:"insert_line,omitempty"`

	// OldStr/NewStr are the replacement pair for str_replace; NewStr is
	// also the inserted text for insert.
	OldStr string `json:"old_str,omitempty"`
	NewStr string `json:"new_str,omitempty"`

	// ViewRange is an optional [start, end] pair of 1-based inclusive
	// line numbers for view. End -1 means end of file.
	ViewRange []int `json:"view_range,omitempty"`
}

// ValidationError reports a malformed Command. It is converted to an
// ErrorRaised event by the orchestrator rather than aborting the run.
type ValidationError struct {
	CommandID string
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid command %s: %s: %s", e.CommandID, e.Field, e.Reason)
}

// Validate checks that the command carries its required discriminator
// and target path. Kind-specific field checks are left to the Executor,
// which reports them as ErrorRaised events with file context.
func (c Command) Validate() error {
	switch c.Kind {
	case CommandView, CommandCreate, CommandInsert, CommandStrReplace, CommandUndoEdit:
	case "":
		return &ValidationError{CommandID: c.ID, Field: "command", Reason: "missing"}
	default:
		return &ValidationError{CommandID: c.ID, Field: "command", Reason: fmt.Sprintf("unknown kind %q", c.Kind)}
	}
	if strings.TrimSpace(c.Path) == "" {
		return &ValidationError{CommandID: c.ID, Field: "path", Reason: "missing"}
	}
	return nil
}
