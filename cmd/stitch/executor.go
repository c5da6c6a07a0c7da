package main

import (
	"context"
	"fmt"

	"stitch/pkg/edit"
	"stitch/pkg/pipeline"
)

// newRunExecutor returns the executor for a run: the real file-system
// executor, or a read-only stand-in under --dry-run.
func newRunExecutor(backupDir string, dryRun bool) pipeline.Executor {
	real := edit.NewExecutor(backupDir)
	if dryRun {
		return &dryRunExecutor{viewer: real}
	}
	return real
}

// dryRunExecutor reports the edits the model requested without writing
// anything. View commands still read the file so the outcome matches a
// real run; every mutating command becomes its would-be event with no
// line accounting and no backup.
type dryRunExecutor struct {
	viewer *edit.Executor
}

func (x *dryRunExecutor) Execute(ctx context.Context, cmd edit.Command) (edit.Event, error) {
	if err := ctx.Err(); err != nil {
		return edit.Event{}, err
	}

	switch cmd.Kind {
	case edit.CommandView:
		return x.viewer.Execute(ctx, cmd)
	case edit.CommandCreate:
		return edit.Event{
			Type:        edit.EventFileCreated,
			CommandID:   cmd.ID,
			Path:        cmd.Path,
			FileCreated: &edit.FileCreatedEvent{LineCount: countLines(cmd.FileText)},
		}, nil
	case edit.CommandInsert, edit.CommandStrReplace, edit.CommandUndoEdit:
		return edit.Event{
			Type:       edit.EventFileEdited,
			CommandID:  cmd.ID,
			Path:       cmd.Path,
			FileEdited: &edit.FileEditedEvent{},
		}, nil
	default:
		return edit.NewError(cmd.ID, cmd.Path, fmt.Sprintf("unknown command kind %q", cmd.Kind)), nil
	}
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := 1
	for _, r := range text {
		if r == '\n' {
			n++
		}
	}
	if text[len(text)-1] == '\n' {
		n--
	}
	return n
}
