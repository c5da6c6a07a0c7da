package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"stitch/pkg/events"
)

// progress renders pipeline events as step-by-step console output.
// isTTY controls whether to use checkmark glyphs (true) or plain
// ASCII markers (false, e.g. when piped to a file).
type progress struct {
	w     io.Writer
	isTTY bool
	mu    sync.Mutex
}

func newProgress(w io.Writer, isTTY bool) *progress {
	return &progress{w: w, isTTY: isTTY}
}

// Attach registers the renderer for domain and finish events.
func (p *progress) Attach(hub *events.Hub) {
	hub.SubscribeNamespace(events.NamespaceDomain, p.onEvent)
	hub.SubscribeNamespace(events.NamespaceFinish, p.onEvent)
}

func (p *progress) onEvent(kind events.Kind, payload *events.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch kind {
	case events.KindFileViewed:
		p.step("viewed %s", payload.Event.Path)
	case events.KindFileCreated:
		if created := payload.Event.FileCreated; created != nil {
			p.step("created %s (%d lines)", payload.Event.Path, created.LineCount)
		} else {
			p.step("created %s", payload.Event.Path)
		}
	case events.KindFileEdited:
		edited := payload.Event.FileEdited
		if edited != nil && edited.Stats != nil {
			p.step("edited %s (+%d -%d ~%d)", payload.Event.Path,
				edited.Stats.Added, edited.Stats.Removed, edited.Stats.Changed)
		} else {
			p.step("edited %s", payload.Event.Path)
		}
	case events.KindBackupCreated:
		p.step("backed up %s", payload.Event.Path)
	case events.KindErrorRaised:
		if raised := payload.Event.ErrorRaised; raised != nil {
			p.fail("%s", raised.Message)
		} else {
			p.fail("error in %s", payload.Event.Path)
		}
	case events.KindFinishSummary:
		s := payload.Stats
		fmt.Fprintf(p.w, "\ndone in %s: %d commands, %d edited, %d created, %d errors (+%d -%d ~%d lines)\n",
			payload.Duration.Round(time.Millisecond),
			s.CommandsProcessed, s.FilesEdited, s.FilesCreated, s.Errors,
			s.TotalEdits.Added, s.TotalEdits.Removed, s.TotalEdits.Changed)
	case events.KindFinishAbort:
		fmt.Fprintf(p.w, "\naborted: %s\n", payload.Reason)
	}
}

func (p *progress) step(format string, args ...any) {
	marker := "✓"
	if !p.isTTY {
		marker = "-"
	}
	fmt.Fprintf(p.w, marker+" "+format+"\n", args...)
}

func (p *progress) fail(format string, args ...any) {
	marker := "✗"
	if !p.isTTY {
		marker = "!"
	}
	fmt.Fprintf(p.w, marker+" "+format+"\n", args...)
}
