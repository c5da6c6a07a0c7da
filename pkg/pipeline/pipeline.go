// Package pipeline implements the orchestrator that drives one
// end-to-end run: from a loaded prompt specification, through the
// completion stream, to a terminal summary or abort event on the hub.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stitch/pkg/config"
	"stitch/pkg/edit"
	"stitch/pkg/events"
	"stitch/pkg/llm"
	"stitch/pkg/promptspec"
)

// State tracks the orchestrator through its linear run. There are no
// branching back-edges: each run visits these in order, cycling through
// the dispatch pair once per command.
type State string

// Orchestrator state constants.
const (
	StateIdle           State = "idle"
	StateSpecLoaded     State = "spec_loaded"
	StateInterpolated   State = "interpolated"
	StateStreaming      State = "streaming"
	StateDispatched     State = "dispatched"
	StateEventCollected State = "event_collected"
	StateAggregated     State = "aggregated"
	StateSummarized     State = "summarized"
	StateAborted        State = "aborted"
)

// --- Interfaces for collaborators ---

// CommandStream is a consumed-exactly-once sequence of edit commands.
type CommandStream interface {
	// Next returns the next command, or io.EOF at end of stream.
	Next() (edit.Command, error)
	Close() error
}

// Completer opens a command stream for one prompt. The production
// implementation is [stitch/pkg/llm.Client] via [NewCompleter].
type Completer interface {
	SendPrompt(ctx context.Context, prompt llm.Prompt) (CommandStream, error)
}

// Executor runs one command against the file system. Expected failure
// modes come back as ErrorRaised events; an error return is a fault
// that aborts the run.
type Executor interface {
	Execute(ctx context.Context, cmd edit.Command) (edit.Event, error)
}

// NewCompleter adapts an llm.Client to the Completer interface.
func NewCompleter(client *llm.Client) Completer {
	return clientCompleter{client: client}
}

type clientCompleter struct {
	client *llm.Client
}

func (c clientCompleter) SendPrompt(ctx context.Context, prompt llm.Prompt) (CommandStream, error) {
	stream, err := c.client.SendPrompt(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// --- Orchestrator ---

// Orchestrator drives one run. It owns its configuration and statistics
// for the duration of that run; construct a new one per run.
type Orchestrator struct {
	hub       *events.Hub
	completer Completer
	executor  Executor
	cfg       *config.Config
	logger    *slog.Logger

	// loadSpec is injectable for tests; defaults to promptspec.Load.
	loadSpec func(path string) (*promptspec.Spec, error)

	// nowFunc allows tests to control the measured duration.
	nowFunc func() time.Time

	state State
	runID string
}

// New creates an Orchestrator publishing on hub.
func New(hub *events.Hub, completer Completer, executor Executor, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		hub:       hub,
		completer: completer,
		executor:  executor,
		cfg:       cfg,
		logger:    logger,
		loadSpec:  promptspec.Load,
		nowFunc:   time.Now,
		state:     StateIdle,
		runID:     uuid.NewString(),
	}
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State { return o.state }

// Run executes one pipeline run for the prompt spec at specPath.
//
// Every fatal path funnels into a published finish:abort carrying a
// human-readable reason; Run then returns the underlying error so the
// host can map an exit code. A completed run publishes finish:summary
// and returns nil; command-level failures (malformed envelopes,
// expected executor failures) surface as ErrorRaised domain events and
// do not fail the run.
func (o *Orchestrator) Run(ctx context.Context, specPath string) error {
	start := o.nowFunc()

	o.publish(events.KindInitConfig, &events.Payload{Config: o.cfg})

	spec, err := o.loadSpec(specPath)
	if err != nil {
		return o.abort(err)
	}
	o.state = StateSpecLoaded

	prompt, err := o.interpolate(spec)
	if err != nil {
		return o.abort(err)
	}
	o.state = StateInterpolated

	stream, err := o.completer.SendPrompt(ctx, prompt)
	if err != nil {
		return o.abort(err)
	}
	defer stream.Close()
	o.state = StateStreaming

	collected, commands, errored, err := o.dispatchAll(ctx, stream)
	if err != nil {
		return o.abort(err)
	}

	o.state = StateAggregated
	stats := aggregate(collected, commands, errored, o.cfg.CountErroredCommands)

	o.publish(events.KindFinishSummary, &events.Payload{
		Stats:    stats,
		Duration: o.nowFunc().Sub(start),
	})
	o.state = StateSummarized
	return nil
}

// interpolate resolves template variables in the spec's prompts, with
// the configured caller overrides winning on key collision.
func (o *Orchestrator) interpolate(spec *promptspec.Spec) (llm.Prompt, error) {
	system, err := spec.Interpolate(spec.System, o.cfg.Vars)
	if err != nil {
		return llm.Prompt{}, err
	}
	user, err := spec.Interpolate(spec.User, o.cfg.Vars)
	if err != nil {
		return llm.Prompt{}, err
	}
	return llm.Prompt{System: system, User: user}, nil
}

// dispatchAll consumes the stream one command at a time, in arrival
// order, with no concurrent dispatch. It returns the collected domain
// events, the number of commands consumed, and how many of those ended
// in an ErrorRaised event.
func (o *Orchestrator) dispatchAll(ctx context.Context, stream CommandStream) (collected []edit.Event, commands, errored int, err error) {
	for {
		cmd, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return collected, commands, errored, nil
		}
		if err != nil {
			// A failure of the stream itself is run-fatal.
			return collected, commands, errored, err
		}

		o.state = StateDispatched
		commands++

		event, fault := o.dispatch(ctx, cmd)
		if fault != nil {
			return collected, commands, errored, fault
		}

		if event.Type == edit.EventFileEdited && event.FileEdited != nil && event.FileEdited.BackupPath != "" {
			backup := edit.Event{
				Type:          edit.EventBackupCreated,
				CommandID:     event.CommandID,
				Path:          event.Path,
				BackupCreated: &edit.BackupCreatedEvent{BackupPath: event.FileEdited.BackupPath},
			}
			o.publishDomain(backup)
			collected = append(collected, backup)
		}

		o.publishDomain(event)
		collected = append(collected, event)
		if event.Type == edit.EventErrorRaised {
			errored++
		}
		o.state = StateEventCollected
	}
}

// dispatch validates and executes one command. A command missing its
// discriminator or path never reaches the executor; it becomes an
// ErrorRaised event directly.
func (o *Orchestrator) dispatch(ctx context.Context, cmd edit.Command) (edit.Event, error) {
	if verr := cmd.Validate(); verr != nil {
		return edit.NewError(cmd.ID, cmd.Path, verr.Error()), nil
	}

	event, err := o.executor.Execute(ctx, cmd)
	if err != nil {
		// Unexpected executor fault: fatal to the run.
		return edit.Event{}, err
	}
	return event, nil
}

// abort publishes the failure as an ErrorRaised domain event followed
// by finish:abort, and returns err unchanged for exit-code mapping.
// finish:summary is never published on this path.
func (o *Orchestrator) abort(err error) error {
	o.publishDomain(edit.NewError(o.runID, "", err.Error()))

	code := 1
	var budgetErr *llm.TokenBudgetError
	if errors.As(err, &budgetErr) {
		code = 2
	}
	o.publish(events.KindFinishAbort, &events.Payload{Reason: err.Error(), Code: code})

	o.state = StateAborted
	return err
}

// publishDomain wraps a domain event in a payload and publishes it
// under its derived kind.
func (o *Orchestrator) publishDomain(event edit.Event) {
	copied := event
	o.publish(events.KindForEvent(event.Type), &events.Payload{Event: &copied})
}

// publish sends one payload on the hub. A contract violation here is a
// programming error in the orchestrator itself; it is logged rather
// than allowed to crash the run.
func (o *Orchestrator) publish(kind events.Kind, payload *events.Payload) {
	if _, err := o.hub.Publish(kind, payload); err != nil {
		o.logger.Error("publish failed", "kind", string(kind), "error", err)
	}
}

// aggregate folds the collected domain events into run statistics.
// Only FileEdited events with a stats record contribute to the edit
// totals; FileViewed events contribute nothing; errored commands are
// counted separately and, by default, still count as processed.
func aggregate(collected []edit.Event, commands, errored int, countErrored bool) *events.RunStats {
	stats := &events.RunStats{CommandsProcessed: commands}
	if !countErrored {
		stats.CommandsProcessed = commands - errored
	}

	for _, event := range collected {
		switch event.Type {
		case edit.EventFileEdited:
			stats.FilesEdited++
			if event.FileEdited != nil && event.FileEdited.Stats != nil {
				stats.TotalEdits.Add(*event.FileEdited.Stats)
			}
		case edit.EventFileCreated:
			stats.FilesCreated++
		case edit.EventBackupCreated:
			stats.BackupsCreated++
		case edit.EventErrorRaised:
			stats.Errors++
		case edit.EventFileViewed:
		}
	}
	return stats
}
