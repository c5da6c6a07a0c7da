package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"stitch/pkg/eventlog"
)

// logsConfig holds configuration for the logs command.
type logsConfig struct {
	tail      int
	follow    bool
	kind      string
	namespace string
	commandID string
}

// newLogsCmd creates the "stitch logs" subcommand.
func newLogsCmd() *cobra.Command {
	var cfg logsConfig

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query and tail the pipeline event log",
		Long:  "Displays events recorded by previous runs.\nOptionally filter by kind, namespace, or command id, and follow new events.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			reader, err := eventlog.NewReader(paths.EventDBPath)
			if err != nil {
				return fmt.Errorf("open event log: %w", err)
			}
			defer reader.Close()

			w := cmd.OutOrStdout()
			if cfg.follow {
				return followLogs(cmd.Context(), reader, w, cfg)
			}
			return printLogs(cmd.Context(), reader, w, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.tail, "tail", 20, "number of recent events to show")
	cmd.Flags().BoolVarP(&cfg.follow, "follow", "f", false, "poll for new events every 1s")
	cmd.Flags().StringVar(&cfg.kind, "kind", "", "filter to an exact event kind (e.g. domain:file-edited)")
	cmd.Flags().StringVar(&cfg.namespace, "namespace", "", "filter to a kind namespace (init, domain, finish, infra)")
	cmd.Flags().StringVar(&cfg.commandID, "command", "", "filter to events for one command id")

	return cmd
}

func queryOpts(cfg logsConfig) eventlog.QueryOpts {
	return eventlog.QueryOpts{
		Kind:      cfg.kind,
		Namespace: cfg.namespace,
		CommandID: cfg.commandID,
		Limit:     cfg.tail,
	}
}

// printLogs displays the last N matching events in chronological order.
func printLogs(ctx context.Context, reader *eventlog.Reader, w io.Writer, cfg logsConfig) error {
	records, err := reader.Query(ctx, queryOpts(cfg))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "no events found")
		return nil
	}

	// The reader returns newest first; reverse for chronological display.
	for i := len(records) - 1; i >= 0; i-- {
		formatRecord(w, records[i])
	}
	return nil
}

// followLogs displays the initial batch, then polls for newer events.
func followLogs(ctx context.Context, reader *eventlog.Reader, w io.Writer, cfg logsConfig) error {
	records, err := reader.Query(ctx, queryOpts(cfg))
	if err != nil {
		return err
	}

	var lastID int64
	for i := len(records) - 1; i >= 0; i-- {
		formatRecord(w, records[i])
		lastID = records[i].ID
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			opts := queryOpts(cfg)
			opts.Limit = 0
			newer, err := reader.Query(ctx, opts)
			if err != nil {
				return err
			}
			for i := len(newer) - 1; i >= 0; i-- {
				if newer[i].ID > lastID {
					formatRecord(w, newer[i])
					lastID = newer[i].ID
				}
			}
		}
	}
}

// formatRecord writes a single log record in a human-readable format.
func formatRecord(w io.Writer, rec eventlog.Record) {
	commandID := rec.CommandID
	if commandID == "" {
		commandID = "-"
	}
	fmt.Fprintf(w, "%s | %-22s | %-12s | %s\n",
		rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Kind, commandID, rec.Payload)
}
