package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"stitch/pkg/config"
	"stitch/pkg/eventlog"
	"stitch/pkg/events"
	"stitch/pkg/llm"
	"stitch/pkg/pipeline"
)

// runConfig holds configuration for the run command.
type runConfig struct {
	configPath string
	vars       []string
	dryRun     bool
	debug      bool
	strict     bool
}

// newRunCmd creates the "stitch run" subcommand.
func newRunCmd() *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run <spec.yaml>",
		Short: "Execute one editing pipeline run",
		Long:  "Loads the prompt spec, streams edit commands from the model,\nand applies them to local files with pre-edit backups.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0], cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.configPath, "config", "", "config file (default $STITCH_HOME/config.toml)")
	cmd.Flags().StringArrayVar(&cfg.vars, "var", nil, "prompt variable override as name=value (repeatable)")
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "report the edits the model requests without writing files")
	cmd.Flags().BoolVar(&cfg.debug, "debug", false, "log every published event payload (redacted)")
	cmd.Flags().BoolVar(&cfg.strict, "strict", false, "fail the run on a payload contract violation instead of dropping it")

	return cmd
}

func runPipeline(cmd *cobra.Command, specPath string, rc runConfig) error {
	paths, err := ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	if err := os.MkdirAll(paths.StitchHome, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	// A missing config file is only tolerated at the default location;
	// a path named with --config must exist.
	configPath := rc.configPath
	if configPath == "" {
		configPath = paths.ConfigPath
	} else if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("config file %s: %w", configPath, err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyVarFlags(cfg, rc.vars); err != nil {
		return err
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = paths.BackupDir
	}
	// A dry run still sends the prompt to the provider; only the file
	// writes are suppressed, so the credential is required either way.
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key configured: set anthropic_api_key in %s or STITCH_API_KEY", configPath)
	}

	logger, closeLog, err := newLogger(cfg.LogPath, rc.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	hub := events.New(events.Options{
		Strict:         rc.strict,
		Debug:          rc.debug,
		MaxSubscribers: 64,
		Logger:         logger,
	})

	sink, err := eventlog.NewSink(paths.EventDBPath, logger)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer sink.Close()
	sink.Attach(hub)
	defer sink.Detach(hub)

	out := cmd.OutOrStdout()
	progress := newProgress(out, isTerminal())
	progress.Attach(hub)

	completer := pipeline.NewCompleter(llm.NewClient(llm.Config{
		APIKey:          cfg.APIKey,
		Model:           cfg.Model,
		MaxAttempts:     cfg.MaxAttempts,
		RetryDelay:      cfg.RetryDelay,
		MaxPromptTokens: cfg.MaxPromptTokens,
	}, llm.WithLogger(logger)))

	executor := newRunExecutor(cfg.BackupDir, rc.dryRun)

	orch := pipeline.New(hub, completer, executor, cfg, logger)
	return orch.Run(cmd.Context(), specPath)
}

// applyVarFlags merges --var name=value flags into the config's prompt
// variable overrides.
func applyVarFlags(cfg *config.Config, vars []string) error {
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --var %q: expected name=value", v)
		}
		if cfg.Vars == nil {
			cfg.Vars = map[string]string{}
		}
		cfg.Vars[name] = value
	}
	return nil
}

// newLogger builds the diagnostic logger, writing to the configured
// log file or stderr. The returned closer is a no-op for stderr.
func newLogger(logPath string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if logPath == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), func() {}, nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", logPath, err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
