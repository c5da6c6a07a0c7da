package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// stitchDir is the per-user state directory name under $HOME.
const stitchDir = ".stitch"

// Paths holds all resolved stitch state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	StitchHome  string // ~/.stitch or STITCH_HOME
	ConfigPath  string // config.toml or STITCH_CONFIG_PATH
	EventDBPath string // events.db or STITCH_DB_PATH
	BackupDir   string // backups/ or STITCH_BACKUP_DIR
}

// ResolvePaths returns all stitch paths, respecting env var overrides.
// Environment variables:
//   - STITCH_HOME: base directory for all stitch state (default: ~/.stitch)
//   - STITCH_CONFIG_PATH: config file (default: $STITCH_HOME/config.toml)
//   - STITCH_DB_PATH: event log database (default: $STITCH_HOME/events.db)
//   - STITCH_BACKUP_DIR: pre-edit backups (default: $STITCH_HOME/backups)
//
// If STITCH_HOME is set, it becomes the base for all default paths.
// Specific env vars override both the default and the STITCH_HOME base.
func ResolvePaths() (*Paths, error) {
	home, err := resolveStitchHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		StitchHome:  home,
		ConfigPath:  resolvePathWithEnv("STITCH_CONFIG_PATH", home, "config.toml"),
		EventDBPath: resolvePathWithEnv("STITCH_DB_PATH", home, "events.db"),
		BackupDir:   resolvePathWithEnv("STITCH_BACKUP_DIR", home, "backups"),
	}, nil
}

// resolveStitchHome returns the state directory from STITCH_HOME or ~/.stitch.
func resolveStitchHome() (string, error) {
	if v := os.Getenv("STITCH_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, stitchDir), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
