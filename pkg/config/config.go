// Package config loads and merges stitch configuration from its TOML
// config file, environment variables, and caller overrides. Precedence
// is defaults < file < environment < explicit overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default values applied when no other source provides one.
const (
	DefaultModel           = "claude-sonnet-4-5-20250929"
	DefaultMaxAttempts     = 3
	DefaultMaxPromptTokens = 100000
)

// Config is the resolved run configuration. One Config is owned by a
// single pipeline run and is never shared across concurrent runs.
type Config struct {
	// APIKey is the Anthropic API credential.
	APIKey string `json:"anthropic_api_key"`

	// Model is the completion model identifier.
	Model string `json:"model"`

	// MaxAttempts bounds the retry loop around one prompt invocation.
	MaxAttempts int `json:"max_attempts"`

	// RetryDelay is the fixed sleep between retry attempts.
	RetryDelay time.Duration `json:"retry_delay"`

	// MaxPromptTokens is the estimated-token budget checked before any
	// provider call is made.
	MaxPromptTokens int `json:"max_prompt_tokens"`

	// LogPath is the diagnostic log target. Empty means stderr.
	LogPath string `json:"log_path"`

	// BackupDir overrides where the executor writes file backups.
	// Empty means alongside the event database under the stitch home.
	BackupDir string `json:"backup_dir"`

	// Vars are caller-supplied variable overrides for prompt
	// interpolation. Override wins on key collision with the spec.
	Vars map[string]string `json:"vars"`

	// CountErroredCommands controls whether commands that produced an
	// ErrorRaised event still count toward the processed total.
	CountErroredCommands bool `json:"count_errored_commands"`
}

// fileConfig mirrors Config for TOML decoding. RetryDelay is a duration
// string ("500ms", "2s") because TOML has no duration type.
type fileConfig struct {
	APIKey               string            `toml:"anthropic_api_key"`
	Model                string            `toml:"model"`
	MaxAttempts          int               `toml:"max_attempts"`
	RetryDelay           string            `toml:"retry_delay"`
	MaxPromptTokens      int               `toml:"max_prompt_tokens"`
	LogPath              string            `toml:"log_path"`
	BackupDir            string            `toml:"backup_dir"`
	Vars                 map[string]string `toml:"vars"`
	CountErroredCommands *bool             `toml:"count_errored_commands"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		Model:                DefaultModel,
		MaxAttempts:          DefaultMaxAttempts,
		MaxPromptTokens:      DefaultMaxPromptTokens,
		Vars:                 map[string]string{},
		CountErroredCommands: true,
	}
}

// Load resolves configuration from the TOML file at path (skipped when
// the file does not exist) and the process environment. A malformed
// file is an error; a missing one is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg, os.Getenv)

	return cfg, nil
}

// applyFile merges values from the TOML file at path into cfg.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.APIKey != "" {
		cfg.APIKey = fc.APIKey
	}
	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if fc.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.MaxAttempts
	}
	if fc.RetryDelay != "" {
		d, err := time.ParseDuration(fc.RetryDelay)
		if err != nil {
			return fmt.Errorf("parse retry_delay in %s: %w", path, err)
		}
		cfg.RetryDelay = d
	}
	if fc.MaxPromptTokens > 0 {
		cfg.MaxPromptTokens = fc.MaxPromptTokens
	}
	if fc.LogPath != "" {
		cfg.LogPath = fc.LogPath
	}
	if fc.BackupDir != "" {
		cfg.BackupDir = fc.BackupDir
	}
	for k, v := range fc.Vars {
		cfg.Vars[k] = v
	}
	if fc.CountErroredCommands != nil {
		cfg.CountErroredCommands = *fc.CountErroredCommands
	}
	return nil
}

// applyEnv merges environment variables into cfg. getenv is injectable
// so tests do not mutate the process environment.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("STITCH_API_KEY"); v != "" {
		cfg.APIKey = v
	} else if v := getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := getenv("STITCH_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := getenv("STITCH_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if v := getenv("STITCH_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RetryDelay = d
		}
	}
	if v := getenv("STITCH_MAX_PROMPT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPromptTokens = n
		}
	}
	if v := getenv("STITCH_LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
}

// Redacted returns a copy of cfg safe for logging and persistence:
// the API credential is masked, everything else is unchanged.
func (c *Config) Redacted() Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = "[redacted]"
	}
	return out
}
