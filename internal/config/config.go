// Package config loads and watches the debugger's TOML configuration.
//
// A missing configuration file is not an error: Load returns the
// defaults so the debugger always starts. Invalid values are rejected
// by Validate with enough context to fix the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration.
type Config struct {
	History     HistoryConfig     `toml:"history"`
	Breakpoints BreakpointsConfig `toml:"breakpoints"`
	Logging     LoggingConfig     `toml:"logging"`
	REPL        REPLConfig        `toml:"repl"`
}

// HistoryConfig bounds the state machine's transition history.
type HistoryConfig struct {
	// Capacity is the size of the transition history ring.
	Capacity int `toml:"capacity"`
}

// BreakpointsConfig controls breakpoint persistence.
type BreakpointsConfig struct {
	// PersistPath is where breakpoints are saved between sessions.
	// Empty disables persistence.
	PersistPath string `toml:"persist_path"`

	// LoadOnStart restores persisted breakpoints at startup.
	LoadOnStart bool `toml:"load_on_start"`
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`

	// File receives log output; empty logs to stderr.
	File string `toml:"file"`
}

// REPLConfig controls the interactive surface.
type REPLConfig struct {
	// Prompt is the input prompt text.
	Prompt string `toml:"prompt"`

	// Color enables ANSI coloring of output.
	Color bool `toml:"color"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			Capacity: 64,
		},
		Breakpoints: BreakpointsConfig{
			PersistPath: "",
			LoadOnStart: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		REPL: REPLConfig{
			Prompt: "(nb) ",
			Color:  true,
		},
	}
}

// Load reads the configuration at path, layered over the defaults. A
// nonexistent file returns the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.History.Capacity <= 0 {
		return fmt.Errorf("%w: history.capacity must be positive, got %d",
			ErrInvalidConfig, c.History.Capacity)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q",
			ErrInvalidConfig, c.Logging.Level)
	}
	if c.REPL.Prompt == "" {
		return fmt.Errorf("%w: repl.prompt must not be empty", ErrInvalidConfig)
	}
	return nil
}
