// Package config handles configuration loading and validation for donload.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"donload/internal/history"
	"donload/internal/record"
	"donload/internal/watcher"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidTOML     ConfigErrorType = "INVALID_TOML"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidTOML:
		return fmt.Sprintf("invalid TOML in configuration file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// Defaults for the watch loop. Retention comes from the record package
// and history defaults from the history package so the numbers live in
// one place.
const (
	DefaultDebounceMs          = int(watcher.DefaultDebounce / time.Millisecond)
	DefaultRecentWindowMinutes = 5
	DefaultReconcileSeconds    = 60
)

// TargetConfig pins a named destination folder for moves.
type TargetConfig struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// HistoryConfig holds settings for the operation history log.
type HistoryConfig struct {
	Dir               string `toml:"dir,omitempty"`
	RotationSizeBytes int64  `toml:"rotation_size_bytes"`
	RetentionDays     int    `toml:"retention_days"`
}

// Config holds all settings for donload.
type Config struct {
	WatchDir            string         `toml:"watch_dir"`
	DebounceMs          int            `toml:"debounce_ms"`
	RecentWindowMinutes int            `toml:"recent_window_minutes"`
	ReconcileSeconds    int            `toml:"reconcile_seconds"`
	RetentionDays       int            `toml:"retention_days"`
	AutoOpen            bool           `toml:"auto_open"`
	IgnorePatterns      []string       `toml:"ignore_patterns,omitempty"`
	Targets             []TargetConfig `toml:"targets,omitempty"`
	History             HistoryConfig  `toml:"history"`
}

// Default returns the configuration used when no file exists: watch the
// user's Downloads directory with stock timings.
func Default() *Config {
	cfg := &Config{}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.WatchDir = filepath.Join(home, "Downloads")
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero values with their stock settings so a sparse
// file only has to name what it changes.
func (c *Config) applyDefaults() {
	if c.DebounceMs == 0 {
		c.DebounceMs = DefaultDebounceMs
	}
	if c.RecentWindowMinutes == 0 {
		c.RecentWindowMinutes = DefaultRecentWindowMinutes
	}
	if c.ReconcileSeconds == 0 {
		c.ReconcileSeconds = DefaultReconcileSeconds
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = record.DefaultRetentionDays
	}

	histDefaults := history.DefaultConfig(c.History.Dir)
	if c.History.RotationSizeBytes == 0 {
		c.History.RotationSizeBytes = histDefaults.RotationSize
	}
	if c.History.RetentionDays == 0 {
		c.History.RetentionDays = histDefaults.RetentionDays
	}
}

// Validate checks that the configuration has all required fields and
// that every value is usable. Filesystem state is not consulted; see
// ValidateConfig for the full check.
func (c *Config) Validate() error {
	if c.WatchDir == "" {
		return &ConfigError{
			Type:    ValidationError,
			Message: "watch_dir must be set",
		}
	}
	if c.DebounceMs < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "debounce_ms cannot be negative",
		}
	}
	if c.RecentWindowMinutes < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "recent_window_minutes cannot be negative",
		}
	}
	if c.ReconcileSeconds < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "reconcile_seconds cannot be negative",
		}
	}
	if c.RetentionDays < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "retention_days cannot be negative",
		}
	}
	if c.History.RotationSizeBytes < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "history.rotation_size_bytes cannot be negative",
		}
	}
	if c.History.RetentionDays < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "history.retention_days cannot be negative",
		}
	}

	if _, err := watcher.NewFileFilter(c.IgnorePatterns); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("bad ignore pattern: %s", err.Error()),
		}
	}

	for i, target := range c.Targets {
		if target.Name == "" {
			return &ConfigError{
				Type:    ValidationError,
				Message: fmt.Sprintf("targets[%d].name cannot be empty", i),
			}
		}
		if target.Path == "" {
			return &ConfigError{
				Type:    ValidationError,
				Message: fmt.Sprintf("targets[%d].path cannot be empty", i),
			}
		}
	}

	return nil
}

// Debounce returns the watcher debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// RecentWindow returns how far back the recent view reaches.
func (c *Config) RecentWindow() time.Duration {
	return time.Duration(c.RecentWindowMinutes) * time.Minute
}

// ReconcileInterval returns how often the collection is checked against
// the directory.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileSeconds) * time.Second
}

// HistoryWriterConfig resolves the history settings into a writer
// config, defaulting the log directory under the data directory.
func (c *Config) HistoryWriterConfig() (history.Config, error) {
	dir := c.History.Dir
	if dir == "" {
		var err error
		dir, err = HistoryDir()
		if err != nil {
			return history.Config{}, err
		}
	}
	return history.Config{
		Dir:           dir,
		RotationSize:  c.History.RotationSizeBytes,
		RetentionDays: c.History.RetentionDays,
	}, nil
}

// Load reads and parses a configuration file from the given path.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{
				Type: FileNotFound,
				Path: filePath,
			}
		}
		return nil, &ConfigError{
			Type:    FileNotFound,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{
			Type:    InvalidTOML,
			Message: err.Error(),
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads config if it exists, or returns the default
// configuration if the file doesn't exist.
func LoadOrDefault(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(filePath)
}

// Save serializes and writes a configuration to the given path,
// creating parent directories as needed.
func Save(cfg *Config, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to create configuration directory: %s", err.Error()),
		}
	}

	f, err := os.Create(filePath)
	if err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
		}
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return &ConfigError{
			Type:    InvalidTOML,
			Message: err.Error(),
		}
	}
	if err := f.Close(); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
		}
	}
	return nil
}

// DefaultPath returns the config file location, honoring the
// DONLOAD_CONFIG environment variable.
func DefaultPath() (string, error) {
	if path := os.Getenv("DONLOAD_CONFIG"); path != "" {
		return path, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, "donload", "config.toml"), nil
}

// DataDir returns the base directory for donload state, honoring the
// DONLOAD_HOME environment variable.
func DataDir() (string, error) {
	if path := os.Getenv("DONLOAD_HOME"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "donload"), nil
}

// StatePath returns where persisted preferences live.
func StatePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// HistoryDir returns the default directory for history logs.
func HistoryDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}
