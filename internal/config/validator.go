// Package config handles configuration loading and validation for donload.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "targets[0].path")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// ValidateConfig checks the configuration against the filesystem and
// returns all findings. Unlike Validate, which gates loading, this is
// the full report behind the config check command: it also surfaces
// conditions that are tolerated at runtime, like a missing watch
// directory, as warnings.
func ValidateConfig(cfg *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
		Valid:    true,
	}

	for _, issue := range [][]ConfigValidationError{
		ValidateWatchDir(cfg),
		ValidateTimings(cfg),
		ValidatePatterns(cfg),
		ValidateTargets(cfg),
	} {
		for _, err := range issue {
			if err.Severity == SeverityError {
				result.Errors = append(result.Errors, err)
			} else {
				result.Warnings = append(result.Warnings, err)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateWatchDir checks the watched directory. A missing or
// unreadable directory is only a warning: the watch loop carries on
// with an empty collection until it appears.
func ValidateWatchDir(cfg *Config) []ConfigValidationError {
	var errors []ConfigValidationError

	if cfg.WatchDir == "" {
		return append(errors, ConfigValidationError{
			Field:    "watch_dir",
			Message:  "watch_dir must be set",
			Severity: SeverityError,
		})
	}

	info, err := os.Stat(cfg.WatchDir)
	if err != nil {
		if os.IsNotExist(err) {
			errors = append(errors, ConfigValidationError{
				Field:    "watch_dir",
				Message:  "directory does not exist: " + cfg.WatchDir,
				Severity: SeverityWarning,
			})
		} else if os.IsPermission(err) {
			errors = append(errors, ConfigValidationError{
				Field:    "watch_dir",
				Message:  "directory is not accessible: " + cfg.WatchDir,
				Severity: SeverityWarning,
			})
		} else {
			errors = append(errors, ConfigValidationError{
				Field:    "watch_dir",
				Message:  "error accessing directory: " + err.Error(),
				Severity: SeverityError,
			})
		}
		return errors
	}

	if !info.IsDir() {
		errors = append(errors, ConfigValidationError{
			Field:    "watch_dir",
			Message:  "path is not a directory: " + cfg.WatchDir,
			Severity: SeverityError,
		})
	}

	return errors
}

// ValidateTimings checks that interval and retention values are usable.
func ValidateTimings(cfg *Config) []ConfigValidationError {
	var errors []ConfigValidationError

	checks := []struct {
		field string
		value int64
	}{
		{"debounce_ms", int64(cfg.DebounceMs)},
		{"recent_window_minutes", int64(cfg.RecentWindowMinutes)},
		{"reconcile_seconds", int64(cfg.ReconcileSeconds)},
		{"retention_days", int64(cfg.RetentionDays)},
		{"history.rotation_size_bytes", cfg.History.RotationSizeBytes},
		{"history.retention_days", int64(cfg.History.RetentionDays)},
	}
	for _, check := range checks {
		if check.value < 0 {
			errors = append(errors, ConfigValidationError{
				Field:    check.field,
				Message:  check.field + " cannot be negative",
				Severity: SeverityError,
			})
		}
	}

	return errors
}

// ValidatePatterns checks that every extra ignore pattern compiles.
func ValidatePatterns(cfg *Config) []ConfigValidationError {
	var errors []ConfigValidationError

	for i, pattern := range cfg.IgnorePatterns {
		if _, err := glob.Compile(pattern); err != nil {
			errors = append(errors, ConfigValidationError{
				Field:    formatField("ignore_patterns", i),
				Message:  "invalid glob pattern \"" + pattern + "\": " + err.Error(),
				Severity: SeverityError,
			})
		}
	}

	return errors
}

// ValidateTargets checks pinned destination folders for duplicate names
// and unusable paths.
func ValidateTargets(cfg *Config) []ConfigValidationError {
	var errors []ConfigValidationError

	// Duplicate names are ambiguous when a move names its target.
	nameMap := make(map[string]int) // lowercase name -> first index
	for i, target := range cfg.Targets {
		if target.Name == "" {
			errors = append(errors, ConfigValidationError{
				Field:    formatField("targets", i) + ".name",
				Message:  "name cannot be empty",
				Severity: SeverityError,
			})
		} else {
			lowerName := strings.ToLower(target.Name)
			if firstIdx, exists := nameMap[lowerName]; exists {
				errors = append(errors, ConfigValidationError{
					Field:    formatField("targets", i) + ".name",
					Message:  "duplicate target name (case-insensitive): \"" + target.Name + "\" conflicts with target at index " + strconv.Itoa(firstIdx),
					Severity: SeverityError,
				})
			} else {
				nameMap[lowerName] = i
			}
		}

		if target.Path == "" {
			errors = append(errors, ConfigValidationError{
				Field:    formatField("targets", i) + ".path",
				Message:  "path cannot be empty",
				Severity: SeverityError,
			})
			continue
		}

		// Moving into the watched directory puts the file right back
		// on the shelf.
		if cfg.WatchDir != "" && directoriesOverlap(cfg.WatchDir, target.Path) {
			errors = append(errors, ConfigValidationError{
				Field:    formatField("targets", i) + ".path",
				Message:  "target overlaps the watched directory: " + target.Path,
				Severity: SeverityWarning,
			})
		}

		info, err := os.Stat(target.Path)
		if err == nil {
			if !info.IsDir() {
				errors = append(errors, ConfigValidationError{
					Field:    formatField("targets", i) + ".path",
					Message:  "path exists but is not a directory: " + target.Path,
					Severity: SeverityError,
				})
			}
			continue
		}
		if !os.IsNotExist(err) {
			errors = append(errors, ConfigValidationError{
				Field:    formatField("targets", i) + ".path",
				Message:  "error accessing directory: " + err.Error(),
				Severity: SeverityError,
			})
			continue
		}

		// The directory is created on first move; only flag it when
		// that creation cannot succeed.
		parentDir := filepath.Dir(target.Path)
		if parentInfo, parentErr := os.Stat(parentDir); parentErr != nil || !parentInfo.IsDir() {
			errors = append(errors, ConfigValidationError{
				Field:    formatField("targets", i) + ".path",
				Message:  "parent directory does not exist: " + parentDir,
				Severity: SeverityWarning,
			})
		}
	}

	return errors
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}

// directoriesOverlap checks if two directories overlap (one is
// parent/ancestor of the other).
func directoriesOverlap(dir1, dir2 string) bool {
	clean1 := filepath.Clean(dir1)
	clean2 := filepath.Clean(dir2)

	if clean1 == clean2 {
		return true
	}
	if strings.HasPrefix(clean2, clean1+string(filepath.Separator)) {
		return true
	}
	if strings.HasPrefix(clean1, clean2+string(filepath.Separator)) {
		return true
	}
	return false
}
