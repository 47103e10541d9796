package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func validConfig(watchDir string) *Config {
	cfg := &Config{WatchDir: watchDir}
	cfg.applyDefaults()
	return cfg
}

func fieldsOf(issues []ConfigValidationError) []string {
	fields := make([]string, len(issues))
	for i, issue := range issues {
		fields[i] = issue.Field
	}
	return fields
}

func TestValidationReportsAllErrors(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("Validation reports all errors, not just the first", prop.ForAll(
		func(numBadPatterns, numDuplicateTargets int) bool {
			tmpDir := t.TempDir()

			cfg := validConfig(tmpDir)

			for i := 0; i < numBadPatterns; i++ {
				cfg.IgnorePatterns = append(cfg.IgnorePatterns, "[unclosed")
			}

			// One good target plus duplicates of its name. Paths sit
			// directly under an existing parent, so only the name
			// clashes count.
			cfg.Targets = append(cfg.Targets, TargetConfig{
				Name: "Archive",
				Path: filepath.Join(tmpDir, "base"),
			})
			for i := 0; i < numDuplicateTargets; i++ {
				cfg.Targets = append(cfg.Targets, TargetConfig{
					Name: "archive",
					Path: filepath.Join(tmpDir, fmt.Sprintf("dup-%d", i)),
				})
			}

			result := ValidateConfig(cfg)

			expected := numBadPatterns + numDuplicateTargets
			if len(result.Errors) != expected {
				t.Logf("Got %d errors, want %d: %v", len(result.Errors), expected, result.Errors)
				return false
			}
			return result.Valid == (expected == 0)
		},
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

// TestValidateConfig_CleanConfig verifies a stock configuration with an
// existing watch directory produces no findings.
func TestValidateConfig_CleanConfig(t *testing.T) {
	result := ValidateConfig(validConfig(t.TempDir()))

	if !result.Valid {
		t.Errorf("Expected valid, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got: %v", result.Warnings)
	}
}

// TestValidateConfig_MissingWatchDirIsWarning verifies a nonexistent
// watch directory is tolerated with a warning, since watching proceeds
// with an empty collection.
func TestValidateConfig_MissingWatchDirIsWarning(t *testing.T) {
	cfg := validConfig(filepath.Join(t.TempDir(), "not-there"))
	result := ValidateConfig(cfg)

	if !result.Valid {
		t.Errorf("Missing directory should not invalidate config: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Field != "watch_dir" {
		t.Errorf("Warnings = %v, want one for watch_dir", result.Warnings)
	}
}

// TestValidateConfig_WatchDirIsFile verifies a file at the watch path
// is an error.
func TestValidateConfig_WatchDirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain-file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	result := ValidateConfig(validConfig(path))
	if result.Valid {
		t.Error("A plain file as watch_dir should be an error")
	}
}

// TestValidateConfig_EmptyWatchDir verifies the empty path is rejected.
func TestValidateConfig_EmptyWatchDir(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	result := ValidateConfig(cfg)
	if result.Valid {
		t.Error("Empty watch_dir should be an error")
	}
}

// TestValidateTimings_NegativeValues verifies each negative interval is
// reported under its own field.
func TestValidateTimings_NegativeValues(t *testing.T) {
	cfg := validConfig(t.TempDir())
	cfg.DebounceMs = -1
	cfg.History.RetentionDays = -7

	issues := ValidateTimings(cfg)
	if len(issues) != 2 {
		t.Fatalf("Got %d issues, want 2: %v", len(issues), issues)
	}
	fields := fieldsOf(issues)
	if fields[0] != "debounce_ms" || fields[1] != "history.retention_days" {
		t.Errorf("Fields = %v", fields)
	}
	for _, issue := range issues {
		if issue.Severity != SeverityError {
			t.Errorf("Severity = %s, want error", issue.Severity)
		}
	}
}

// TestValidatePatterns_BadGlob verifies an uncompilable pattern is
// reported with its index.
func TestValidatePatterns_BadGlob(t *testing.T) {
	cfg := validConfig(t.TempDir())
	cfg.IgnorePatterns = []string{"*.bak", "[unclosed"}

	issues := ValidatePatterns(cfg)
	if len(issues) != 1 {
		t.Fatalf("Got %d issues, want 1: %v", len(issues), issues)
	}
	if issues[0].Field != "ignore_patterns[1]" {
		t.Errorf("Field = %s, want ignore_patterns[1]", issues[0].Field)
	}
}

// TestValidateTargets_OverlapWithWatchDir verifies a target inside the
// watched directory is flagged as a warning.
func TestValidateTargets_OverlapWithWatchDir(t *testing.T) {
	watchDir := t.TempDir()
	inside := filepath.Join(watchDir, "sorted")
	if err := os.MkdirAll(inside, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	cfg := validConfig(watchDir)
	cfg.Targets = []TargetConfig{{Name: "Sorted", Path: inside}}

	result := ValidateConfig(cfg)
	if !result.Valid {
		t.Errorf("Overlap should only warn: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one", result.Warnings)
	}
}

// TestValidateTargets_MissingParent verifies an uncreatable target path
// is flagged as a warning.
func TestValidateTargets_MissingParent(t *testing.T) {
	cfg := validConfig(t.TempDir())
	cfg.Targets = []TargetConfig{
		{Name: "Deep", Path: filepath.Join(t.TempDir(), "missing", "deep")},
	}

	result := ValidateConfig(cfg)
	if !result.Valid {
		t.Errorf("Missing parent should only warn: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %v, want exactly one", result.Warnings)
	}
}

// TestValidateTargets_PathIsFile verifies a plain file as target path
// is an error.
func TestValidateTargets_PathIsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "occupied")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := validConfig(t.TempDir())
	cfg.Targets = []TargetConfig{{Name: "Bad", Path: path}}

	result := ValidateConfig(cfg)
	if result.Valid {
		t.Error("A plain file as target path should be an error")
	}
}

// TestDirectoriesOverlap covers the ancestor relation in both
// directions.
func TestDirectoriesOverlap(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"/home/u/Downloads", "/home/u/Downloads", true},
		{"/home/u/Downloads", "/home/u/Downloads/sorted", true},
		{"/home/u/Downloads/sorted", "/home/u/Downloads", true},
		{"/home/u/Downloads", "/home/u/Documents", false},
		{"/home/u/Downloads", "/home/u/DownloadsArchive", false},
	}
	for _, tc := range cases {
		if got := directoriesOverlap(tc.a, tc.b); got != tc.want {
			t.Errorf("directoriesOverlap(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
