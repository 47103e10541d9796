// Package watcher provides debounced change notifications for a downloads directory.
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnorePatterns returns the default patterns for entries that are
// never worth tracking: in-progress downloads and system housekeeping files.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.partial",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		".~*",          // office lock files
		"Thumbs.db",
		"desktop.ini",
	}
}

// FileFilter decides which directory entries are worth tracking. Hidden
// files and anything matching an ignore pattern are dropped.
type FileFilter struct {
	compiled []glob.Glob
	patterns []string
}

// NewFileFilter compiles ignore patterns into a filter. The default
// patterns are always included; extra ones extend them.
func NewFileFilter(extra []string) (*FileFilter, error) {
	patterns := append(DefaultIgnorePatterns(), extra...)
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return &FileFilter{
		compiled: compiled,
		patterns: patterns,
	}, nil
}

// ShouldIgnore checks whether the entry named by path is filtered out.
// It matches against the filename (base name) only.
func (f *FileFilter) ShouldIgnore(path string) bool {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, g := range f.compiled {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// GetPatterns returns the current ignore patterns, defaults included.
func (f *FileFilter) GetPatterns() []string {
	result := make([]string, len(f.patterns))
	copy(result, f.patterns)
	return result
}
