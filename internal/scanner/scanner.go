// Package scanner builds file records from a full directory listing.
package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"donload/internal/metadata"
	"donload/internal/record"
	"donload/internal/watcher"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the directory does not exist or is not
	// a directory.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions to read the
	// directory.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
)

// ScanError represents an error that occurred during directory scanning.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Scanner enumerates a downloads directory and derives a record per file.
type Scanner struct {
	filter *watcher.FileFilter
	ids    record.IDGenerator
	clock  record.Clock
}

// New creates a Scanner. A nil filter falls back to the default ignore
// patterns; nil ids or clock fall back to UUIDs and the system clock.
func New(filter *watcher.FileFilter, ids record.IDGenerator, clock record.Clock) (*Scanner, error) {
	if filter == nil {
		var err error
		filter, err = watcher.NewFileFilter(nil)
		if err != nil {
			return nil, err
		}
	}
	if ids == nil {
		ids = record.UUIDGenerator{}
	}
	if clock == nil {
		clock = record.RealClock{}
	}
	return &Scanner{filter: filter, ids: ids, clock: clock}, nil
}

// Scan enumerates dir without recursion and returns a record for every
// regular file that survives filtering, newest first. Subdirectories,
// symlinks, and unreadable entries are skipped.
func (s *Scanner) Scan(dir string) ([]*record.FileRecord, error) {
	info, err := os.Lstat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ScanError{Type: DirectoryNotFound, Path: dir, Err: err}
		}
		if os.IsPermission(err) {
			return nil, &ScanError{Type: PermissionDenied, Path: dir, Err: err}
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, &ScanError{
			Type: DirectoryNotFound,
			Path: dir,
			Err:  errors.New("path is not a directory"),
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &ScanError{Type: PermissionDenied, Path: dir, Err: err}
		}
		return nil, err
	}

	now := s.clock.Now()
	records := make([]*record.FileRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if s.filter.ShouldIgnore(entry.Name()) {
			continue
		}

		fullPath := filepath.Join(dir, entry.Name())
		absPath, err := filepath.Abs(fullPath)
		if err != nil {
			absPath = fullPath
		}

		// Skip entries we can't stat and anything that isn't a regular
		// file, symlinks included.
		entryInfo, err := entry.Info()
		if err != nil {
			continue
		}
		if !entryInfo.Mode().IsRegular() {
			continue
		}

		records = append(records, BuildRecord(absPath, entryInfo, s.ids, now))
	}

	sortNewestFirst(records)
	return records, nil
}

// BuildRecord derives the tracked record for a single file from its
// on-disk metadata. It is shared by the full scan and by the event
// path that picks up files appearing after the scan.
func BuildRecord(path string, info os.FileInfo, ids record.IDGenerator, now time.Time) *record.FileRecord {
	name := filepath.Base(path)
	meta := metadata.Resolve(path, info, now)
	return &record.FileRecord{
		ID:           ids.New(),
		Path:         path,
		Name:         name,
		Size:         info.Size(),
		Kind:         record.KindForPath(name),
		AddedAt:      meta.AddedAt,
		LastOpenedAt: meta.LastOpenedAt,
		Status:       record.StatusNormal,
		OriginURLs:   meta.OriginURLs,
	}
}

func sortNewestFirst(records []*record.FileRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].AddedAt.Equal(records[j].AddedAt) {
			return records[i].AddedAt.After(records[j].AddedAt)
		}
		return records[i].Name < records[j].Name
	})
}
