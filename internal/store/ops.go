package store

import (
	"context"
	"errors"
	"fmt"

	"donload/internal/history"
	"donload/internal/organizer"
	"donload/internal/record"
	"donload/internal/trash"
	"donload/internal/watcher"
)

// Find resolves a reference to a tracked record. The reference may be
// a record ID, a full path, or a bare filename; the newest match wins.
func (s *Store) Find(ref string) (record.FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == ref || rec.Path == ref || rec.Name == ref {
			return rec.Clone(), true
		}
	}
	return record.FileRecord{}, false
}

// findLocked locates the live record with the given ID.
func (s *Store) findLocked(id string) (*record.FileRecord, bool) {
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return nil, false
}

// Trash moves the file behind the record to the platform trash. On
// success the record leaves the collection; on failure nothing
// changes.
func (s *Store) Trash(id string) error {
	s.mu.Lock()
	rec, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	path := rec.Path

	storedAs, err := trash.Trash(path)
	if err != nil {
		s.mu.Unlock()
		s.recordHistory(func(h *history.Writer) error {
			return h.RecordFailure(history.EventTrash, path, err)
		})
		return err
	}

	s.removeLocked(rec)
	s.stats.Trashed++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("trashed", "path", path, "as", storedAs)
	s.recordHistory(func(h *history.Writer) error {
		return h.RecordTrash(path, storedAs)
	})
	s.notify(snap)
	return nil
}

// Move relocates the file behind the record into destDir, renaming on
// name collisions. A file still growing on disk is left alone and the
// move fails with watcher.ErrUnsettled. On success the record leaves
// the collection and destDir is remembered as a recent destination; on
// failure nothing changes.
func (s *Store) Move(id, destDir string) (*organizer.MoveResult, error) {
	// The settle wait runs off the lock so a half-written download
	// cannot stall the event loop. Other settle errors fall through;
	// the move itself reports them with the right type.
	if rec, ok := s.Find(id); ok {
		err := s.settle.WaitSettled(context.Background(), rec.Path)
		if errors.Is(err, watcher.ErrUnsettled) {
			s.recordHistory(func(h *history.Writer) error {
				return h.RecordFailure(history.EventMove, rec.Path, err)
			})
			return nil, err
		}
	}

	s.mu.Lock()
	rec, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	path := rec.Path

	result, err := organizer.Move(path, destDir)
	if err != nil {
		s.mu.Unlock()
		s.recordHistory(func(h *history.Writer) error {
			return h.RecordFailure(history.EventMove, path, err)
		})
		return nil, err
	}

	s.removeLocked(rec)
	s.stats.Moved++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("moved", "path", path, "to", result.DestinationPath)
	s.recordHistory(func(h *history.Writer) error {
		return h.RecordMove(path, result.DestinationPath)
	})
	if s.cfg.Prefs != nil {
		if err := s.cfg.Prefs.Touch(destDir); err != nil {
			s.log.Warn("failed to remember destination", "dir", destDir, "error", err)
		}
	}
	s.notify(snap)
	return result, nil
}

// Evict drops the record from the collection without touching the
// file. A short-lived tombstone stops a trailing watcher event from
// putting it straight back. Reports whether the record was present.
func (s *Store) Evict(id string) bool {
	s.mu.Lock()
	rec, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	path := rec.Path
	s.removeLocked(rec)
	s.tombstones[path] = s.clock.Now().Add(evictionTombstoneTTL)
	s.stats.Evicted++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("evicted", "path", path)
	s.recordHistory(func(h *history.Writer) error {
		return h.RecordEvict(path)
	})
	s.notify(snap)
	return true
}

// SetExcluded marks or unmarks a record as exempt from the auto-delete
// policy. Reports whether the record was present.
func (s *Store) SetExcluded(id string, excluded bool) bool {
	s.mu.Lock()
	rec, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	rec.Excluded = excluded
	if excluded {
		rec.Status = record.StatusExcluded
	} else {
		rec.Status = record.StatusNormal
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}
