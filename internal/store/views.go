package store

import (
	"sort"
	"strings"
	"time"

	"donload/internal/record"
)

// SortMode selects the ordering of the Sorted view.
type SortMode string

const (
	SortAdded    SortMode = "added" // arrival time, newest first
	SortName     SortMode = "name"  // case-insensitive name
	SortSize     SortMode = "size"  // byte size, largest first
	SortLastUsed SortMode = "used"  // effective last use, most recent first
)

// All returns every tracked record, newest first. A limit <= 0 returns
// everything.
func (s *Store) All(limit int) []record.FileRecord {
	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	if limit > 0 && len(snap) > limit {
		snap = snap[:limit]
	}
	return snap
}

// Recent returns the records added within the recent window, newest
// first.
func (s *Store) Recent() []record.FileRecord {
	return s.RecentWithin(s.cfg.RecentWindow)
}

// RecentWithin returns the records added within the given trailing
// window, newest first.
func (s *Store) RecentWithin(window time.Duration) []record.FileRecord {
	if window <= 0 {
		window = s.cfg.RecentWindow
	}
	cutoff := s.clock.Now().Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []record.FileRecord
	for _, rec := range s.records {
		// Ordered newest first, so the first record past the cutoff
		// ends the walk.
		if rec.AddedAt.Before(cutoff) {
			break
		}
		out = append(out, rec.Clone())
	}
	return out
}

// Sorted returns all records ordered by mode. Reverse flips the mode's
// natural direction.
func (s *Store) Sorted(mode SortMode, reverse bool) []record.FileRecord {
	recs := s.All(0)

	switch mode {
	case SortName:
		sort.SliceStable(recs, func(i, j int) bool {
			return strings.ToLower(recs[i].Name) < strings.ToLower(recs[j].Name)
		})
	case SortSize:
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].Size > recs[j].Size
		})
	case SortLastUsed:
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].EffectiveLastUsed().After(recs[j].EffectiveLastUsed())
		})
	case SortAdded:
		// All already returns newest first.
	}

	if reverse {
		for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
			recs[i], recs[j] = recs[j], recs[i]
		}
	}
	return recs
}

// AutoDeleteCandidates returns the records the retention policy would
// remove. Advisory only; the store never deletes on its own.
func (s *Store) AutoDeleteCandidates() []record.FileRecord {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []record.FileRecord
	for _, rec := range s.records {
		if rec.ShouldAutoDelete(s.cfg.RetentionDays, now) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Len returns the number of tracked records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Stats returns a copy of the session counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
