// Package store maintains the in-memory collection of tracked
// downloads that mirrors the watched directory. A single apply loop
// consumes watcher events, scan results, and the reconciliation
// ticker, so every mutation driven by the filesystem is serialized in
// delivery order.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"donload/internal/history"
	"donload/internal/metadata"
	"donload/internal/prefs"
	"donload/internal/record"
	"donload/internal/scanner"
	"donload/internal/watcher"
)

const (
	// DefaultRecentWindow bounds the "just downloaded" view.
	DefaultRecentWindow = 5 * time.Minute

	// DefaultReconcileInterval is how often tracked paths are re-checked
	// against the filesystem.
	DefaultReconcileInterval = 60 * time.Second

	// evictionTombstoneTTL is how long a just-evicted path stays
	// suppressed so a trailing watcher event cannot put it straight back.
	evictionTombstoneTTL = 5 * time.Second
)

// ErrNotFound is returned by operations referencing an untracked record.
var ErrNotFound = errors.New("record not found")

// Config carries the store settings and its optional collaborators.
type Config struct {
	Dir               string              // watched directory (required)
	Filter            *watcher.FileFilter // entry filter shared with scan and watch
	Debounce          time.Duration       // watcher quiet period
	RecentWindow      time.Duration       // trailing window for Recent (default 5m)
	ReconcileInterval time.Duration       // stale-path sweep period (default 60s)
	RetentionDays     int                 // auto-delete advisory horizon (default 7)

	History *history.Writer    // optional operation log
	Prefs   *prefs.Prefs       // optional; successful moves remember the destination
	Logger  Logger             // defaults to NopLogger
	Clock   record.Clock       // defaults to the system clock
	IDs     record.IDGenerator // defaults to UUIDs

	// OnChange receives a fresh snapshot after every collection change.
	OnChange func(records []record.FileRecord)
	// OnNewFile fires once per genuinely new arrival, and only after
	// the initial scan has completed.
	OnNewFile func(rec record.FileRecord)
}

// Stats counts store activity over the current process lifetime.
type Stats struct {
	Created    int // files picked up from watcher events
	Removed    int // files dropped because the watcher saw them vanish
	Opened     int // modification events folded into LastOpenedAt
	Moved      int
	Trashed    int
	Evicted    int
	Reconciled int // stale records dropped by reconciliation
}

// Store owns the collection of tracked downloads.
type Store struct {
	cfg     Config
	watcher *watcher.Watcher
	scanner *scanner.Scanner
	settle  *watcher.StabilityChecker
	log     Logger
	clock   record.Clock
	ids     record.IDGenerator

	mu         sync.RWMutex
	records    []*record.FileRecord // ordered newest first
	byPath     map[string]*record.FileRecord
	tombstones map[string]time.Time // path -> suppression deadline
	scanned    bool
	stats      Stats

	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Store over cfg.Dir. The directory does not need to
// exist yet; a missing directory simply yields an empty collection.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("store: no directory configured")
	}
	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, err
	}
	cfg.Dir = abs

	if cfg.Filter == nil {
		cfg.Filter, err = watcher.NewFileFilter(nil)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = watcher.DefaultDebounce
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultReconcileInterval
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = record.DefaultRetentionDays
	}
	if cfg.Logger == nil {
		cfg.Logger = NewNopLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = record.RealClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = record.UUIDGenerator{}
	}

	w, err := watcher.New(watcher.Config{
		Dir:      cfg.Dir,
		Debounce: cfg.Debounce,
		Filter:   cfg.Filter,
	})
	if err != nil {
		return nil, err
	}
	sc, err := scanner.New(cfg.Filter, cfg.IDs, cfg.Clock)
	if err != nil {
		return nil, err
	}

	return &Store{
		cfg:        cfg,
		watcher:    w,
		scanner:    sc,
		settle:     watcher.NewStabilityChecker(cfg.Debounce),
		log:        cfg.Logger,
		clock:      cfg.Clock,
		ids:        cfg.IDs,
		byPath:     make(map[string]*record.FileRecord),
		tombstones: make(map[string]time.Time),
	}, nil
}

// Dir returns the watched directory.
func (s *Store) Dir() string {
	return s.cfg.Dir
}

// Start launches the initial scan, the watcher, and the apply loop.
// Calling Start on a running store is a no-op. A directory that cannot
// be watched behaves like an empty one: no events, no error surfaced.
func (s *Store) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.scanned = false
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	if err := s.watcher.Start(); err != nil {
		s.log.Warn("watch failed, continuing without events", "dir", s.cfg.Dir, "error", err)
	}

	scanCh := make(chan []*record.FileRecord, 1)
	s.wg.Add(2)
	go s.initialScan(scanCh)
	go s.run(ctx, done, scanCh)
}

// Stop halts the watcher and the apply loop. The collection survives,
// and a stopped store can be started again. Safe to call repeatedly.
func (s *Store) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.done
	s.mu.Unlock()

	close(done)
	s.watcher.Stop()
	s.wg.Wait()
}

// IsRunning reports whether the apply loop is active.
func (s *Store) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// initialScan walks the directory off the apply loop and hands the
// result back to it.
func (s *Store) initialScan(scanCh chan<- []*record.FileRecord) {
	defer s.wg.Done()

	recs, err := s.scanner.Scan(s.cfg.Dir)
	if err != nil {
		// A missing or unreadable directory mirrors as an empty shelf.
		s.log.Warn("initial scan failed", "dir", s.cfg.Dir, "error", err)
		recs = nil
	}
	scanCh <- recs
}

// run is the apply loop. Everything that mutates the collection from
// the filesystem side funnels through here.
func (s *Store) run(ctx context.Context, done <-chan struct{}, scanCh <-chan []*record.FileRecord) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case recs := <-scanCh:
			s.installScan(recs)
		case ev := <-s.watcher.Events():
			s.Apply(ev)
		case <-ticker.C:
			s.Reconcile()
		}
	}
}

// ScanNow rebuilds the collection synchronously. Used by one-shot
// commands that have no running watcher.
func (s *Store) ScanNow() error {
	recs, err := s.scanner.Scan(s.cfg.Dir)
	if err != nil {
		return err
	}
	s.installScan(recs)
	return nil
}

// installScan replaces the collection with a scan result. Files that
// were already tracked keep their identity, their earliest known
// arrival time, and their flags. Files the watcher added while the
// scan was in flight are kept as long as they are still on disk.
func (s *Store) installScan(scanRecs []*record.FileRecord) {
	s.mu.Lock()

	merged := make([]*record.FileRecord, 0, len(scanRecs))
	byPath := make(map[string]*record.FileRecord, len(scanRecs))

	for _, rec := range scanRecs {
		if existing, ok := s.byPath[rec.Path]; ok {
			rec.ID = existing.ID
			if existing.AddedAt.Before(rec.AddedAt) {
				rec.AddedAt = existing.AddedAt
			}
			if rec.LastOpenedAt == nil {
				rec.LastOpenedAt = existing.LastOpenedAt
			}
			rec.Status = existing.Status
			rec.Excluded = existing.Excluded
		}
		merged = append(merged, rec)
		byPath[rec.Path] = rec
	}

	for _, rec := range s.records {
		if _, ok := byPath[rec.Path]; ok {
			continue
		}
		if _, err := os.Stat(rec.Path); err != nil {
			continue
		}
		merged = append(merged, rec)
		byPath[rec.Path] = rec
	}

	sortNewestFirst(merged)

	s.records = merged
	s.byPath = byPath
	s.scanned = true
	count := len(merged)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("scan installed", "dir", s.cfg.Dir, "files", count)
	s.recordHistory(func(h *history.Writer) error {
		return h.RecordScan(s.cfg.Dir, count)
	})
	s.notify(snap)
}

// Apply folds one watcher event into the collection. Application is
// idempotent: replaying an event is harmless.
func (s *Store) Apply(ev watcher.Event) {
	switch ev.Kind {
	case watcher.Created:
		s.applyCreated(ev.Path)
	case watcher.Removed:
		s.applyRemoved(ev.Path)
	case watcher.Modified:
		s.applyModified(ev.Path)
	}
}

func (s *Store) applyCreated(path string) {
	// The file may already be gone, or turn out not to be a plain file.
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	now := s.clock.Now()

	s.mu.Lock()
	if deadline, ok := s.tombstones[path]; ok {
		if now.Before(deadline) {
			s.mu.Unlock()
			return
		}
		delete(s.tombstones, path)
	}
	if _, ok := s.byPath[path]; ok {
		s.mu.Unlock()
		return
	}

	rec := scanner.BuildRecord(path, info, s.ids, now)
	s.insertLocked(rec)
	s.stats.Created++
	addedAt := rec.AddedAt
	fireNew := s.scanned
	newRec := rec.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	// Remember when the file first appeared so a later rescan derives
	// the same arrival time.
	if err := metadata.StampAdded(path, addedAt); err != nil {
		s.log.Debug("stamp failed", "path", path, "error", err)
	}

	s.log.Debug("file added", "path", path)
	if fireNew && s.cfg.OnNewFile != nil {
		s.cfg.OnNewFile(newRec)
	}
	s.notify(snap)
}

func (s *Store) applyRemoved(path string) {
	s.mu.Lock()
	rec, ok := s.byPath[path]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.removeLocked(rec)
	s.stats.Removed++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("file removed", "path", path)
	s.notify(snap)
}

func (s *Store) applyModified(path string) {
	s.mu.Lock()
	rec, ok := s.byPath[path]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	rec.LastOpenedAt = &now
	if info, err := os.Stat(path); err == nil {
		rec.Size = info.Size()
	}
	s.stats.Opened++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Reconcile drops every record whose backing file is gone. It runs on
// a timer while the store is started and is safe to call directly.
// Returns how many records were dropped.
func (s *Store) Reconcile() int {
	now := s.clock.Now()

	s.mu.Lock()
	dropped := 0
	kept := s.records[:0]
	for _, rec := range s.records {
		if _, err := os.Stat(rec.Path); os.IsNotExist(err) {
			delete(s.byPath, rec.Path)
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	s.stats.Reconciled += dropped

	for path, deadline := range s.tombstones {
		if now.After(deadline) {
			delete(s.tombstones, path)
		}
	}

	if dropped == 0 {
		s.mu.Unlock()
		return 0
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("reconciled", "dropped", dropped)
	s.recordHistory(func(h *history.Writer) error {
		return h.RecordReconcile(s.cfg.Dir, dropped)
	})
	s.notify(snap)
	return dropped
}

// notify hands a snapshot to the change subscriber, if any.
func (s *Store) notify(snap []record.FileRecord) {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
}

// recordHistory writes an operation event, treating failures as
// log-worthy but never fatal.
func (s *Store) recordHistory(write func(*history.Writer) error) {
	if s.cfg.History == nil {
		return
	}
	if err := write(s.cfg.History); err != nil {
		s.log.Warn("history write failed", "error", err)
	}
}

// insertLocked places rec by arrival time, newest first.
func (s *Store) insertLocked(rec *record.FileRecord) {
	i := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].AddedAt.Before(rec.AddedAt)
	})
	s.records = append(s.records, nil)
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = rec
	s.byPath[rec.Path] = rec
}

func (s *Store) removeLocked(rec *record.FileRecord) {
	delete(s.byPath, rec.Path)
	for i, r := range s.records {
		if r == rec {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

// snapshotLocked copies the collection for handing outside the lock.
func (s *Store) snapshotLocked() []record.FileRecord {
	out := make([]record.FileRecord, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Clone()
	}
	return out
}

func sortNewestFirst(records []*record.FileRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].AddedAt.Equal(records[j].AddedAt) {
			return records[i].AddedAt.After(records[j].AddedAt)
		}
		return records[i].Name < records[j].Name
	})
}
