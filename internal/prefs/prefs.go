// Package prefs persists process-wide preferences: the recently used
// destination folders, the retention window, and the auto-open toggle.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"donload/internal/record"
)

// DefaultRecentLimit bounds the recently used folder list.
const DefaultRecentLimit = 10

// state is the on-disk shape. RecentFolders is most recent first.
type state struct {
	RecentFolders []string `json:"recentFolders"`
	RetentionDays int      `json:"retentionDays"`
	AutoOpen      bool     `json:"autoOpenOnDownload"`
}

// Prefs holds in-memory preferences backed by a JSON state file. Reads
// of missing or corrupted state fall back to defaults so a damaged file
// never blocks startup.
type Prefs struct {
	mu            sync.Mutex
	path          string
	recent        *lru.Cache[string, struct{}]
	retentionDays int
	autoOpen      bool
}

// Load reads preferences from path. A missing or unreadable state file
// yields defaults; the returned error is informational only and the
// Prefs value is always usable.
func Load(path string) (*Prefs, error) {
	cache, err := lru.New[string, struct{}](DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	p := &Prefs{
		path:          path,
		recent:        cache,
		retentionDays: record.DefaultRetentionDays,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, err
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return p, nil
	}

	if st.RetentionDays > 0 {
		p.retentionDays = st.RetentionDays
	}
	p.autoOpen = st.AutoOpen

	// The list is stored most recent first; feed the cache oldest first
	// so recency order survives the roundtrip.
	for i := len(st.RecentFolders) - 1; i >= 0; i-- {
		if st.RecentFolders[i] != "" {
			p.recent.Add(st.RecentFolders[i], struct{}{})
		}
	}
	return p, nil
}

// Touch records a use of dir, moving it to the front of the recent list
// and evicting the oldest entry past the limit. The state file is
// rewritten on every touch.
func (p *Prefs) Touch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.recent.Add(abs, struct{}{})
	return p.saveLocked()
}

// RecentFolders returns the recently used folders, most recent first.
func (p *Prefs) RecentFolders() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recentLocked()
}

func (p *Prefs) recentLocked() []string {
	keys := p.recent.Keys() // oldest to newest
	out := make([]string, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		out = append(out, keys[i])
	}
	return out
}

// RetentionDays returns how long a file may sit untouched before the
// auto-delete policy would flag it.
func (p *Prefs) RetentionDays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retentionDays
}

// SetRetentionDays updates and persists the retention window.
func (p *Prefs) SetRetentionDays(days int) error {
	if days <= 0 {
		return &ValidationError{Field: "retentionDays", Reason: "must be positive"}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retentionDays = days
	return p.saveLocked()
}

// AutoOpen returns whether new downloads should be surfaced immediately.
func (p *Prefs) AutoOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoOpen
}

// SetAutoOpen updates and persists the auto-open toggle.
func (p *Prefs) SetAutoOpen(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoOpen = on
	return p.saveLocked()
}

func (p *Prefs) saveLocked() error {
	st := state{
		RecentFolders: p.recentLocked(),
		RetentionDays: p.retentionDays,
		AutoOpen:      p.autoOpen,
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0644)
}

// ValidationError reports a rejected preference value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
