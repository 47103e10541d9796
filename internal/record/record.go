// Package record defines the in-memory model for a tracked download.
package record

import (
	"fmt"
	"time"
)

// Status describes how a tracked file is currently presented to consumers.
type Status string

const (
	StatusNormal   Status = "NORMAL"
	StatusSelected Status = "SELECTED"
	StatusMoved    Status = "MOVED"
	StatusDeleted  Status = "DELETED"
	StatusExcluded Status = "EXCLUDED"
)

// DefaultRetentionDays is how long a file may sit untouched before the
// auto-delete policy considers it stale.
const DefaultRetentionDays = 7

// FileRecord is one tracked file in the watched directory. The store owns
// the canonical set; records handed to consumers are value copies.
type FileRecord struct {
	ID           string
	Path         string
	Name         string
	Size         int64
	Kind         Kind
	AddedAt      time.Time
	LastOpenedAt *time.Time
	Status       Status
	OriginURLs   []string
	Excluded     bool
}

// EffectiveLastUsed returns the moment the file was last meaningfully
// touched: the last-opened time when known, otherwise when it was added.
func (r *FileRecord) EffectiveLastUsed() time.Time {
	if r.LastOpenedAt != nil {
		return *r.LastOpenedAt
	}
	return r.AddedAt
}

// ShouldAutoDelete reports whether the file has sat untouched for longer
// than retentionDays. Excluded records never qualify. This is advisory
// only; nothing in this package deletes anything.
func (r *FileRecord) ShouldAutoDelete(retentionDays int, now time.Time) bool {
	if r.Excluded {
		return false
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	return r.EffectiveLastUsed().Before(cutoff)
}

// Age renders how long ago the file arrived, e.g. "45s", "12m", "3h", "2d",
// "1w", "1y". Minutes and months share the "m" suffix.
func (r *FileRecord) Age(now time.Time) string {
	return FormatAge(now.Sub(r.AddedAt))
}

// FormatAge renders a duration using the largest single unit that fits.
// Negative durations render as "0s".
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}

	days := int(d.Hours() / 24)
	switch {
	case days < 7:
		return fmt.Sprintf("%dd", days)
	case days < 30:
		return fmt.Sprintf("%dw", days/7)
	case days < 365:
		return fmt.Sprintf("%dm", days/30)
	default:
		return fmt.Sprintf("%dy", days/365)
	}
}

// HumanSize renders a byte count for display, e.g. "482 B", "1.5 MB".
func HumanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// Clone returns a value copy safe to hand outside the owning store.
// The last-opened pointer and origin slice are duplicated so callers
// cannot mutate shared state.
func (r *FileRecord) Clone() FileRecord {
	c := *r
	if r.LastOpenedAt != nil {
		t := *r.LastOpenedAt
		c.LastOpenedAt = &t
	}
	if len(r.OriginURLs) > 0 {
		c.OriginURLs = append([]string(nil), r.OriginURLs...)
	}
	return c
}
