package watcher

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrUnsettled is returned when a file keeps changing size for the
// whole wait budget.
var ErrUnsettled = errors.New("file size did not settle")

// DefaultSettleThreshold is how long a file's size must hold still
// before it counts as fully written.
const DefaultSettleThreshold = 500 * time.Millisecond

// StabilityChecker reports when a file has finished growing. Downloads
// written straight to their final name keep changing size after they
// first appear; relocating such a file would capture a partial copy.
type StabilityChecker struct {
	threshold time.Duration // quiet period that counts as settled
	budget    time.Duration // total time to wait before giving up
	interval  time.Duration // poll spacing
}

// NewStabilityChecker returns a checker requiring the given quiet
// period. A non-positive threshold falls back to the default. The
// checker polls at a quarter of the threshold, no faster than 50ms,
// and gives up after ten quiet periods.
func NewStabilityChecker(threshold time.Duration) *StabilityChecker {
	if threshold <= 0 {
		threshold = DefaultSettleThreshold
	}
	interval := threshold / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return &StabilityChecker{
		threshold: threshold,
		budget:    10 * threshold,
		interval:  interval,
	}
}

// WaitSettled blocks until the file's size has held still for the
// quiet period. A file whose last modification is already older than
// the threshold settles immediately. Returns ErrUnsettled when the
// budget runs out, the stat error when the file cannot be observed,
// and the context error when ctx ends first.
func (c *StabilityChecker) WaitSettled(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if time.Since(info.ModTime()) >= c.threshold {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	lastSize := info.Size()
	lastChange := time.Now()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrUnsettled
			}
			return ctx.Err()
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.Size() != lastSize {
				lastSize = info.Size()
				lastChange = time.Now()
				continue
			}
			if time.Since(lastChange) >= c.threshold {
				return nil
			}
		}
	}
}
