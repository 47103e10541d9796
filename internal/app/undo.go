package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"donload/internal/history"
	"donload/internal/organizer"
)

// ErrNothingToUndo is returned when the history holds no move that can
// still be reversed.
var ErrNothingToUndo = errors.New("nothing to undo")

// UndoLastMove reverses the most recent move recorded in history,
// returning the file to the exact path it was moved from. The restore
// never overwrites: if something now occupies the original path, or the
// moved file is gone from its destination, the history stays as it is
// and a typed move error describes why. Each successful reversal is
// itself recorded, so repeated calls walk back through earlier moves.
func (a *App) UndoLastMove() (*history.Event, error) {
	ev, err := history.LastMove(a.historyDir)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if ev == nil {
		return nil, ErrNothingToUndo
	}

	if err := os.MkdirAll(filepath.Dir(ev.Path), 0755); err != nil {
		return nil, fmt.Errorf("restoring %s: %w", ev.Path, err)
	}
	if err := organizer.MoveTo(ev.Destination, ev.Path); err != nil {
		return nil, err
	}

	// The file is back; a failed log write must not report the undo
	// itself as failed.
	if err := a.history.RecordUndo(ev.Destination, ev.Path); err != nil {
		a.logger.Warn("recording undo failed", "path", ev.Path, "error", err)
	}
	return ev, nil
}
