package history

// MetadataUndo marks a move event as the reversal of an earlier move.
// Reversals never become undo candidates themselves.
const MetadataUndo = "undo"

// LastMove returns the most recent successful move that can still be
// undone: the moved file has not been moved again since, and the move
// is not itself a reversal. Returns nil when no such move exists.
func LastMove(dir string) (*Event, error) {
	events, err := NewReader(dir).Events(Filter{Types: []EventType{EventMove}})
	if err != nil {
		return nil, err
	}

	// Walk newest first. Any later move out of a path, reversal or
	// not, means the file a move placed there is gone again.
	movedAgain := make(map[string]bool)
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Status != StatusSuccess {
			continue
		}
		if !movedAgain[ev.Destination] && ev.Metadata[MetadataUndo] != "true" {
			return &ev, nil
		}
		movedAgain[ev.Path] = true
	}
	return nil, nil
}

// RecordUndo logs the successful reversal of an earlier move. source is
// where the file sat after the original move, dest the original
// location it returned to.
func (w *Writer) RecordUndo(source, dest string) error {
	return w.Record(Event{
		Type:        EventMove,
		Status:      StatusSuccess,
		Path:        source,
		Destination: dest,
		Metadata:    map[string]string{MetadataUndo: "true"},
	})
}
