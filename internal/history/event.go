// Package history records the file operations DonLoad performs as an
// append-only JSON Lines log. One event is written per line, and the
// log is rotated by size and pruned by age so it never grows without
// bound.
package history

import (
	"encoding/json"
	"time"
)

// timestampFormat is the time format used for event timestamps.
const timestampFormat = time.RFC3339

// SessionID identifies one run of the application. A fresh one is
// minted every time the log is opened for writing.
type SessionID string

// EventType names the operation an event records.
type EventType string

const (
	// Session lifecycle events
	EventSessionStart EventType = "SESSION_START"
	EventSessionEnd   EventType = "SESSION_END"

	// File operation events
	EventScan      EventType = "SCAN"
	EventMove      EventType = "MOVE"
	EventTrash     EventType = "TRASH"
	EventEvict     EventType = "EVICT"
	EventReconcile EventType = "RECONCILE"

	// Log maintenance events
	EventRotation       EventType = "ROTATION"
	EventRetentionPrune EventType = "RETENTION_PRUNE"
)

// Status represents the outcome of the recorded operation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Event is a single history record.
type Event struct {
	Timestamp   time.Time         // When the operation happened
	SessionID   SessionID         // Session that performed it
	Type        EventType         // What was done
	Status      Status            // How it went
	Path        string            // File the operation acted on
	Destination string            // Final path for moves, stored name for trashes
	Detail      string            // Failure description or free-form note
	Metadata    map[string]string // Additional context
}

// eventJSON is the wire representation. Optional fields are pointers so
// omitempty drops them when unset.
type eventJSON struct {
	Timestamp   string            `json:"timestamp"`
	SessionID   SessionID         `json:"sessionId"`
	Type        EventType         `json:"type"`
	Status      Status            `json:"status"`
	Path        *string           `json:"path,omitempty"`
	Destination *string           `json:"destination,omitempty"`
	Detail      *string           `json:"detail,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler for Event. Timestamps are
// rendered in RFC 3339 and empty optional fields are omitted.
func (e Event) MarshalJSON() ([]byte, error) {
	ej := eventJSON{
		Timestamp: e.Timestamp.Format(timestampFormat),
		SessionID: e.SessionID,
		Type:      e.Type,
		Status:    e.Status,
		Metadata:  e.Metadata,
	}

	if e.Path != "" {
		ej.Path = &e.Path
	}
	if e.Destination != "" {
		ej.Destination = &e.Destination
	}
	if e.Detail != "" {
		ej.Detail = &e.Detail
	}

	return json.Marshal(ej)
}

// UnmarshalJSON implements json.Unmarshaler for Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	t, err := time.Parse(timestampFormat, ej.Timestamp)
	if err != nil {
		return err
	}

	e.Timestamp = t
	e.SessionID = ej.SessionID
	e.Type = ej.Type
	e.Status = ej.Status
	e.Metadata = ej.Metadata

	if ej.Path != nil {
		e.Path = *ej.Path
	}
	if ej.Destination != nil {
		e.Destination = *ej.Destination
	}
	if ej.Detail != nil {
		e.Detail = *ej.Detail
	}

	return nil
}

// ParseLine unmarshals one log line into an Event.
func ParseLine(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
