package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// logHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<session>\t<message>\t<key=value ...>
type logHandler struct {
	w       io.Writer
	session string
	attrs   []slog.Attr
}

func (h *logHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *logHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	level := r.Level.String()

	_, err := fmt.Fprintf(h.w, "%s\t%s\t%s\t%s", ts, level, h.session, r.Message)
	if err != nil {
		return err
	}

	// Write pre-set attrs.
	for _, a := range h.attrs {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
	}

	// Write per-record attrs.
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
		return true
	})

	_, err = fmt.Fprintln(h.w)
	return err
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logHandler{
		w:       h.w,
		session: h.session,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *logHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to logDir/donload.log,
// and additionally to echo when it is non-nil. It returns the
// slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir string, session string, echo io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "donload.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	var w io.Writer = f
	if echo != nil {
		w = io.MultiWriter(f, echo)
	}
	handler := &logHandler{w: w, session: session}
	return slog.New(handler), f, nil
}
