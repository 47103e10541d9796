// Package output handles CLI output formatting including verbose mode and
// the live status line shown while watching.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output handles formatted output with verbose and status line support.
type Output struct {
	config       Config
	statusActive bool
	statusWidth  int
	statusMu     sync.Mutex
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{
		config: config,
	}
}

// DefaultConfig returns a Config with sensible defaults and TTY detection.
func DefaultConfig() Config {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	return Config{
		Verbose:   false,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     isTTY,
	}
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.clearStatusLine()
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(o.config.Writer, msg)
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	o.clearStatusLine()
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(o.config.Writer, msg)
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.clearStatusLine()
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(o.config.ErrWriter, msg)
}

// clearStatusLine clears the current status line if active.
func (o *Output) clearStatusLine() {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	if o.statusActive && o.config.IsTTY {
		fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", o.statusWidth)+"\r")
		o.statusWidth = 0
	}
}

// StartStatus begins a status line session. The line is only drawn on a
// TTY in non-verbose mode; otherwise every status call is a no-op.
func (o *Output) StartStatus() {
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	o.statusActive = true
	o.statusWidth = 0
}

// Status redraws the status line in place.
func (o *Output) Status(format string, args ...interface{}) {
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	if !o.statusActive {
		return
	}
	msg := fmt.Sprintf(format, args...)
	// Pad with spaces so a shorter line fully covers the previous one.
	padding := ""
	if len(msg) < o.statusWidth {
		padding = strings.Repeat(" ", o.statusWidth-len(msg))
	}
	fmt.Fprint(o.config.Writer, "\r"+msg+padding)
	o.statusWidth = len(msg)
}

// EndStatus clears the status line and ends the session.
func (o *Output) EndStatus() {
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	if !o.statusActive {
		return
	}
	o.statusActive = false
	fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", o.statusWidth)+"\r")
	o.statusWidth = 0
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY returns whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}
