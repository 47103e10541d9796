// Package app is the application layer between the CLI and the store.
// It constructs all dependencies from config and manages their lifecycle
// on Close.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"donload/internal/config"
	"donload/internal/history"
	"donload/internal/prefs"
	"donload/internal/record"
	"donload/internal/store"
	"donload/internal/watcher"
)

// Options carries the per-invocation knobs the CLI hands to New.
type Options struct {
	// Verbose echoes the log to stderr.
	Verbose bool
	// OnChange receives a collection snapshot on every change.
	OnChange func([]record.FileRecord)
	// OnNewFile fires for files arriving while watching.
	OnNewFile func(rec record.FileRecord)
}

// App wires configuration, preferences, history, and the store into one
// runnable application.
type App struct {
	cfg        *config.Config
	prefs      *prefs.Prefs
	history    *history.Writer
	historyDir string
	store      *store.Store
	logger     *slog.Logger
	logFile    *os.File
}

// New creates a fully wired App from the given config. The caller must
// call Close when done.
func New(cfg *config.Config, opts Options) (*App, error) {
	statePath, err := config.StatePath()
	if err != nil {
		return nil, fmt.Errorf("resolving state path: %w", err)
	}
	p, err := prefs.Load(statePath)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}

	histCfg, err := cfg.HistoryWriterConfig()
	if err != nil {
		return nil, fmt.Errorf("resolving history directory: %w", err)
	}
	hw, err := history.NewWriter(histCfg)
	if err != nil {
		return nil, fmt.Errorf("creating history writer: %w", err)
	}

	dataDir, err := config.DataDir()
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	var echo io.Writer
	if opts.Verbose {
		echo = os.Stderr
	}
	logger, logFile, err := newLogger(filepath.Join(dataDir, "log"), string(hw.Session()), echo)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	// Expired history segments are swept at startup rather than on a
	// timer; a session is the natural pruning opportunity.
	if _, err := hw.Prune(); err != nil {
		logger.Warn("history prune failed", "error", err)
	}

	filter, err := watcher.NewFileFilter(cfg.IgnorePatterns)
	if err != nil {
		logFile.Close()
		hw.Close()
		return nil, fmt.Errorf("compiling ignore patterns: %w", err)
	}

	st, err := store.New(store.Config{
		Dir:               cfg.WatchDir,
		Filter:            filter,
		Debounce:          cfg.Debounce(),
		RecentWindow:      cfg.RecentWindow(),
		ReconcileInterval: cfg.ReconcileInterval(),
		RetentionDays:     cfg.RetentionDays,
		History:           hw,
		Prefs:             p,
		Logger:            logger,
		OnChange:          opts.OnChange,
		OnNewFile:         opts.OnNewFile,
	})
	if err != nil {
		logFile.Close()
		hw.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	return &App{
		cfg:        cfg,
		prefs:      p,
		history:    hw,
		historyDir: histCfg.Dir,
		store:      st,
		logger:     logger,
		logFile:    logFile,
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Store returns the file collection.
func (a *App) Store() *store.Store {
	return a.store
}

// Prefs returns the persisted preferences.
func (a *App) Prefs() *prefs.Prefs {
	return a.prefs
}

// HistoryDir returns the directory holding history logs.
func (a *App) HistoryDir() string {
	return a.historyDir
}

// Start begins watching and scanning. It never fails: an unwatchable or
// missing directory behaves like an empty one.
func (a *App) Start(ctx context.Context) {
	a.store.Start(ctx)
}

// Stop halts watching and waits for the scan loop to drain.
func (a *App) Stop() {
	a.store.Stop()
}

// Targets returns every destination a file can be moved to: standard
// folders, targets pinned in the config, and recently used folders.
func (a *App) Targets() []prefs.FolderTarget {
	pinned := make([]prefs.FolderTarget, 0, len(a.cfg.Targets))
	for _, t := range a.cfg.Targets {
		pinned = append(pinned, prefs.FolderTarget{
			Name: t.Name,
			Path: t.Path,
			Icon: "pinned",
		})
	}
	return a.prefs.Targets(pinned...)
}

// ResolveTarget maps a destination reference to a directory path. A
// known target name matches case-insensitively; anything else is
// treated as a path.
func (a *App) ResolveTarget(ref string) string {
	for _, t := range a.Targets() {
		if strings.EqualFold(t.Name, ref) {
			return t.Path
		}
	}
	return ref
}

// Close stops the store if it is running and releases the history
// writer and log file.
func (a *App) Close() error {
	var firstErr error

	if a.store.IsRunning() {
		a.store.Stop()
	}

	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}
