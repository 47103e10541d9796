package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"donload/internal/app"
	"donload/internal/config"
	"donload/internal/history"
	"donload/internal/output"
	"donload/internal/prefs"
	"donload/internal/record"
	"donload/internal/store"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "donload",
	Short: "Keep track of your downloads folder",
	Long: `donload watches a downloads directory and keeps a shelf of what lands
there: list what arrived, file things away, trash the junk, and review
a history of everything it did.`,
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the downloads directory until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		outCfg := output.DefaultConfig()
		outCfg.Verbose = verboseFlag
		out := output.New(outCfg)

		a, err := newApp(app.Options{
			OnNewFile: func(rec record.FileRecord) {
				out.Info("+ %s (%s)", rec.Name, record.HumanSize(rec.Size))
			},
			OnChange: func(recs []record.FileRecord) {
				out.Status("%d files on the shelf", len(recs))
			},
		})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out.Info("Watching %s", a.Config().WatchDir)
		out.Verbose("history in %s", a.HistoryDir())
		out.StartStatus()
		a.Start(ctx)

		<-ctx.Done()
		out.EndStatus()
		a.Stop()

		st := a.Store().Stats()
		out.Info("Session: %d new, %d moved, %d trashed, %d cleaned up",
			st.Created, st.Moved, st.Trashed, st.Reconciled)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files on the shelf",
	RunE: func(cmd *cobra.Command, args []string) error {
		sortFlag, _ := cmd.Flags().GetString("sort")
		mode, err := parseSortMode(sortFlag)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		reverse, _ := cmd.Flags().GetBool("reverse")
		expired, _ := cmd.Flags().GetBool("expired")

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		// A directory that cannot be scanned is an empty shelf, not an
		// error.
		_ = a.Store().ScanNow()

		var recs []record.FileRecord
		if expired {
			recs = a.Store().AutoDeleteCandidates()
		} else {
			recs = a.Store().Sorted(mode, reverse)
		}
		if limit > 0 && len(recs) > limit {
			recs = recs[:limit]
		}
		if len(recs) == 0 {
			fmt.Println("No files tracked.")
			return nil
		}
		printRecords(recs)
		return nil
	},
}

// recent command
var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show what arrived recently",
	RunE: func(cmd *cobra.Command, args []string) error {
		window, _ := cmd.Flags().GetDuration("window")

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		_ = a.Store().ScanNow()

		recs := a.Store().RecentWithin(window)
		if len(recs) == 0 {
			if window <= 0 {
				window = a.Config().RecentWindow()
			}
			fmt.Printf("Nothing new in the last %s.\n", window)
			return nil
		}
		printRecords(recs)
		return nil
	},
}

// move command
var moveCmd = &cobra.Command{
	Use:   "move FILE TARGET",
	Short: "Move a file to a destination folder",
	Long: `Move a file off the shelf into a destination folder. FILE matches by
name, path, or record ID. TARGET is a configured target name or a
directory path; when a file of the same name already exists there, the
move picks a numbered alternative.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		_ = a.Store().ScanNow()

		rec, ok := a.Store().Find(args[0])
		if !ok {
			return fmt.Errorf("no tracked file matches %q", args[0])
		}
		dest := a.ResolveTarget(args[1])

		res, err := a.Store().Move(rec.ID, dest)
		if err != nil {
			return fmt.Errorf("moving %s: %w", rec.Name, err)
		}
		if res.Renamed {
			fmt.Printf("Moved %s to %s as %s\n", rec.Name, dest, res.FinalName)
		} else {
			fmt.Printf("Moved %s to %s\n", rec.Name, dest)
		}
		return nil
	},
}

// trash command
var trashCmd = &cobra.Command{
	Use:   "trash FILE",
	Short: "Move a file to the system trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		_ = a.Store().ScanNow()

		rec, ok := a.Store().Find(args[0])
		if !ok {
			return fmt.Errorf("no tracked file matches %q", args[0])
		}
		if !force {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("stdin is not a terminal; pass --force to trash without confirmation")
			}
			if !confirm(os.Stdin, os.Stdout, "Move %s to the trash? [y/N]: ", rec.Name) {
				fmt.Println("Cancelled.")
				return nil
			}
		}
		if err := a.Store().Trash(rec.ID); err != nil {
			return fmt.Errorf("trashing %s: %w", rec.Name, err)
		}
		fmt.Printf("Trashed %s\n", rec.Name)
		return nil
	},
}

// undo command
var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Put the last moved file back",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ev, err := a.UndoLastMove()
		if errors.Is(err, app.ErrNothingToUndo) {
			fmt.Println("Nothing to undo.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("undoing move: %w", err)
		}
		fmt.Printf("Moved %s back to %s\n", filepath.Base(ev.Destination), ev.Path)
		return nil
	},
}

// folders command
var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List move destinations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		targets := a.Targets()
		if len(targets) == 0 {
			fmt.Println("No destinations yet. Pin targets in the config or move a file somewhere.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPATH\tSOURCE")
		for _, t := range targets {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Path, t.Icon)
		}
		return w.Flush()
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past file operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		hc, err := cfg.HistoryWriterConfig()
		if err != nil {
			return err
		}
		if _, err := os.Stat(hc.Dir); errors.Is(err, os.ErrNotExist) {
			fmt.Println("No history yet.")
			return nil
		}

		var since *time.Time
		if window, _ := cmd.Flags().GetDuration("since"); window > 0 {
			t := time.Now().Add(-window)
			since = &t
		}

		if stats, _ := cmd.Flags().GetBool("stats"); stats {
			st, err := history.Collect(hc.Dir, since)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			printHistoryStats(st)
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		events, err := history.NewReader(hc.Dir).Events(history.Filter{Since: since, Limit: limit})
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No history yet.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tEVENT\tPATH\tDETAIL")
		for _, ev := range events {
			detail := ev.Destination
			if ev.Status == history.StatusFailure {
				detail = "failed: " + ev.Detail
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				ev.Timestamp.Local().Format("2006-01-02 15:04:05"), ev.Type, ev.Path, detail)
		}
		return w.Flush()
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration already exists at %s", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Printf("# effective configuration (%s)\n", path)
		if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			fmt.Printf("No configuration file at %s; defaults apply.\n", path)
			return nil
		}

		var cfg config.Config
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		result := config.ValidateConfig(&cfg)
		for _, e := range result.Errors {
			fmt.Printf("error: %s: %s\n", e.Field, e.Message)
		}
		for _, warning := range result.Warnings {
			fmt.Printf("warning: %s: %s\n", warning.Field, warning.Message)
		}
		if !result.Valid {
			return fmt.Errorf("%d problem(s) in %s", len(result.Errors), path)
		}
		if len(result.Warnings) == 0 {
			fmt.Println("Configuration OK.")
		}
		return nil
	},
}

// prefs command
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage persisted preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPrefs()
		if err != nil {
			return err
		}
		fmt.Printf("Retention: %d days\n", p.RetentionDays())
		fmt.Printf("Auto-open: %v\n", p.AutoOpen())
		recents := p.RecentFolders()
		if len(recents) == 0 {
			fmt.Println("Recent folders: none")
			return nil
		}
		fmt.Println("Recent folders:")
		for _, dir := range recents {
			fmt.Printf("  %s\n", dir)
		}
		return nil
	},
}

var prefsRetentionCmd = &cobra.Command{
	Use:   "retention DAYS",
	Short: "Set how long files sit before they count as stale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("retention takes a number of days, got %q", args[0])
		}
		p, err := loadPrefs()
		if err != nil {
			return err
		}
		if err := p.SetRetentionDays(days); err != nil {
			return err
		}
		fmt.Printf("Files now count as stale after %d days.\n", days)
		return nil
	},
}

var prefsAutoOpenCmd = &cobra.Command{
	Use:   "auto-open on|off",
	Short: "Toggle opening files as they finish downloading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var on bool
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes":
			on = true
		case "off", "false", "no":
			on = false
		default:
			return fmt.Errorf("auto-open takes on or off, got %q", args[0])
		}
		p, err := loadPrefs()
		if err != nil {
			return err
		}
		if err := p.SetAutoOpen(on); err != nil {
			return err
		}
		if on {
			fmt.Println("Auto-open enabled.")
		} else {
			fmt.Println("Auto-open disabled.")
		}
		return nil
	},
}

// configPath resolves the configuration file location, honoring the
// --config flag.
func configPath() (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and assembles the application. The caller
// must defer a.Close().
func newApp(opts app.Options) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts.Verbose = verboseFlag
	a, err := app.New(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("starting donload: %w", err)
	}
	return a, nil
}

func loadPrefs() (*prefs.Prefs, error) {
	path, err := config.StatePath()
	if err != nil {
		return nil, fmt.Errorf("resolving state path: %w", err)
	}
	p, err := prefs.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	return p, nil
}

func parseSortMode(name string) (store.SortMode, error) {
	switch mode := store.SortMode(name); mode {
	case store.SortAdded, store.SortName, store.SortSize, store.SortLastUsed:
		return mode, nil
	}
	return "", fmt.Errorf("unknown sort %q (use added, name, size, or used)", name)
}

func printRecords(recs []record.FileRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tAGE\tKIND")
	now := time.Now()
	anyExcluded := false
	for i := range recs {
		rec := &recs[i]
		name := rec.Name
		if rec.Excluded {
			name += " *"
			anyExcluded = true
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, record.HumanSize(rec.Size), rec.Age(now), rec.Kind)
	}
	w.Flush()
	if anyExcluded {
		fmt.Println("* kept out of retention cleanup")
	}
}

func printHistoryStats(st *history.Stats) {
	fmt.Printf("Moves:     %d\n", st.Moves)
	fmt.Printf("Trashes:   %d\n", st.Trashes)
	fmt.Printf("Evictions: %d\n", st.Evictions)
	fmt.Printf("Failures:  %d\n", st.Failures)
	if len(st.ByDestination) > 0 {
		type destCount struct {
			dir string
			n   int
		}
		counts := make([]destCount, 0, len(st.ByDestination))
		for dir, n := range st.ByDestination {
			counts = append(counts, destCount{dir, n})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].n != counts[j].n {
				return counts[i].n > counts[j].n
			}
			return counts[i].dir < counts[j].dir
		})
		fmt.Println("Destinations:")
		for _, c := range counts {
			fmt.Printf("  %4d  %s\n", c.n, c.dir)
		}
	}
	if !st.First.IsZero() {
		fmt.Printf("Covering %s to %s\n",
			st.First.Local().Format("2006-01-02 15:04"),
			st.Last.Local().Format("2006-01-02 15:04"))
	}
}

// confirm prints a yes/no prompt and reads one line of input. Anything
// but an explicit yes declines.
func confirm(in io.Reader, out io.Writer, format string, args ...interface{}) bool {
	fmt.Fprintf(out, format, args...)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Echo diagnostic logging to stderr")

	listCmd.Flags().IntP("limit", "n", 0, "Show at most this many files (0 shows all)")
	listCmd.Flags().String("sort", "added", "Order: added, name, size, or used")
	listCmd.Flags().BoolP("reverse", "r", false, "Reverse the sort order")
	listCmd.Flags().Bool("expired", false, "Show only files past the retention window")

	recentCmd.Flags().Duration("window", 0, "Trailing window to show (default from config)")

	trashCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")

	historyCmd.Flags().IntP("limit", "n", 50, "Show at most this many events (0 shows all)")
	historyCmd.Flags().Duration("since", 0, "Only events within this trailing window")
	historyCmd.Flags().Bool("stats", false, "Aggregate counts instead of listing events")

	configCmd.AddCommand(configInitCmd, configShowCmd, configCheckCmd)
	prefsCmd.AddCommand(prefsShowCmd, prefsRetentionCmd, prefsAutoOpenCmd)

	rootCmd.AddCommand(watchCmd, listCmd, recentCmd, moveCmd, trashCmd,
		undoCmd, foldersCmd, historyCmd, configCmd, prefsCmd)
}
