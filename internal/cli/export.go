package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/histmerge/internal/config"
	"github.com/roach88/histmerge/internal/history"
	"github.com/roach88/histmerge/internal/merge"
	"github.com/roach88/histmerge/internal/places"
	"github.com/roach88/histmerge/internal/sink"
)

// ExportOptions holds flags for the export (root) command.
type ExportOptions struct {
	*RootOptions
	Output     string
	InPlace    bool
	Browser    string
	Driver     string
	BufferSize int
	CheckOrder bool
	Summary    bool
}

// ExportSummary reports what an export did.
type ExportSummary struct {
	Database    string      `json:"database"`
	MergeFile   string      `json:"merge_file,omitempty"`
	Mode        string      `json:"mode"`
	Destination string      `json:"destination,omitempty"`
	Stats       merge.Stats `json:"stats"`
}

func (s ExportSummary) String() string {
	dest := s.Destination
	if dest == "" {
		dest = "stdout"
	}
	return fmt.Sprintf("Exported %d record(s) to %s (%s): %d fresh, %d from previous export, %d duplicate(s) dropped",
		s.Stats.Written, dest, s.Mode, s.Stats.FreshRead, s.Stats.PriorRead, s.Stats.Duplicates)
}

func newExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "histmerge [flags] <DB_PATH> [MERGE_FILE]",
		Short: "Export browser history as a sorted, deduplicated text file",
		Long: `Export browser history visits from a SQLite history database as sorted
text lines, optionally merging with a previous export.

Each line is "<timestamp> <url>" followed by a tab and the page title when
there is one. Lines are sorted by "<timestamp> <url>" and each one appears at
most once. When a previous export already holds a line with the same
timestamp and url, its line is kept.

Without --output or --in-place the result is written to standard output.
--in-place rewrites MERGE_FILE atomically: it is replaced only once the new
contents are complete, and left untouched if anything fails.

Exit codes:
  0 - Export written
  1 - Export failed (query, read, write or publish error)
  2 - Command error (bad flags, conflicting options, database not found)

Examples:
  histmerge places.sqlite > history.txt
  histmerge places.sqlite history.txt --in-place
  histmerge --browser chromium History old.txt -o new.txt`,
		Args:          exportArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the result to this file")
	cmd.Flags().BoolVarP(&opts.InPlace, "in-place", "i", false, "rewrite MERGE_FILE atomically")
	cmd.Flags().StringVar(&opts.Browser, "browser", places.Firefox.Name, fmt.Sprintf("history database layout %v", places.SchemaNames()))
	cmd.Flags().StringVar(&opts.Driver, "driver", places.DriverCGO, fmt.Sprintf("SQLite driver %v", places.ValidDrivers))
	cmd.Flags().IntVar(&opts.BufferSize, "buffer-size", sink.DefaultBufferSize, "read and write buffer size in bytes")
	cmd.Flags().BoolVar(&opts.CheckOrder, "check-order", false, "fail if an input is not sorted by key")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "print a summary to stderr")

	return cmd
}

// exportArgs accepts <DB_PATH> [MERGE_FILE] and reports misuse as a command error.
func exportArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	return nil
}

// resolveExport merges defaults, the config file and explicitly set flags.
func resolveExport(opts *ExportOptions, args []string, cmd *cobra.Command) (config.Export, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Export{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("browser") {
		cfg.Browser = opts.Browser
	}
	if flags.Changed("driver") {
		cfg.Driver = opts.Driver
	}
	if flags.Changed("buffer-size") {
		cfg.BufferSize = opts.BufferSize
	}
	if flags.Changed("check-order") {
		cfg.CheckOrder = opts.CheckOrder
	}
	if opts.Verbose {
		cfg.Verbose = true
	}

	e := config.Export{
		Config:  cfg,
		DBPath:  args[0],
		Output:  opts.Output,
		InPlace: opts.InPlace,
	}
	if len(args) > 1 {
		e.MergeFile = args[1]
	}
	return e, nil
}

func runExport(opts *ExportOptions, args []string, cmd *cobra.Command) error {
	exp, err := resolveExport(opts, args, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := exp.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if exp.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Cancelling the query context makes the next read fail, which aborts
	// the merge and discards any staged output.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, aborting export", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	schema, _ := places.LookupSchema(exp.Browser)
	logger.Debug("opening database", "db", exp.DBPath, "browser", schema.Name, "driver", exp.Driver)
	st, err := places.Open(exp.DBPath, places.Options{Driver: exp.Driver, Schema: schema})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Counting runs the query a second time; only pay for it when asked.
	// It must finish before Visits takes the store's single connection.
	if exp.Verbose {
		if n, err := st.CountVisits(ctx); err != nil {
			logger.Debug("could not count visits", "db", exp.DBPath, "error", err)
		} else {
			logger.Debug("database opened", "db", exp.DBPath, "visits", n)
		}
	}

	rows, err := st.Visits(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to query history", err)
	}
	defer rows.Close()

	var fresh history.Source = rows
	if exp.CheckOrder {
		fresh = history.CheckOrder(fresh, exp.DBPath)
	}

	prior, closePrior, err := openPrior(exp, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open merge file", err)
	}
	defer closePrior()

	target := exp.Target()
	target.Stdout = cmd.OutOrStdout()
	out, err := sink.Open(target)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open output", err)
	}
	logger.Debug("export starting", "mode", target.Mode, "dest", target.Path, "merge_file", exp.MergeFile)

	finalized := false
	defer func() {
		if finalized {
			return
		}
		if abortErr := out.Abort(); abortErr != nil {
			logger.Error("error discarding output", "error", abortErr)
		}
	}()

	stats, err := merge.Merge(fresh, prior, out)
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}

	// The merge file may be the destination; release it before the rename.
	closePrior()

	finalized = true
	if err := out.Commit(); err != nil {
		var pe *sink.PublishError
		if errors.As(err, &pe) {
			logger.Error("output staged but not published", "tmp", pe.TempPath, "dest", pe.Dest)
		}
		return WrapExitError(ExitFailure, "failed to publish output", err)
	}
	logger.Debug("export finished", "written", stats.Written, "duplicates", stats.Duplicates,
		"fresh", stats.FreshRead, "prior", stats.PriorRead)

	if opts.Summary {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.ErrOrStderr()}
		return f.Success(ExportSummary{
			Database:    exp.DBPath,
			MergeFile:   exp.MergeFile,
			Mode:        target.Mode.String(),
			Destination: target.Path,
			Stats:       stats,
		})
	}
	return nil
}

// openPrior opens the previous export as a Source. A merge file that does
// not exist yet reads as empty, so the first in-place run creates it.
func openPrior(exp config.Export, logger *slog.Logger) (history.Source, func(), error) {
	noop := func() {}
	if exp.MergeFile == "" {
		return history.Empty, noop, nil
	}

	f, err := os.Open(exp.MergeFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("merge file does not exist yet, starting empty", "merge_file", exp.MergeFile)
		return history.Empty, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}

	var src history.Source = history.NewLineSource(f, exp.BufferSize)
	if exp.CheckOrder {
		src = history.CheckOrder(src, exp.MergeFile)
	}
	var once sync.Once
	return src, func() { once.Do(func() { f.Close() }) }, nil
}
