package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/histmerge/internal/config"
	"github.com/roach88/histmerge/internal/history"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
}

// VerifyResult holds the outcome of checking an export file.
type VerifyResult struct {
	File       string `json:"file"`
	Records    int64  `json:"records"`
	Duplicates int64  `json:"duplicates"`
	Sorted     bool   `json:"sorted"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <FILE>",
		Short: "Check that an export is sorted and free of duplicate keys",
		Long: `Check that an export file can be used as a merge input: every line is
valid UTF-8, lines are sorted by "<timestamp> <url>", and no two lines share
that key.

Exit codes:
  0 - File is sorted and duplicate free
  1 - File is unsorted, has duplicate keys, or cannot be read
  2 - Command error

Examples:
  histmerge verify history.txt
  histmerge verify history.txt --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open file", err)
	}
	defer f.Close()

	checker := history.CheckOrder(history.NewLineSource(f, cfg.BufferSize), path)
	e := &history.Entry{}
	for {
		ok, readErr := checker.Read(e)
		if readErr != nil {
			err = readErr
			break
		}
		if !ok {
			break
		}
	}

	result := VerifyResult{
		File:       path,
		Records:    checker.Count(),
		Duplicates: checker.Duplicates(),
		Sorted:     !history.IsOrderError(err),
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	var oe *history.OrderError
	switch {
	case errors.As(err, &oe):
		if ferr := formatter.Error("E_ORDER", oe.Error(), result); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "export is not sorted", err)
	case err != nil:
		if ferr := formatter.Error("E_READ", err.Error(), result); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "failed to read export", err)
	case result.Duplicates > 0:
		msg := fmt.Sprintf("%d line(s) repeat the key of the previous line", result.Duplicates)
		if ferr := formatter.Error("E_DUPLICATE", msg, result); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, msg)
	}

	return formatter.Success(result)
}

func (r VerifyResult) String() string {
	order := "sorted"
	if !r.Sorted {
		order = "not sorted"
	}
	return fmt.Sprintf("%s: %d record(s), %s, %d duplicate key(s)", r.File, r.Records, order, r.Duplicates)
}
