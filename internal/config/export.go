package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/histmerge/internal/sink"
)

// ConflictError reports an invalid combination of export options.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// IsConflict returns true if err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Export is a fully resolved export invocation.
type Export struct {
	Config

	// DBPath is the browser history database.
	DBPath string

	// MergeFile is an optional previous export to merge with.
	MergeFile string

	// Output writes the result to a new file.
	Output string

	// InPlace rewrites MergeFile atomically.
	InPlace bool
}

// Validate rejects conflicting options. It performs no writes.
func (e Export) Validate() error {
	if e.DBPath == "" {
		return &ConflictError{Reason: "a history database path is required"}
	}
	if e.InPlace && e.Output != "" {
		return &ConflictError{Reason: "--output and --in-place are mutually exclusive"}
	}
	if e.InPlace && e.MergeFile == "" {
		return &ConflictError{Reason: "--in-place requires a merge file"}
	}
	if e.Output != "" && samePath(e.Output, e.DBPath) {
		return &ConflictError{Reason: fmt.Sprintf("output %s would overwrite the history database", e.Output)}
	}
	return e.Config.Validate()
}

// Target returns where the export is written.
//
// An --output naming the merge file is treated as in-place: creating it
// would truncate the file before it is read.
func (e Export) Target() sink.Target {
	switch {
	case e.InPlace:
		return sink.Target{Mode: sink.ModeInPlace, Path: e.MergeFile, BufferSize: e.BufferSize}
	case e.Output != "" && e.MergeFile != "" && samePath(e.Output, e.MergeFile):
		return sink.Target{Mode: sink.ModeInPlace, Path: e.MergeFile, BufferSize: e.BufferSize}
	case e.Output != "":
		return sink.Target{Mode: sink.ModeFile, Path: e.Output, BufferSize: e.BufferSize}
	default:
		return sink.Target{Mode: sink.ModeStdout, BufferSize: e.BufferSize}
	}
}

// samePath reports whether a and b name the same file, either because they
// resolve to the same absolute path or because they are the same existing
// file under different names.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}

	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
