package merge

import (
	"errors"
	"fmt"
)

// Source names used in ReadError.
const (
	SourceFresh = "fresh"
	SourcePrior = "prior"
)

// ReadError wraps a failure reported by one of the merge inputs.
type ReadError struct {
	// Source is SourceFresh or SourcePrior.
	Source string

	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s records: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// WriteError wraps a failure reported by the output.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write output: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsReadError returns true if err is or wraps a *ReadError.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// IsWriteError returns true if err is or wraps a *WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
