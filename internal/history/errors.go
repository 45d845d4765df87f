package history

import (
	"errors"
	"fmt"
)

// MalformedLineError reports a line of a previous export that cannot be
// used as a record.
type MalformedLineError struct {
	// Line is the 1-based physical line number.
	Line int64

	// Reason describes what is wrong with the line.
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// OrderError reports a record whose key sorts before its predecessor.
type OrderError struct {
	// Source names the input the records came from.
	Source string

	// Record is the 1-based index of the offending record.
	Record int64

	// Prev and Key are the two keys found out of order.
	Prev string
	Key  string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s: record %d out of order: %q sorts before %q", e.Source, e.Record, e.Key, e.Prev)
}

// IsOrderError returns true if err is or wraps an *OrderError.
func IsOrderError(err error) bool {
	var oe *OrderError
	return errors.As(err, &oe)
}

// IsMalformedLine returns true if err is or wraps a *MalformedLineError.
func IsMalformedLine(err error) bool {
	var me *MalformedLineError
	return errors.As(err, &me)
}
