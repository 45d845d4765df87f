package testutil

import (
	"bytes"
	"errors"
	"io"

	"github.com/roach88/histmerge/internal/history"
)

// ErrInjected is the default error returned by failing fixtures.
var ErrInjected = errors.New("injected failure")

// FailingWriter accepts FailAfter writes and fails every write after that.
//
// Accepted writes are forwarded to W when it is set, and are kept for
// inspection with String either way.
type FailingWriter struct {
	W         io.Writer
	FailAfter int
	Err       error

	buf    bytes.Buffer
	writes int
}

// Write implements io.Writer.
func (w *FailingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.FailAfter {
		if w.Err == nil {
			return 0, ErrInjected
		}
		return 0, w.Err
	}
	w.writes++
	w.buf.Write(p)
	if w.W != nil {
		return w.W.Write(p)
	}
	return len(p), nil
}

// String returns everything accepted so far.
func (w *FailingWriter) String() string {
	return w.buf.String()
}

// FailingSource yields lines in order and then fails with err instead of
// reporting exhaustion.
func FailingSource(err error, lines ...string) history.Source {
	inner := history.Lines(lines...)
	return history.SourceFunc(func(e *history.Entry) (bool, error) {
		ok, rerr := inner.Read(e)
		if rerr != nil || ok {
			return ok, rerr
		}
		return false, err
	})
}
