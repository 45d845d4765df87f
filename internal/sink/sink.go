package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// DefaultBufferSize is the write buffer used when Target.BufferSize is 0.
const DefaultBufferSize = 256 * 1024

// Sink is an export destination.
//
// After the first call to Commit or Abort, further calls return the same
// result and writes fail.
type Sink interface {
	io.Writer

	// Commit finalizes successful output.
	Commit() error

	// Abort discards or abandons output after a failure.
	Abort() error
}

// Mode selects a Sink variant.
type Mode int

const (
	ModeStdout Mode = iota
	ModeFile
	ModeInPlace
)

func (m Mode) String() string {
	switch m {
	case ModeStdout:
		return "stdout"
	case ModeFile:
		return "file"
	case ModeInPlace:
		return "in-place"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Target describes where output goes.
type Target struct {
	Mode Mode

	// Path is the destination file for ModeFile and ModeInPlace.
	Path string

	// Stdout receives output in ModeStdout. Nil selects os.Stdout.
	Stdout io.Writer

	// BufferSize of the write buffer. 0 selects DefaultBufferSize.
	BufferSize int
}

// Open creates the Sink described by t.
func Open(t Target) (Sink, error) {
	size := t.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	switch t.Mode {
	case ModeStdout:
		w := t.Stdout
		if w == nil {
			w = os.Stdout
		}
		return NewStream(w, size), nil
	case ModeFile:
		if t.Path == "" {
			return nil, fmt.Errorf("%s sink needs a path", t.Mode)
		}
		return CreateFile(t.Path, size)
	case ModeInPlace:
		if t.Path == "" {
			return nil, fmt.Errorf("%s sink needs a path", t.Mode)
		}
		return CreateInPlace(t.Path, size)
	default:
		return nil, fmt.Errorf("unknown sink mode %v", t.Mode)
	}
}

// finalizer records the outcome of the first Commit or Abort.
type finalizer struct {
	done bool
	err  error
}

func (f *finalizer) once(fn func() error) error {
	if f.done {
		return f.err
	}
	f.done = true
	f.err = fn()
	return f.err
}

// Stream writes to an io.Writer it does not own, such as standard output.
type Stream struct {
	bw  *bufio.Writer
	fin finalizer
}

// NewStream returns a Stream buffering size bytes in front of w.
func NewStream(w io.Writer, size int) *Stream {
	return &Stream{bw: bufio.NewWriterSize(w, size)}
}

func (s *Stream) Write(p []byte) (int, error) {
	if s.fin.done {
		return 0, os.ErrClosed
	}
	return s.bw.Write(p)
}

// Commit flushes buffered output.
func (s *Stream) Commit() error {
	return s.fin.once(s.bw.Flush)
}

// Abort flushes what was written so far; partial output is allowed on a
// stream.
func (s *Stream) Abort() error {
	return s.fin.once(s.bw.Flush)
}

// File writes to a newly created or truncated file.
type File struct {
	f   *os.File
	bw  *bufio.Writer
	fin finalizer
}

// CreateFile creates path and returns a File sink writing to it.
func CreateFile(path string, size int) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &File{f: f, bw: bufio.NewWriterSize(f, size)}, nil
}

func (s *File) Write(p []byte) (int, error) {
	if s.fin.done {
		return 0, os.ErrClosed
	}
	return s.bw.Write(p)
}

// Commit flushes, syncs and closes the file.
func (s *File) Commit() error {
	return s.fin.once(func() error {
		if err := s.bw.Flush(); err != nil {
			s.f.Close()
			return fmt.Errorf("flush %s: %w", s.f.Name(), err)
		}
		if err := s.f.Sync(); err != nil {
			s.f.Close()
			return fmt.Errorf("sync %s: %w", s.f.Name(), err)
		}
		if err := s.f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", s.f.Name(), err)
		}
		return nil
	})
}

// Abort flushes what it can and closes the file, leaving partial output.
func (s *File) Abort() error {
	return s.fin.once(func() error {
		flushErr := s.bw.Flush()
		if err := s.f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", s.f.Name(), err)
		}
		if flushErr != nil {
			return fmt.Errorf("flush %s: %w", s.f.Name(), flushErr)
		}
		return nil
	})
}
