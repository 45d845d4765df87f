package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultReadBufferSize is the bufio buffer used for previous exports.
const DefaultReadBufferSize = 256 * 1024

// LineSource reads records from a previous export, one physical line at a
// time. Lines have no length limit. A final line without a newline gets one
// so it cannot run into the next record written after it.
type LineSource struct {
	r    *bufio.Reader
	line int64
}

// NewLineSource creates a LineSource reading from r with the given buffer
// size. A size <= 0 selects DefaultReadBufferSize.
func NewLineSource(r io.Reader, size int) *LineSource {
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	return &LineSource{r: bufio.NewReaderSize(r, size)}
}

// Read implements Source.
func (s *LineSource) Read(e *Entry) (bool, error) {
	e.Reset()
	for {
		chunk, err := s.r.ReadSlice('\n')
		e.Append(chunk...)

		switch {
		case err == nil:
			return s.accept(e)
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(e.Line()) == 0 {
				return false, nil
			}
			e.Append('\n')
			return s.accept(e)
		default:
			return false, fmt.Errorf("read line %d: %w", s.line+1, err)
		}
	}
}

// LinesRead returns the number of lines produced so far.
func (s *LineSource) LinesRead() int64 {
	return s.line
}

func (s *LineSource) accept(e *Entry) (bool, error) {
	s.line++
	if !utf8.Valid(e.Line()) {
		return false, &MalformedLineError{Line: s.line, Reason: "invalid UTF-8"}
	}
	return true, nil
}
