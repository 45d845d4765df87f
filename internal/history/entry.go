package history

import "bytes"

// Entry is a single export record, stored as its serialized line including
// the trailing newline. Entries are reusable: Sources overwrite them in place.
type Entry struct {
	line []byte
}

// NewEntry returns an entry holding line.
// line must already be newline terminated.
func NewEntry(line string) *Entry {
	return &Entry{line: []byte(line)}
}

// Reset empties the entry while keeping its buffer.
func (e *Entry) Reset() {
	e.line = e.line[:0]
}

// Line returns the serialized record, newline included.
// The slice is only valid until the entry is next overwritten.
func (e *Entry) Line() []byte {
	return e.line
}

// Key returns the bytes before the first tab, or the whole line without its
// newline if there is no tab.
func (e *Entry) Key() []byte {
	body := e.body()
	if i := bytes.IndexByte(body, '\t'); i >= 0 {
		return body[:i]
	}
	return body
}

// Title returns the bytes after the first tab without the newline.
// It is empty when the record carries no title.
func (e *Entry) Title() []byte {
	body := e.body()
	if i := bytes.IndexByte(body, '\t'); i >= 0 {
		return body[i+1:]
	}
	return nil
}

// String returns the line without its trailing newline.
func (e *Entry) String() string {
	return string(e.body())
}

// Append adds raw bytes to the end of the line.
// Sources use it to assemble a record piece by piece.
func (e *Entry) Append(b ...byte) {
	e.line = append(e.line, b...)
}

// AppendString adds s to the end of the line.
func (e *Entry) AppendString(s string) {
	e.line = append(e.line, s...)
}

// Buffer exposes the backing slice for append-style helpers such as
// timefmt.AppendMicros. The returned slice must be handed back via SetBuffer.
func (e *Entry) Buffer() []byte {
	return e.line
}

// SetBuffer replaces the backing slice.
func (e *Entry) SetBuffer(b []byte) {
	e.line = b
}

func (e *Entry) body() []byte {
	n := len(e.line)
	if n > 0 && e.line[n-1] == '\n' {
		return e.line[:n-1]
	}
	return e.line
}
