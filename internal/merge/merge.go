package merge

import (
	"bytes"
	"io"

	"github.com/roach88/histmerge/internal/history"
)

// Stats counts what a merge did.
type Stats struct {
	FreshRead  int64 `json:"fresh_read"`
	PriorRead  int64 `json:"prior_read"`
	Written    int64 `json:"written"`
	Duplicates int64 `json:"duplicates"`
}

// cursor holds a one-record lookahead over a Source.
type cursor struct {
	name string
	src  history.Source
	cur  *history.Entry
	live bool
	read int64
}

func newCursor(name string, src history.Source) *cursor {
	return &cursor{name: name, src: src, cur: &history.Entry{}}
}

// advance overwrites the lookahead with the next record.
func (c *cursor) advance() error {
	ok, err := c.src.Read(c.cur)
	if err != nil {
		c.live = false
		return &ReadError{Source: c.name, Err: err}
	}
	c.live = ok
	if ok {
		c.read++
	}
	return nil
}

// merger owns the output and the last written entry.
type merger struct {
	w       io.Writer
	last    *history.Entry
	hasLast bool
	stats   Stats
}

// offer writes c's current record unless its key repeats the last written
// key. An accepted record's buffer is swapped into last; c gets the old
// last buffer back to be overwritten by its next advance.
func (m *merger) offer(c *cursor) error {
	if m.hasLast && bytes.Equal(c.cur.Key(), m.last.Key()) {
		m.stats.Duplicates++
		return nil
	}
	if _, err := m.w.Write(c.cur.Line()); err != nil {
		return &WriteError{Err: err}
	}
	m.stats.Written++
	m.hasLast = true
	c.cur, m.last = m.last, c.cur
	return nil
}

// take offers c's record and advances c.
func (m *merger) take(c *cursor) error {
	if err := m.offer(c); err != nil {
		return err
	}
	return c.advance()
}

// Merge writes the key-ordered, key-deduplicated union of fresh and prior
// to w. Both sources must be in non-decreasing key order. When both hold
// the same key the prior record is written and the fresh one dropped.
//
// Any error from a source or from w aborts the merge. Records written
// before the failure stay written; callers that need all-or-nothing output
// must stage it (see package sink).
func Merge(fresh, prior history.Source, w io.Writer) (Stats, error) {
	m := &merger{w: w, last: &history.Entry{}}
	f := newCursor(SourceFresh, fresh)
	p := newCursor(SourcePrior, prior)

	stats := func() Stats {
		s := m.stats
		s.FreshRead, s.PriorRead = f.read, p.read
		return s
	}

	if err := f.advance(); err != nil {
		return stats(), err
	}
	if err := p.advance(); err != nil {
		return stats(), err
	}

	for f.live || p.live {
		// Decide both moves from one comparison before either cursor moves.
		takePrior, takeFresh := p.live, f.live
		if f.live && p.live {
			c := bytes.Compare(f.cur.Key(), p.cur.Key())
			takePrior = c >= 0
			takeFresh = c <= 0
		}

		if takePrior {
			if err := m.take(p); err != nil {
				return stats(), err
			}
		}
		if takeFresh {
			if err := m.take(f); err != nil {
				return stats(), err
			}
		}
	}

	return stats(), nil
}
