package places

import (
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/histmerge/internal/history"
	"github.com/roach88/histmerge/internal/timefmt"
)

// ErrMalformedVisit is wrapped by errors for visit rows that cannot be
// turned into a record.
var ErrMalformedVisit = errors.New("malformed visit")

// VisitRows is a history.Source over the rows of a visit query.
//
// Each row becomes "<timestamp> <url>[\t<title>]\n". A NULL, empty or
// non-UTF-8 title adds no tab; a url that is not valid UTF-8 is malformed. Tabs and line breaks inside the url or title are replaced by
// spaces so a record always stays on one line with its key intact. Titles
// are NFC normalized.
type VisitRows struct {
	rows *sql.Rows
	read int64
}

// Read implements history.Source.
func (v *VisitRows) Read(e *history.Entry) (bool, error) {
	if !v.rows.Next() {
		if err := v.rows.Err(); err != nil {
			return false, fmt.Errorf("iterate visits: %w", err)
		}
		return false, nil
	}
	v.read++

	var (
		url   sql.NullString
		title sql.NullString
		usec  sql.NullInt64
	)
	if err := v.rows.Scan(&url, &title, &usec); err != nil {
		return false, fmt.Errorf("scan visit %d: %w", v.read, err)
	}

	switch {
	case !url.Valid:
		return false, fmt.Errorf("%w: visit %d has no url", ErrMalformedVisit, v.read)
	case !usec.Valid:
		return false, fmt.Errorf("%w: visit %d (%s) has no visit time", ErrMalformedVisit, v.read, url.String)
	case usec.Int64 < 0:
		return false, fmt.Errorf("%w: visit %d (%s) has negative visit time %d", ErrMalformedVisit, v.read, url.String, usec.Int64)
	case !utf8.ValidString(url.String):
		return false, fmt.Errorf("%w: visit %d has a url that is not valid UTF-8: %q", ErrMalformedVisit, v.read, url.String)
	}

	e.Reset()
	buf := timefmt.AppendMicros(e.Buffer(), usec.Int64)
	buf = append(buf, ' ')
	buf = appendOneLine(buf, url.String)
	if title.Valid && title.String != "" && utf8.ValidString(title.String) {
		buf = append(buf, '\t')
		buf = appendOneLine(buf, norm.NFC.String(title.String))
	}
	buf = append(buf, '\n')
	e.SetBuffer(buf)

	return true, nil
}

// Count returns the number of rows consumed so far.
func (v *VisitRows) Count() int64 {
	return v.read
}

// Close releases the underlying rows.
func (v *VisitRows) Close() error {
	return v.rows.Close()
}

// appendOneLine appends s with every tab, CR and LF replaced by a space.
func appendOneLine(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\t', '\r', '\n':
			dst = append(dst, ' ')
		default:
			dst = append(dst, c)
		}
	}
	return dst
}
