// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// Visit is one history visit to seed into a fixture database.
type Visit struct {
	URL   string
	Title *string // nil stores NULL

	// Micros is the visit time in microseconds since the Unix epoch.
	Micros int64
}

// Str returns a pointer to s, for Visit.Title.
func Str(s string) *string {
	return &s
}

// chromiumEpochOffset is the number of microseconds between 1601-01-01 and
// 1970-01-01.
const chromiumEpochOffset = 11_644_473_600_000_000

const firefoxSchema = `
CREATE TABLE moz_places (
	id INTEGER PRIMARY KEY,
	url LONGVARCHAR,
	title LONGVARCHAR,
	description TEXT,
	preview_image_url TEXT
);
CREATE TABLE moz_historyvisits (
	id INTEGER PRIMARY KEY,
	from_visit INTEGER,
	place_id INTEGER,
	visit_date INTEGER,
	visit_type INTEGER
);`

const chromiumSchema = `
CREATE TABLE urls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url LONGVARCHAR,
	title LONGVARCHAR,
	visit_count INTEGER DEFAULT 0 NOT NULL
);
CREATE TABLE visits (
	id INTEGER PRIMARY KEY,
	url INTEGER NOT NULL,
	visit_time INTEGER NOT NULL,
	from_visit INTEGER
);`

// FirefoxDB writes a places.sqlite style database holding visits into a
// temporary directory and returns its path. Visits to the same URL share
// one moz_places row, as they do in a real profile.
func FirefoxDB(t *testing.T, visits ...Visit) string {
	t.Helper()
	return buildDB(t, "places.sqlite", firefoxSchema, func(tx *sql.Tx, placeID int64, v Visit) error {
		_, err := tx.Exec(`INSERT INTO moz_historyvisits (place_id, visit_date, visit_type) VALUES (?, ?, 1)`,
			placeID, v.Micros)
		return err
	}, `INSERT INTO moz_places (url, title) VALUES (?, ?)`, `SELECT id FROM moz_places WHERE url = ?`, visits...)
}

// ChromiumDB writes a Chromium "History" style database holding visits
// into a temporary directory and returns its path.
func ChromiumDB(t *testing.T, visits ...Visit) string {
	t.Helper()
	return buildDB(t, "History", chromiumSchema, func(tx *sql.Tx, urlID int64, v Visit) error {
		_, err := tx.Exec(`INSERT INTO visits (url, visit_time) VALUES (?, ?)`,
			urlID, v.Micros+chromiumEpochOffset)
		return err
	}, `INSERT INTO urls (url, title) VALUES (?, ?)`, `SELECT id FROM urls WHERE url = ?`, visits...)
}

func buildDB(t *testing.T, name, schema string, insertVisit func(*sql.Tx, int64, Visit) error,
	insertPlace, lookupPlace string, visits ...Visit) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, v := range visits {
		var id int64
		switch err := tx.QueryRow(lookupPlace, v.URL).Scan(&id); err {
		case nil:
		case sql.ErrNoRows:
			res, err := tx.Exec(insertPlace, v.URL, v.Title)
			if err != nil {
				t.Fatalf("insert place %q: %v", v.URL, err)
			}
			if id, err = res.LastInsertId(); err != nil {
				t.Fatalf("place id: %v", err)
			}
		default:
			t.Fatalf("lookup place %q: %v", v.URL, err)
		}

		if err := insertVisit(tx, id, v); err != nil {
			t.Fatalf("insert visit %q: %v", v.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	return path
}
