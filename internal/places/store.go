package places

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Registered database/sql driver names.
const (
	DriverCGO  = "sqlite3"
	DriverPure = "sqlite"
)

// ValidDrivers lists the accepted driver names.
var ValidDrivers = []string{DriverCGO, DriverPure}

// Options configures Open.
type Options struct {
	// Driver is DriverCGO or DriverPure. Empty selects DriverCGO.
	Driver string

	// Schema selects the browser table layout. Zero value selects Firefox.
	Schema Schema
}

// Store is a read-only handle on a browser history database.
type Store struct {
	db     *sql.DB
	schema Schema
}

// Open opens the history database at path read-only.
//
// The file must exist; a missing path is reported instead of letting the
// driver create an empty database.
func Open(path string, opts Options) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	driver := opts.Driver
	if driver == "" {
		driver = DriverCGO
	}
	if !IsValidDriver(driver) {
		return nil, fmt.Errorf("unknown driver %q: must be one of %v", driver, ValidDrivers)
	}

	schema := opts.Schema
	if schema.Name == "" {
		schema = Firefox
	}

	db, err := sql.Open(driver, "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas are per connection, so keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db, schema: schema}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Schema returns the table layout the store queries.
func (s *Store) Schema() Schema {
	return s.schema
}

// Visits starts the visit query and returns a cursor over its rows.
// Callers must Close the cursor.
func (s *Store) Visits(ctx context.Context) (*VisitRows, error) {
	rows, err := s.db.QueryContext(ctx, s.schema.Query)
	if err != nil {
		return nil, fmt.Errorf("query %s visits: %w", s.schema.Name, err)
	}
	return &VisitRows{rows: rows}, nil
}

// CountVisits returns the number of visits the export query would yield.
func (s *Store) CountVisits(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+s.schema.Query+")").Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s visits: %w", s.schema.Name, err)
	}
	return n, nil
}

// IsValidDriver checks if name is one of ValidDrivers.
func IsValidDriver(name string) bool {
	for _, d := range ValidDrivers {
		if d == name {
			return true
		}
	}
	return false
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA query_only = ON",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
