// Package places reads browser history visits from a SQLite history
// database.
//
// The database is always opened read-only. A browser may hold the file
// open while an export runs, so connections wait on locks instead of
// failing straight away.
//
// # Ordering
//
// Every visit query orders by (visit time truncated to milliseconds, url)
// under SQLite's BINARY collation. That is exactly the byte order of the
// export key "<timestamp> <url>", because the timestamp text is rendered at
// millisecond precision. Ordering by the raw microsecond value would let two
// visits inside the same millisecond come back in a different order than
// their keys.
//
// # Database Configuration
//
//   - mode=ro: the file is never written
//   - query_only=ON: rejects any statement that would modify the database
//   - busy_timeout=5000: wait for locks up to 5 seconds
//
// # Drivers
//
// DriverCGO ("sqlite3", github.com/mattn/go-sqlite3) is the default.
// DriverPure ("sqlite", modernc.org/sqlite) needs no C toolchain.
package places
