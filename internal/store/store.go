// Package store persists the deployment topology in an embedded sqlite
// database. SaveSchema replaces the whole graph in one transaction; the
// read side answers the system- and subnet-scoped questions the CLI asks.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/depmap-project/depmap/internal/topology"
)

// ErrNotFound aliases topology.ErrNotFound so callers can match lookups
// against either package with a single errors.Is.
var ErrNotFound = topology.ErrNotFound

// Store wraps the sqlite handle. Open runs pending migrations before
// returning, so a Store is always at the current schema version.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path and applies
// pending migrations. Path may be a plain file path or a file: DSN.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Connection pragmas ride along in the DSN so every pooled connection gets
// them, not just the one Exec would happen to run on.
var connPragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
	"_pragma=busy_timeout(5000)",
}

func dsn(path string) string {
	base := path
	if !strings.HasPrefix(base, "file:") {
		base = "file:" + base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(connPragmas, "&")
}
