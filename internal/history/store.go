// Package history archives verifier reports and diff manifests to a
// SQLite database so operators can inspect past runs by id or by
// input hash. Uses the same WAL/pragma/single-writer opening sequence
// and ON CONFLICT DO NOTHING idempotency discipline as other embedded
// SQLite stores in this codebase's lineage, simplified to two tables
// since GDSL has no event log to replay.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is a durable archive of verifier and diff-engine runs.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path, applying pragmas
// and the schema. Idempotent — safe to call repeatedly against the
// same path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping %s: %w", path, err)
	}

	// SQLite tolerates exactly one writer; this module never needs
	// concurrent connections within a process, so it pins to one to
	// avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying connection for callers that need direct
// queries beyond ListRuns, GetRun, FindVerifiedRun and GetDiff.
func (s *Store) DB() *sql.DB {
	return s.db
}
