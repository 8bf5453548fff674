// Package prefs persists small per-user flags, such as whether the welcome
// tour was already shown, in a local sqlite database.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// VisitedKey marks that the pool page welcome tour was shown.
const VisitedKey = "blend-pool-visited"

const schema = `
CREATE TABLE IF NOT EXISTS flags (
	key        TEXT PRIMARY KEY,
	value      INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store is a key/value flag store. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating when needed) the store at path. ":memory:" gives a
// private in-memory store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("prefs: path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("prefs: create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("prefs: open %s: %w", path, err)
	}
	// one connection; an in-memory database is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs: create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Flag reports the value of key; unset keys are false.
func (s *Store) Flag(ctx context.Context, key string) (bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM flags WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prefs: read %s: %w", key, err)
	}
	return v != 0, nil
}

// SetFlag stores value under key.
func (s *Store) SetFlag(ctx context.Context, key string, value bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flags (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, boolToInt(value), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("prefs: write %s: %w", key, err)
	}
	return nil
}

// FirstVisit sets key and reports whether it was unset before. Exactly one
// caller sees true for a key, however many race.
func (s *Store) FirstVisit(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO flags (key, value, updated_at) VALUES (?, 1, ?)
		 ON CONFLICT(key) DO UPDATE SET value = 1, updated_at = excluded.updated_at WHERE flags.value = 0`,
		key, s.now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("prefs: mark %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("prefs: mark %s: %w", key, err)
	}
	return n == 1, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
