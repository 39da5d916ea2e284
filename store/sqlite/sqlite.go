/*
Package sqlite provides a SQLite-backed PathStore.

PURPOSE:
  Durable key/value persistence behind the same path interface the
  in-memory store implements. One table, one row per path, JSON in the
  value column. A single-row upsert or delete is the per-path atomic unit
  the saga layer builds on; nothing here spans rows.

WAL MODE:
  The database opens with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

TRANSIENT ERRORS:
  SQLITE_BUSY / SQLITE_LOCKED surface as store.TransientError so the saga
  retry policy picks them up; everything else is permanent.

USAGE:
  st, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  svc := ledger.NewService(st, identity)

SEE ALSO:
  - store/store.go: PathStore interface and error taxonomy
  - store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/split-ledger/store"
)

// Store implements store.PathStore on a single SQLite table.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS paths (
		path  TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Read returns the raw JSON stored at path.
func (s *Store) Read(ctx context.Context, path string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM paths WHERE path = ?", path,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify("read", path, err)
	}
	return json.RawMessage(value), nil
}

// Write marshals value and upserts it at path. The single-statement
// upsert is what makes the write atomic.
func (s *Store) Write(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling value for %s: %w", path, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO paths (path, value) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET value = excluded.value
	`, path, string(raw))
	if err != nil {
		return classify("write", path, err)
	}
	return nil
}

// Delete removes the row at path. Deleting an absent path is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM paths WHERE path = ?", path)
	if err != nil {
		return classify("delete", path, err)
	}
	return nil
}

// List returns all stored paths with the given prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path FROM paths WHERE path LIKE ? || '%' ORDER BY path", prefix,
	)
	if err != nil {
		return nil, classify("list", prefix, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// classify wraps lock contention as transient so the saga retry policy
// picks it up; everything else passes through as permanent.
func classify(op, path string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return &store.TransientError{Op: op, Path: path, Err: err}
		}
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}
