package trapwrite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// SQLiteStore persists trap-write events durably using the pure-Go
// modernc.org/sqlite driver (no cgo), for deployments that need audit
// history to survive a process restart. MemoryStore remains the default;
// this is opt-in via config.TrapWriteConfig.Backend = "sqlite".
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) a sqlite database at path
// and ensures its schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trapwrite: open sqlite store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("trapwrite: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS trap_write_events (
	id            TEXT PRIMARY KEY,
	user          TEXT NOT NULL,
	host          TEXT NOT NULL,
	method        TEXT NOT NULL,
	authority     TEXT NOT NULL,
	type_tag      TEXT NOT NULL,
	element_count INTEGER NOT NULL,
	before_ts     INTEGER NOT NULL,
	after_ts      INTEGER NOT NULL,
	completed     INTEGER NOT NULL
);`

// Append inserts the row for e.ID, or updates it if a row with that ID
// already exists. Dispatcher.After appends each completed event once.
func (s *SQLiteStore) Append(e *Event) error {
	_, err := s.db.Exec(
		`INSERT INTO trap_write_events
			(id, user, host, method, authority, type_tag, element_count, before_ts, after_ts, completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET after_ts=excluded.after_ts, completed=excluded.completed`,
		e.ID, e.Identity.User, e.Identity.Host, e.Identity.Method, e.Identity.Authority,
		e.TypeTag, e.ElementCount, e.Before.UnixNano(), e.After.UnixNano(), boolToInt(e.Completed),
	)
	if err != nil {
		return fmt.Errorf("trapwrite: append event: %w", err)
	}
	return nil
}

// Recent returns up to n most recently inserted events, newest first.
func (s *SQLiteStore) Recent(n int) []*Event {
	if n <= 0 {
		n = 1000
	}
	rows, err := s.db.Query(
		`SELECT id, user, host, method, authority, type_tag, element_count, before_ts, after_ts, completed
		 FROM trap_write_events ORDER BY before_ts DESC LIMIT ?`, n)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var e Event
		var before, after int64
		var completed int
		if err := rows.Scan(&e.ID, &e.Identity.User, &e.Identity.Host, &e.Identity.Method, &e.Identity.Authority,
			&e.TypeTag, &e.ElementCount, &before, &after, &completed); err != nil {
			continue
		}
		e.Before = time.Unix(0, before)
		e.After = time.Unix(0, after)
		e.Completed = completed != 0
		out = append(out, &e)
	}
	return out
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)
