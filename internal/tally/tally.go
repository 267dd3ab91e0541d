// Package tally keeps per-day counters (water glasses, meals) next to the
// notifications panel.
package tally

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// dayLayout keys rows by local calendar day.
const dayLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS tallies (
	kind  TEXT    NOT NULL,
	day   TEXT    NOT NULL,
	value INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (kind, day)
)`

// Day is one stored counter value.
type Day struct {
	Kind  string `db:"kind" json:"kind"`
	Day   string `db:"day" json:"day"`
	Value int64  `db:"value" json:"value"`
}

// Store persists tallies in SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (or creates) the database at path. ":memory:" is allowed.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection: writes are rare, and an in-memory database is
	// per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) today() string {
	return s.now().Format(dayLayout)
}

func normalizeKind(kind string) (string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return "", fmt.Errorf("tally kind must not be empty")
	}
	return kind, nil
}

// Today returns today's value for kind, initializing it to 0 on first use.
func (s *Store) Today(ctx context.Context, kind string) (int64, error) {
	kind, err := normalizeKind(kind)
	if err != nil {
		return 0, err
	}
	day := s.today()

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tallies (kind, day, value) VALUES (?, ?, 0)`, kind, day); err != nil {
		return 0, fmt.Errorf("initializing %s tally: %w", kind, err)
	}

	var value int64
	if err := s.db.GetContext(ctx, &value,
		`SELECT value FROM tallies WHERE kind = ? AND day = ?`, kind, day); err != nil {
		return 0, fmt.Errorf("reading %s tally: %w", kind, err)
	}
	return value, nil
}

// Add adds delta (may be negative) to today's value and returns the result.
func (s *Store) Add(ctx context.Context, kind string, delta int64) (int64, error) {
	kind, err := normalizeKind(kind)
	if err != nil {
		return 0, err
	}
	day := s.today()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO tallies (kind, day, value) VALUES (?, ?, ?)
		ON CONFLICT (kind, day) DO UPDATE SET value = value + excluded.value`
	if _, err := tx.ExecContext(ctx, upsert, kind, day, delta); err != nil {
		return 0, fmt.Errorf("adding to %s tally: %w", kind, err)
	}

	var value int64
	if err := tx.GetContext(ctx, &value,
		`SELECT value FROM tallies WHERE kind = ? AND day = ?`, kind, day); err != nil {
		return 0, fmt.Errorf("reading %s tally: %w", kind, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s tally: %w", kind, err)
	}
	return value, nil
}

// History returns up to days recorded values for kind, most recent first.
// An empty kind returns every kind.
func (s *Store) History(ctx context.Context, kind string, days int) ([]Day, error) {
	if days <= 0 {
		days = 7
	}

	var (
		rows []Day
		err  error
	)
	if strings.TrimSpace(kind) == "" {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT kind, day, value FROM tallies ORDER BY day DESC, kind LIMIT ?`, days)
	} else {
		kind, err = normalizeKind(kind)
		if err != nil {
			return nil, err
		}
		err = s.db.SelectContext(ctx, &rows,
			`SELECT kind, day, value FROM tallies WHERE kind = ? ORDER BY day DESC LIMIT ?`, kind, days)
	}
	if err != nil {
		return nil, fmt.Errorf("listing tallies: %w", err)
	}
	return rows, nil
}
