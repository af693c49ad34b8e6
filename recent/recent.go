// Package recent persists the deduplicated, size-bounded list of previously
// contacted numbers.
//
// The SQLite table is the single source of truth: every read and write goes
// straight to the database, so concurrent writers (coordinator, MCP tools)
// always observe each other's changes without an explicit reload step.
package recent

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxEntries bounds the store; the oldest entry is evicted first.
const MaxEntries = 10

// Schema creates the recent_numbers table.
const Schema = `
CREATE TABLE IF NOT EXISTS recent_numbers (
	number       TEXT PRIMARY KEY,
	ts           INTEGER NOT NULL,
	country_code TEXT NOT NULL,
	source       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recent_numbers_ts ON recent_numbers(ts DESC);
`

// Entry is one previously contacted number.
type Entry struct {
	Number      string `json:"number"`    // canonical, +<country code><digits>
	Timestamp   int64  `json:"timestamp"` // epoch milliseconds of last use
	CountryCode string `json:"countryCode"`
	Source      string `json:"source"`
}

// Store wraps the recent_numbers table.
type Store struct {
	DB *sql.DB

	now func() int64 // epoch milliseconds; replaceable in tests
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:  db,
		now: func() int64 { return time.Now().UnixMilli() },
	}
}

var nonDigits = regexp.MustCompile(`\D`)

// Canonical builds the full international form of raw under dialCode.
// Rules, in order:
//  1. digits already start with the dial code's digits → prefix "+" as-is;
//  2. leading "0" (local trunk prefix) → drop it, prepend the dial code;
//  3. otherwise prepend the dial code directly.
func Canonical(raw, dialCode string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	ccDigits := nonDigits.ReplaceAllString(dialCode, "")
	switch {
	case ccDigits != "" && strings.HasPrefix(digits, ccDigits):
		return "+" + digits
	case strings.HasPrefix(digits, "0"):
		return "+" + ccDigits + digits[1:]
	default:
		return "+" + ccDigits + digits
	}
}

// Add canonicalizes raw and inserts it at the front of the list with the
// current timestamp, replacing any existing entry for the same canonical
// number, then trims the table to MaxEntries.
func (s *Store) Add(ctx context.Context, raw, dialCode, source string) error {
	number := Canonical(raw, dialCode)
	now := s.now()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recent: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recent_numbers (number, ts, country_code, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			ts = excluded.ts,
			country_code = excluded.country_code,
			source = excluded.source`,
		number, now, dialCode, source)
	if err != nil {
		return fmt.Errorf("recent: upsert: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM recent_numbers WHERE number NOT IN (
			SELECT number FROM recent_numbers ORDER BY ts DESC, number LIMIT ?
		)`, MaxEntries)
	if err != nil {
		return fmt.Errorf("recent: trim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recent: commit: %w", err)
	}
	return nil
}

// Remove deletes the entry with the given canonical number. Deleting a
// number that is not present is a no-op, not an error.
func (s *Store) Remove(ctx context.Context, number string) error {
	if _, err := s.DB.ExecContext(ctx,
		`DELETE FROM recent_numbers WHERE number = ?`, number); err != nil {
		return fmt.Errorf("recent: delete: %w", err)
	}
	return nil
}

// Clear empties the store.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM recent_numbers`); err != nil {
		return fmt.Errorf("recent: clear: %w", err)
	}
	return nil
}

// List returns the entries most-recently-used first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT number, ts, country_code, source
		FROM recent_numbers ORDER BY ts DESC, number`)
	if err != nil {
		return nil, fmt.Errorf("recent: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Number, &e.Timestamp, &e.CountryCode, &e.Source); err != nil {
			return nil, fmt.Errorf("recent: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent: rows: %w", err)
	}
	return entries, nil
}
