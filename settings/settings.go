// Package settings stores user-scoped configuration values: the vision API
// credential and the selected vision model.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Schema creates the settings table.
const Schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	keyAPIKey = "openai_key"
	keyModel  = "openai_model"
)

// ErrUnknownModel is returned when a model id is not in the catalog.
var ErrUnknownModel = errors.New("settings: unknown model id")

// Store wraps the settings table.
type Store struct {
	DB *sql.DB

	// DefaultModel is used when no model has been selected. The zero value
	// falls back to the vision package's baseline at the call site.
	DefaultModel string

	// KnownModels validates SetModel input when non-empty.
	KnownModels []string
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("settings: get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}

// APIKey returns the stored vision API credential, empty if unset.
func (s *Store) APIKey(ctx context.Context) (string, error) {
	return s.get(ctx, keyAPIKey)
}

// SetAPIKey stores the vision API credential.
func (s *Store) SetAPIKey(ctx context.Context, key string) error {
	return s.set(ctx, keyAPIKey, key)
}

// Model returns the selected vision model id, or DefaultModel if unset.
func (s *Store) Model(ctx context.Context) (string, error) {
	m, err := s.get(ctx, keyModel)
	if err != nil {
		return "", err
	}
	if m == "" {
		return s.DefaultModel, nil
	}
	return m, nil
}

// SetModel stores the selected vision model id after validating it against
// KnownModels (when configured).
func (s *Store) SetModel(ctx context.Context, id string) error {
	if len(s.KnownModels) > 0 {
		ok := false
		for _, m := range s.KnownModels {
			if m == id {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownModel, id)
		}
	}
	return s.set(ctx, keyModel, id)
}
