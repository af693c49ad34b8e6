package settings

import (
	"context"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/quickwhats/quickwhats/storedb"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db := storedb.OpenMemory(t, storedb.WithSchema(Schema))
	s := NewStore(db)
	s.DefaultModel = "gpt-4o-mini"
	s.KnownModels = []string{"gpt-4o-mini", "gpt-4.1-mini"}
	return s
}

func TestAPIKey_RoundTrip(t *testing.T) {
	// WHAT: The stored credential reads back; unset reads as empty.
	s := setupStore(t)
	ctx := context.Background()

	key, err := s.APIKey(ctx)
	if err != nil {
		t.Fatalf("read unset: %v", err)
	}
	if key != "" {
		t.Errorf("unset key = %q, want empty", key)
	}

	if err := s.SetAPIKey(ctx, "sk-test-123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	key, err = s.APIKey(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if key != "sk-test-123" {
		t.Errorf("key = %q, want sk-test-123", key)
	}
}

func TestModel_DefaultsWhenUnset(t *testing.T) {
	// WHAT: Model falls back to DefaultModel until the user selects one.
	s := setupStore(t)
	ctx := context.Background()

	m, err := s.Model(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if m != "gpt-4o-mini" {
		t.Errorf("model = %q, want the default", m)
	}
}

func TestSetModel_ValidatesAgainstCatalog(t *testing.T) {
	// WHAT: Selecting a model outside the catalog is rejected.
	// WHY: A typo'd model id would fail every extraction with an opaque API error.
	s := setupStore(t)
	ctx := context.Background()

	if err := s.SetModel(ctx, "gpt-4.1-mini"); err != nil {
		t.Fatalf("set known: %v", err)
	}
	m, err := s.Model(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if m != "gpt-4.1-mini" {
		t.Errorf("model = %q, want gpt-4.1-mini", m)
	}

	err = s.SetModel(ctx, "gpt-9000")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got: %v", err)
	}
}
