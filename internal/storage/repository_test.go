package storage

import (
	"context"
	"path/filepath"
	"testing"

	"gagyebu/internal/store"
	"gagyebu/internal/store/storetest"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestRepository(t) })
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Fatalf("schema version = %d dirty=%v, want 1 clean", version, dirty)
	}

	// Reopening an up-to-date database is a no-op.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	repo.Close()
}

func TestInvalidStoredDefinitionIsSkipped(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if _, err := repo.CreateDefinition(ctx, storetest.Definition("Rent", 1)); err != nil {
		t.Fatal(err)
	}
	// A row written by something else with a category outside the known set.
	_, err := repo.db.ExecContext(ctx, `INSERT INTO recurring_definitions
		(id, name, amount, category, kind, day_of_month, start_date, is_active, created_at)
		VALUES ('legacy', 'Legacy', 1000, 'Unknown', 'expense', 5, '2025-01-01', 1, '2025-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatal(err)
	}

	defs, err := repo.ListDefinitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 || defs[0].Name != "Rent" {
		t.Fatalf("expected only the valid definition, got %+v", defs)
	}
	if _, err := repo.GetDefinition(ctx, "legacy"); err == nil {
		t.Fatal("expected validation error for legacy row")
	}
}
