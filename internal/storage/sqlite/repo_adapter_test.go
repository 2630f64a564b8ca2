package sqlite

import (
	"context"
	"errors"
	"testing"

	"tabular/internal/schema"
	"tabular/internal/storage"
)

func TestFactory_InMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: Kind, DSN: ":memory:", Table: "tags"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()

	sch := &schema.Schema{Fields: []schema.Field{{Name: "tag", Type: schema.TypeString}, {Name: "hits", Type: schema.TypeInteger}}}
	// The statement is idempotent.
	for range 2 {
		if err := storage.EnsureTable(ctx, Kind, repo, "tags", sch); err != nil {
			t.Fatalf("EnsureTable: %v", err)
		}
	}
	if n, err := repo.CopyFrom(ctx, []string{"tag", "hits"}, [][]any{{"go", int64(3)}}); err != nil || n != 1 {
		t.Fatalf("CopyFrom = %d, %v, want 1", n, err)
	}
	if got, err := repo.(*wrappedRepo).Count(ctx, "tags"); err != nil || got != 1 {
		t.Fatalf("Count = %d, %v, want 1", got, err)
	}
}

// TestFactory_Hook swaps newRepository, so it does not run in parallel.
func TestFactory_Hook(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	var got Config
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return nil, nil, errors.New("locked")
	}
	_, err := storage.New(context.Background(), storage.Config{Kind: Kind, DSN: "file:x.db", Table: "main.t", KeyColumns: []string{"id"}})
	if err == nil || err.Error() != "locked" {
		t.Fatalf("storage.New error = %v, want locked", err)
	}
	if got.DSN != "file:x.db" || got.Table != "main.t" || len(got.KeyColumns) != 1 {
		t.Fatalf("hook cfg = %+v", got)
	}
}
