package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"tabular/internal/ddl"
	"tabular/internal/schema"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls int
	Register("registry-ok", func(context.Context, Config) (Repository, error) {
		calls++
		return &recordingRepo{}, nil
	})
	// A second registration replaces the first.
	Register("registry-ok", func(_ context.Context, cfg Config) (Repository, error) {
		calls += 10
		if cfg.Table != "people" {
			t.Errorf("factory cfg.Table = %q, want people", cfg.Table)
		}
		return &recordingRepo{}, nil
	})
	Register("registry-err", func(context.Context, Config) (Repository, error) { return nil, boom })

	tests := []struct {
		kind    string
		wantErr string
	}{
		{"registry-ok", ""},
		{"registry-err", "boom"},
		{"registry-missing", "unsupported storage.kind=registry-missing"},
	}
	for _, tt := range tests {
		repo, err := New(context.Background(), Config{Kind: tt.kind, Table: "people"})
		if tt.wantErr == "" {
			if err != nil || repo == nil {
				t.Fatalf("New(%s) = %v, %v, want repository", tt.kind, repo, err)
			}
			continue
		}
		if err == nil || err.Error() != tt.wantErr {
			t.Fatalf("New(%s) error = %v, want %q", tt.kind, err, tt.wantErr)
		}
	}
	if calls != 10 {
		t.Fatalf("factory calls = %d, want 10", calls)
	}

	kinds := ListKinds()
	if !slices.IsSorted(kinds) || !slices.Contains(kinds, "registry-ok") {
		t.Fatalf("ListKinds = %v, want sorted and containing registry-ok", kinds)
	}
	kinds[0] = "mutated"
	if slices.Contains(ListKinds(), "mutated") {
		t.Fatalf("ListKinds shares its backing array with the registry")
	}
}

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	RegisterDDL("ensure-test", Bootstrap(ddl.Dialect{
		Name:        "ensure-test",
		Quote:       func(s string) string { return `"` + s + `"` },
		MapType:     func(string) string { return "TEXT" },
		IfNotExists: true,
	}))
	sch := &schema.Schema{
		Fields:     []schema.Field{{Name: "id", Type: schema.TypeInteger}, {Name: "name", Type: schema.TypeString}},
		PrimaryKey: []string{"id"},
	}

	repo := &recordingRepo{}
	if err := EnsureTable(context.Background(), "ensure-test", repo, "people", sch); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(repo.stmts) != 1 {
		t.Fatalf("statements = %d, want 1", len(repo.stmts))
	}
	stmt := repo.stmts[0]
	for _, want := range []string{`CREATE TABLE IF NOT EXISTS "people"`, `"id" TEXT NOT NULL`, `PRIMARY KEY ("id")`} {
		if !strings.Contains(stmt, want) {
			t.Fatalf("statement %q does not contain %q", stmt, want)
		}
	}

	if err := EnsureTable(context.Background(), "ensure-missing", repo, "people", sch); err == nil {
		t.Fatalf("EnsureTable(unknown kind) error = nil, want error")
	}
	if err := EnsureTable(context.Background(), "ensure-test", repo, "empty", &schema.Schema{}); err == nil {
		t.Fatalf("EnsureTable(empty schema) error = nil, want error")
	}
}
