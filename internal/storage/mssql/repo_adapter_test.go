package mssql

import (
	"context"
	"strings"
	"testing"

	"tabular/internal/schema"
	"tabular/internal/storage"
)

type execRecorder struct{ stmts []string }

func (e *execRecorder) CopyFrom(context.Context, []string, [][]any) (int64, error) { return 0, nil }
func (e *execRecorder) Exec(_ context.Context, sql string) error {
	e.stmts = append(e.stmts, sql)
	return nil
}
func (e *execRecorder) Close() {}

// TestFactory swaps newRepository, so it does not run in parallel.
func TestFactory(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	var got Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: Kind, DSN: "sqlserver://sa@host", Table: "dbo.orders"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if got.DSN != "sqlserver://sa@host" || got.Table != "dbo.orders" {
		t.Fatalf("hook cfg = %+v", got)
	}
	if n, err := repo.CopyFrom(context.Background(), []string{"id"}, nil); err != nil || n != 0 {
		t.Fatalf("CopyFrom(nil) = %d, %v, want 0, nil", n, err)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not run closeFn")
	}
}

func TestDDLRegistered(t *testing.T) {
	t.Parallel()

	rec := &execRecorder{}
	sch := &schema.Schema{
		Fields:     []schema.Field{{Name: "id", Type: schema.TypeInteger}, {Name: "ok", Type: schema.TypeBoolean}},
		PrimaryKey: []string{"id"},
	}
	if err := storage.EnsureTable(context.Background(), Kind, rec, "dbo.o'brien", sch); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	stmt := rec.stmts[0]
	for _, want := range []string{
		"IF OBJECT_ID(N'[dbo].[o''brien]', N'U') IS NULL",
		"CREATE TABLE [dbo].[o'brien]",
		"[id] BIGINT NOT NULL",
		"[ok] BIT",
		"PRIMARY KEY ([id])",
	} {
		if !strings.Contains(stmt, want) {
			t.Fatalf("statement %q does not contain %q", stmt, want)
		}
	}
}
