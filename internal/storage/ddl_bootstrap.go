package storage

import (
	"context"
	"fmt"
	"sync"

	"tabular/internal/ddl"
	"tabular/internal/schema"
)

// DDLBootstrapper is a backend-specific function that renders a table
// definition in its SQL dialect and applies it via repo.Exec.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string, sch *schema.Schema) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) a DDLBootstrapper for the given storage
// kind. It is typically called from backend packages' init() functions.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates table from sch using the bootstrapper of kind. The
// statement is idempotent on every built-in backend.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, sch *schema.Schema) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, table, sch)
}

// Bootstrap returns a DDLBootstrapper for a backend dialect.
func Bootstrap(d ddl.Dialect) DDLBootstrapper {
	return func(ctx context.Context, repo Repository, table string, sch *schema.Schema) error {
		def, err := ddl.FromSchema(table, sch, d.MapType)
		if err != nil {
			return fmt.Errorf("infer table definition: %w", err)
		}
		stmt, err := ddl.BuildCreateTableSQL(def, d)
		if err != nil {
			return err
		}
		return repo.Exec(ctx, stmt)
	}
}
