package storage

import (
	"context"
	"fmt"
	"iter"
	"log"
	"strings"

	"tabular/internal/errs"
	"tabular/internal/resource"
)

// DefaultBatchSize is used when WriteOptions.BatchSize is zero.
const DefaultBatchSize = 1000

// WriteOptions tunes WriteResource.
type WriteOptions struct {
	// Kind selects the DDL bootstrapper when Create is set.
	Kind string
	// Table is the destination; it defaults to the resource name.
	Table     string
	BatchSize int
	// Create issues CREATE TABLE IF NOT EXISTS from the resource schema.
	Create bool
	// SkipInvalid drops rows that carry errors instead of writing them.
	SkipInvalid bool
}

// WriteResource streams the typed rows of res into repo. The resource is
// opened when closed and closed again afterwards.
func WriteResource(ctx context.Context, repo Repository, res *resource.Resource, opts WriteOptions) (int64, error) {
	if res.Closed() {
		if err := res.Open(ctx); err != nil {
			return 0, err
		}
		defer res.Close()
	}
	sch := res.Schema()
	if sch.Empty() {
		return 0, errs.New(errs.CodeSchema, "resource %q has no fields to write", res.Name())
	}
	table := opts.Table
	if table == "" {
		table = res.Name()
	}
	if opts.Create {
		if err := EnsureTable(ctx, opts.Kind, repo, table, sch); err != nil {
			return 0, fmt.Errorf("storage: create %s: %w", table, err)
		}
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	var skipped int
	rows := func(yield func([]any, error) bool) {
		for row, err := range res.Rows(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if opts.SkipInvalid && !row.Valid() {
				skipped++
				continue
			}
			if !yield(row.Cells(), nil) {
				return
			}
		}
	}
	n, err := LoadBatches(ctx, sch.FieldNames(), iter.Seq2[[]any, error](rows), batch, repo.CopyFrom)
	log.Printf("storage: wrote table=%s rows=%d skipped=%d", table, n, skipped)
	return n, err
}

// Delete drops table, which is used as given. A missing table is a
// resource error unless ignore is set.
func Delete(ctx context.Context, repo Repository, table string, ignore bool) error {
	if strings.TrimSpace(table) == "" {
		return errs.New(errs.CodeResource, "table name must not be empty")
	}
	stmt := "DROP TABLE " + table
	if ignore {
		stmt = "DROP TABLE IF EXISTS " + table
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		e := errs.New(errs.CodeResource, "cannot delete table %q: %v", table, err)
		e.Err = err
		return e
	}
	return nil
}
