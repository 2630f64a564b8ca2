package mssql

import (
	"context"

	"tabular/internal/storage"
	msddl "tabular/internal/storage/mssql/ddl"
)

// Kind is the storage.Config.Kind served by this package.
const Kind = "mssql"

// newRepository is swapped by tests that must not dial a server.
var newRepository = NewRepository

// wrappedRepo satisfies storage.Repository; Close runs the cleanup returned
// by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func open(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, closeFn, err := newRepository(ctx, Config{
		DSN:        cfg.DSN,
		Table:      cfg.Table,
		Columns:    cfg.Columns,
		KeyColumns: cfg.KeyColumns,
	})
	if err != nil {
		return nil, err
	}
	return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
}

func init() {
	storage.Register(Kind, open)
	storage.RegisterDDL(Kind, storage.Bootstrap(msddl.Dialect))
}
