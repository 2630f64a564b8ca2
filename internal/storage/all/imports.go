// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each backend, which register their
// factories and DDL bootstrappers with the storage package:
//
//   - "sqlite"   (tabular/internal/storage/sqlite)
//   - "postgres" (tabular/internal/storage/postgres)
//   - "mysql"    (tabular/internal/storage/mysql)
//   - "mssql"    (tabular/internal/storage/mssql)
//
// Typical usage:
//
//	import _ "tabular/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "out.db", Table: "cities"})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
//	n, err := storage.WriteResource(ctx, repo, res, storage.WriteOptions{Kind: "sqlite", Create: true})
package all

import (
	_ "tabular/internal/storage/mssql"
	_ "tabular/internal/storage/mysql"
	_ "tabular/internal/storage/postgres"
	_ "tabular/internal/storage/sqlite"
)
