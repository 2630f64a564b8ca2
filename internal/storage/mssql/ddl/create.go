// Package ddl provides MSSQL-specific helpers for generating CREATE TABLE
// statements.
//
// T-SQL has no CREATE TABLE IF NOT EXISTS, so the statement is wrapped in an
// IF OBJECT_ID(...) IS NULL guard. Identifiers use [bracket] quoting.
package ddl

import (
	"fmt"
	"strings"

	gddl "tabular/internal/ddl"
)

// Dialect renders a guarded CREATE TABLE:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	CREATE TABLE [schema].[table] (
//	  ...
//	);
//	END;
var Dialect = gddl.Dialect{
	Name:    "mssql ddl",
	Quote:   QuoteIdent,
	MapType: MapType,
	Guard: func(fqn, stmt string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n%s\nEND;",
			strings.ReplaceAll(fqn, "'", "''"), stmt)
	},
}

// QuoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func QuoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// BuildCreateTableSQL returns a T-SQL script that creates a table matching
// the provided definition if it does not already exist.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(t, Dialect)
}
