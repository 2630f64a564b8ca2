package ddl

import (
	"strings"

	gddl "tabular/internal/ddl"
)

// Dialect renders CREATE TABLE IF NOT EXISTS with double-quoted identifiers.
var Dialect = gddl.Dialect{
	Name:        "sqlite ddl",
	Quote:       QuoteIdent,
	MapType:     MapType,
	IfNotExists: true,
}

// QuoteIdent double-quotes id, doubling embedded quotes.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// BuildCreateTableSQL renders t for SQLite.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(t, Dialect)
}
