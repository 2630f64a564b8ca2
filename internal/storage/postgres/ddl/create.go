package ddl

import (
	"strings"

	gddl "tabular/internal/ddl"
)

// Dialect renders CREATE TABLE IF NOT EXISTS with double-quoted identifiers.
var Dialect = gddl.Dialect{
	Name:        "postgres ddl",
	Quote:       quoteIdent,
	MapType:     MapType,
	IfNotExists: true,
}

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteFQN quotes a possibly schema-qualified name like "public.cities" to
// "public"."cities".
func QuoteFQN(name string) string { return gddl.QuoteFQN(name, quoteIdent) }

// BuildCreateTableSQL returns a Postgres CREATE TABLE IF NOT EXISTS statement
// for the given table definition.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(t, Dialect)
}
