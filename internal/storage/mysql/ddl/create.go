package ddl

import (
	"strings"

	gddl "tabular/internal/ddl"
)

// Dialect renders CREATE TABLE IF NOT EXISTS with backtick identifiers.
var Dialect = gddl.Dialect{
	Name:        "mysql ddl",
	Quote:       QuoteIdent,
	MapType:     MapType,
	IfNotExists: true,
}

// QuoteIdent wraps id in backticks, doubling embedded backticks.
func QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// QuoteFQN quotes "db.table" segment by segment.
func QuoteFQN(name string) string { return gddl.QuoteFQN(name, QuoteIdent) }
