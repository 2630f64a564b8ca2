// Package ddl contains MySQL-specific helpers for generating DDL.
package ddl

import (
	"strings"

	"tabular/internal/schema"
)

// MapType maps a schema field type into a MySQL column type. Strings map to
// TEXT, which MySQL cannot index without a prefix length, so string primary
// keys need a hand-written table.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeNumber:
		return "DOUBLE"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDatetime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}
