// Package ddl contains SQLite-specific helpers for generating DDL.
package ddl

import (
	"strings"

	"tabular/internal/schema"
)

// MapType maps a schema field type into a SQLite column type.
//
// SQLite is dynamically typed, so this picks canonical affinities:
//   - integer          -> INTEGER
//   - boolean          -> INTEGER (0/1)
//   - number           -> REAL
//   - date/datetime    -> TEXT (ISO-8601)
//   - others           -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeBoolean:
		return "INTEGER"
	case schema.TypeNumber:
		return "REAL"
	case schema.TypeDate, schema.TypeDatetime:
		return "TEXT"
	default:
		return "TEXT"
	}
}
