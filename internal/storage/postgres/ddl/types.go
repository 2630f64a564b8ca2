// Package ddl contains Postgres-specific helpers for generating DDL.
package ddl

import (
	"strings"

	"tabular/internal/schema"
)

// MapType maps a schema field type into a Postgres SQL type.
//
//	integer         -> BIGINT
//	number          -> DOUBLE PRECISION
//	boolean         -> BOOLEAN
//	date            -> DATE
//	datetime        -> TIMESTAMPTZ
//	everything else -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeNumber:
		return "DOUBLE PRECISION"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDatetime:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}
