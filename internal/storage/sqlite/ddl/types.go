// Package ddl contains SQLite-specific DDL spelling.
//
// SQLite is dynamically typed, so the mapping picks declared types whose
// affinity matches the data and which the driver recognises when reading back
// (TIMESTAMP columns come back as time.Time).
package ddl

import (
	"strings"

	gddl "github.com/jonasinn/fitextractor/internal/ddl"
)

// MapType maps a logical kind into a SQLite column type (fallback profile):
//
//	uuid      -> CHAR(36)
//	name      -> VARCHAR(255)
//	md5       -> CHAR(32)
//	text_list -> TEXT (JSON array)
//	bytes     -> BLOB
//	bigint    -> INTEGER
//	double    -> REAL
//	timestamp -> TIMESTAMP
//	others    -> TEXT
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindUUID:
		return "CHAR(36)"
	case gddl.KindName:
		return "VARCHAR(255)"
	case gddl.KindHash:
		return "CHAR(32)"
	case gddl.KindBytes:
		return "BLOB"
	case gddl.KindBigint:
		return "INTEGER"
	case gddl.KindDouble:
		return "REAL"
	case gddl.KindTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// QuoteIdent double-quotes an identifier, escaping embedded quotes.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
