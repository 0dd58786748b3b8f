// Package ddl contains Postgres-specific DDL spelling: logical kind to SQL type
// mapping and identifier quoting.
package ddl

import (
	"strconv"
	"strings"

	gddl "github.com/jonasinn/fitextractor/internal/ddl"
)

// MaxIdent is the Postgres identifier length limit (NAMEDATALEN - 1).
const MaxIdent = 63

// MapType maps a logical kind onto Postgres types. Postgres uses the native
// profile: UUID identifiers and TEXT[] lists.
//
//	uuid      -> UUID
//	name      -> VARCHAR(255)
//	md5       -> CHAR(32)
//	text_list -> TEXT[]
//	bytes     -> BYTEA
//	bigint    -> BIGINT
//	double    -> DOUBLE PRECISION
//	timestamp -> TIMESTAMPTZ
//	everything else -> TEXT
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindUUID:
		return "UUID"
	case gddl.KindName:
		return "VARCHAR(255)"
	case gddl.KindHash:
		return "CHAR(32)"
	case gddl.KindTextList:
		return "TEXT[]"
	case gddl.KindBytes:
		return "BYTEA"
	case gddl.KindBigint:
		return "BIGINT"
	case gddl.KindDouble:
		return "DOUBLE PRECISION"
	case gddl.KindTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// QuoteIdent quotes a single identifier segment for Postgres, e.g.:
//
//	QuoteIdent(`record`)     => `"record"`
//	QuoteIdent(`weird"name`) => `"weird""name"`
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// Param returns the i-th positional placeholder ($1, $2, ...).
func Param(i int) string { return "$" + strconv.Itoa(i) }
