// Package ddl contains MySQL-specific DDL spelling.
package ddl

import (
	"strings"

	gddl "github.com/jonasinn/fitextractor/internal/ddl"
)

// MaxIdent is the MySQL identifier length limit.
const MaxIdent = 64

// MapType maps a logical kind into a MySQL column type (fallback profile).
// Lists are stored as JSON text.
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindUUID:
		return "CHAR(36)"
	case gddl.KindName:
		return "VARCHAR(255)"
	case gddl.KindHash:
		return "CHAR(32)"
	case gddl.KindBytes:
		return "LONGBLOB"
	case gddl.KindBigint:
		return "BIGINT"
	case gddl.KindDouble:
		return "DOUBLE"
	case gddl.KindTimestamp:
		return "DATETIME(6)"
	default:
		return "LONGTEXT"
	}
}

// QuoteIdent quotes an identifier with backticks, doubling embedded ones.
func QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}
