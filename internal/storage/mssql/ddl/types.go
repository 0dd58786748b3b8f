// Package ddl contains MSSQL-specific helpers for generating DDL.
package ddl

import (
	"fmt"
	"strings"

	gddl "github.com/jonasinn/fitextractor/internal/ddl"
)

// MaxIdent is the SQL Server sysname length.
const MaxIdent = 128

// MapType maps a logical kind into a SQL Server column type (fallback
// profile). Unknown kinds fall back to NVARCHAR(MAX).
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindUUID:
		return "CHAR(36)"
	case gddl.KindName:
		return "NVARCHAR(255)"
	case gddl.KindHash:
		return "CHAR(32)"
	case gddl.KindBytes:
		return "VARBINARY(MAX)"
	case gddl.KindBigint:
		return "BIGINT"
	case gddl.KindDouble:
		return "FLOAT"
	case gddl.KindTimestamp:
		return "DATETIME2"
	default:
		return "NVARCHAR(MAX)"
	}
}

// QuoteIdent quotes a SQL Server identifier using [brackets], escaping ].
func QuoteIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// Param returns the i-th named placeholder (@p1, @p2, ...).
func Param(i int) string { return fmt.Sprintf("@p%d", i) }
