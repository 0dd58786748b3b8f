package ddl

import (
	"testing"

	gddl "github.com/jonasinn/fitextractor/internal/ddl"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind gddl.Kind
		want string
	}{
		{gddl.KindUUID, "CHAR(36)"},
		{gddl.KindName, "VARCHAR(255)"},
		{gddl.KindHash, "CHAR(32)"},
		{gddl.KindTextList, "TEXT"},
		{gddl.KindBytes, "BLOB"},
		{gddl.KindBigint, "INTEGER"},
		{gddl.KindDouble, "REAL"},
		{gddl.KindTimestamp, "TIMESTAMP"},
		{gddl.KindOpaque, "TEXT"},
		{"", "TEXT"},
	}
	for _, tt := range tests {
		if got := MapType(tt.kind); got != tt.want {
			t.Errorf("MapType(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()
	if got := QuoteIdent(`a"b`); got != `"a""b"` {
		t.Fatalf("QuoteIdent = %q", got)
	}
}
