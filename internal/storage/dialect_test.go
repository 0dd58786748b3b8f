package storage

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jonasinn/fitextractor/internal/ddl"
)

func testDialect(p Profile) Dialect {
	return Dialect{
		Name:    "test",
		Profile: p,
		Quote:   func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
		Types:   func(k ddl.Kind) string { return strings.ToUpper(string(k)) },
		Param:   func(i int) string { return "$" + strconv.Itoa(i) },
	}
}

func TestDialect_InsertSQL(t *testing.T) {
	t.Parallel()

	d := testDialect(ProfileNative)
	got := d.InsertSQL("message_record", []string{"a", "b"}, 2)
	want := `INSERT INTO "message_record" ("a", "b") VALUES ($1, $2), ($3, $4)`
	if got != want {
		t.Fatalf("InsertSQL =\n%s\nwant\n%s", got, want)
	}

	d.Param = nil
	if got := d.InsertSQL("t", []string{"a"}, 1); got != `INSERT INTO "t" ("a") VALUES (?)` {
		t.Fatalf("InsertSQL with default placeholder = %s", got)
	}
}

func TestDialect_Values(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	native := testDialect(ProfileNative)
	if v, ok := native.IDValue(id).([16]byte); !ok || v != [16]byte(id) {
		t.Fatalf("native IDValue = %#v", native.IDValue(id))
	}
	if v, _ := native.ListValue([]string{"a", "b"}); len(v.([]string)) != 2 {
		t.Fatalf("native ListValue = %#v", v)
	}

	fallback := testDialect(ProfileFallback)
	if v := fallback.IDValue(id); v != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Fatalf("fallback IDValue = %#v", v)
	}
	if v, _ := fallback.ListValue([]string{"record", "lap"}); v != `["record","lap"]` {
		t.Fatalf("fallback ListValue = %#v", v)
	}
	if v, _ := fallback.ListValue(nil); v != `[]` {
		t.Fatalf("fallback ListValue(nil) = %#v", v)
	}
}

func TestDialect_DDL(t *testing.T) {
	t.Parallel()

	d := testDialect(ProfileFallback)
	sql, err := d.CreateTableSQL(ddl.TableDef{FQN: "t", Columns: []ddl.ColumnDef{{Name: "id", Kind: ddl.KindUUID}}})
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	if sql != "CREATE TABLE \"t\" (\n  \"id\" UUID NOT NULL\n)" {
		t.Fatalf("CreateTableSQL = %q", sql)
	}
	if got := d.DropTableSQL("t"); got != `DROP TABLE "t"` {
		t.Fatalf("DropTableSQL = %q", got)
	}
	if got := d.SelectWhere("fitfiles", "content_hash"); got != `SELECT 1 FROM "fitfiles" WHERE "content_hash" = $1` {
		t.Fatalf("SelectWhere = %q", got)
	}
	if ProfileNative.String() != "native" || ProfileFallback.String() != "fallback" {
		t.Fatalf("Profile.String")
	}
}
