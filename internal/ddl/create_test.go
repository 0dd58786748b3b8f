package ddl

import (
	"strconv"
	"strings"
	"testing"
)

func dq(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

func testMapType(k Kind) string {
	switch k {
	case KindUUID:
		return "UUID"
	case KindDouble:
		return "DOUBLE PRECISION"
	case KindText:
		return "TEXT"
	}
	return ""
}

// TestBuildCreateTableSQL verifies the rendered statements and the errors for
// invalid definitions.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	quoted := Renderer{Quote: dq, MapType: testMapType}

	tests := []struct {
		name        string
		def         TableDef
		r           Renderer
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{FQN: "", Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "public.t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "", SQLType: "INT"}}},
			errContains: "column with empty name",
		},
		{
			name:        "unmapped kind returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "x", Kind: KindBytes}}},
			r:           quoted,
			errContains: "missing SQLType",
		},
		{
			name:    "single nullable column without quoting",
			def:     TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id", SQLType: "INT", Nullable: true}}},
			wantSQL: "CREATE TABLE t (\n  id INT\n)",
		},
		{
			name: "column with default expression",
			def: TableDef{FQN: "t", Columns: []ColumnDef{
				{Name: "created_at", SQLType: "TIMESTAMP", Default: "  CURRENT_TIMESTAMP "},
			}},
			wantSQL: "CREATE TABLE t (\n  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP\n)",
		},
		{
			name: "kinds are mapped and names quoted",
			def: TableDef{FQN: "public.fitfiles", Columns: []ColumnDef{
				{Name: "id", Kind: KindUUID, PrimaryKey: true},
				{Name: "speed", Kind: KindDouble, Nullable: true},
				{Name: "note", Kind: KindText, SQLType: "VARCHAR(10)", Nullable: true},
			}},
			r:       quoted,
			wantSQL: "CREATE TABLE \"public\".\"fitfiles\" (\n  \"id\" UUID NOT NULL,\n  \"speed\" DOUBLE PRECISION,\n  \"note\" VARCHAR(10),\n  PRIMARY KEY (\"id\")\n)",
		},
		{
			name: "foreign key with on delete",
			def: TableDef{
				FQN: "message_record",
				Columns: []ColumnDef{
					{Name: "fitfile_id", Kind: KindUUID},
					{Name: "row_index", SQLType: "BIGINT"},
				},
				ForeignKeys: []ForeignKey{{
					Columns: []string{"fitfile_id"}, RefTable: "fitfiles", RefColumns: []string{"id"}, OnDelete: "CASCADE",
				}},
			},
			r:       quoted,
			wantSQL: "CREATE TABLE \"message_record\" (\n  \"fitfile_id\" UUID NOT NULL,\n  \"row_index\" BIGINT NOT NULL,\n  FOREIGN KEY (\"fitfile_id\") REFERENCES \"fitfiles\" (\"id\") ON DELETE CASCADE\n)",
		},
		{
			name: "malformed foreign key",
			def: TableDef{
				FQN:         "t",
				Columns:     []ColumnDef{{Name: "a", SQLType: "INT"}},
				ForeignKeys: []ForeignKey{{Columns: []string{"a"}, RefTable: "p"}},
			},
			errContains: "malformed foreign key",
		},
		{
			name: "whitespace around names and types is trimmed",
			def: TableDef{FQN: "  my_schema.my_table  ", Columns: []ColumnDef{
				{Name: "  col1  ", SQLType: "  INT  ", Nullable: true},
			}},
			wantSQL: "CREATE TABLE my_schema.my_table (\n  col1 INT\n)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotSQL, err := BuildCreateTableSQL(tt.def, tt.r)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("BuildCreateTableSQL() error = %v, want substring %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", gotSQL, tt.wantSQL)
			}
		})
	}
}

func TestBuildDropTableSQL(t *testing.T) {
	t.Parallel()
	if got := BuildDropTableSQL("s.t", Renderer{Quote: dq}); got != `DROP TABLE "s"."t"` {
		t.Fatalf("BuildDropTableSQL = %q", got)
	}
}

func TestTableDefAccessors(t *testing.T) {
	t.Parallel()

	def := TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a", Kind: KindText}, {Name: "b", Kind: KindDouble}}}
	if got := strings.Join(def.ColumnNames(), ","); got != "a,b" {
		t.Fatalf("ColumnNames = %q", got)
	}
	if c, ok := def.Column("b"); !ok || c.Kind != KindDouble {
		t.Fatalf("Column(b) = %+v, %v", c, ok)
	}
	if _, ok := def.Column("z"); ok {
		t.Fatalf("Column(z) found")
	}
}

var benchmarkSink string

// BenchmarkBuildCreateTableSQL_LargeSchema simulates a wide record table.
func BenchmarkBuildCreateTableSQL_LargeSchema(b *testing.B) {
	cols := make([]ColumnDef, 0, 64)
	for i := 0; i < 64; i++ {
		cols = append(cols, ColumnDef{Name: "col_" + strconv.Itoa(i), Kind: KindDouble, Nullable: true})
	}
	def := TableDef{FQN: "message_record", Columns: cols}
	r := Renderer{Quote: dq, MapType: testMapType}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := BuildCreateTableSQL(def, r)
		if err != nil {
			b.Fatalf("BuildCreateTableSQL() error = %v", err)
		}
		benchmarkSink = sql
	}
}
