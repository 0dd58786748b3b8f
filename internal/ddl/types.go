package ddl

// Kind is a logical column kind. Backends map kinds to concrete SQL types.
type Kind string

const (
	KindUUID      Kind = "uuid"      // generated row identifier
	KindName      Kind = "name"      // short label, e.g. a filename
	KindHash      Kind = "md5"       // 32 hex digits
	KindTextList  Kind = "text_list" // list of strings
	KindBytes     Kind = "bytes"
	KindBigint    Kind = "bigint"
	KindDouble    Kind = "double"
	KindTimestamp Kind = "timestamp"
	KindText      Kind = "text"
	KindOpaque    Kind = "opaque" // textual rendering of anything else
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Kind: logical kind, mapped to a SQL type by the renderer
//   - SQLType: explicit SQL type; overrides Kind when set
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	Kind       Kind
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// ForeignKey references columns of another table.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	// OnDelete is emitted verbatim after ON DELETE when set (e.g. CASCADE).
	OnDelete string
}

// TableDef holds the table name (FQN), an ordered list of columns and any
// foreign keys. The FQN may be dotted ("schema.table"); renderers quote each
// part separately.
type TableDef struct {
	FQN         string
	Columns     []ColumnDef
	ForeignKeys []ForeignKey
}

// Column returns the column called name.
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
