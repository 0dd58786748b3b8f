// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// The package does not know any dialect. A Renderer supplies identifier
// quoting and the mapping from logical kinds to SQL types; backend packages
// (internal/storage/<backend>/ddl) provide their own Renderer.
package ddl

import (
	"fmt"
	"strings"
)

// Renderer carries the dialect specifics BuildCreateTableSQL needs.
type Renderer struct {
	// Quote quotes one identifier part. Nil emits names as-is.
	Quote func(string) string
	// MapType maps a logical kind to a SQL type. Required for columns that
	// have no explicit SQLType.
	MapType func(Kind) string
}

func (r Renderer) quote(s string) string {
	if r.Quote == nil {
		return s
	}
	return r.Quote(s)
}

// QuoteFQN quotes each dotted part of fqn.
func (r Renderer) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = r.quote(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

func (r Renderer) quoteList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = r.quote(n)
	}
	return strings.Join(out, ", ")
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty.
//
//   - Each column must have a non-empty Name and either a SQLType or a Kind
//     the renderer maps.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (...) clause, followed by one FOREIGN KEY clause per
//     t.ForeignKeys entry.
func BuildCreateTableSQL(t TableDef, r Renderer) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" && c.Kind != "" && r.MapType != nil {
			typ = r.MapType(c.Kind)
		}
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(r.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, name)
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", r.quoteList(pks)))
	}

	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) || fk.RefTable == "" {
			return "", fmt.Errorf("ddl: malformed foreign key on table %s", fqn)
		}
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			r.quoteList(fk.Columns), r.QuoteFQN(fk.RefTable), r.quoteList(fk.RefColumns))
		if fk.OnDelete != "" {
			clause += " ON DELETE " + fk.OnDelete
		}
		cols = append(cols, clause)
	}

	stmt := fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)",
		r.QuoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	)
	return stmt, nil
}

// BuildDropTableSQL renders DROP TABLE for fqn.
func BuildDropTableSQL(fqn string, r Renderer) string {
	return "DROP TABLE " + r.QuoteFQN(fqn)
}
