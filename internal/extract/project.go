package extract

import (
	"time"

	"github.com/jonasinn/fitextractor/internal/schema"
)

// Table is the tabular projection of one message type: one row per
// occurrence, one column per field name in first-seen order. Missing fields
// are nil.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Column returns the values of column i.
func (t Table) Column(i int) []any {
	out := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// ProjectOption configures ProjectMessages.
type ProjectOption func(*projectConfig)

type projectConfig struct{ raw bool }

// ProjectRaw projects the raw integral value of numeric and date_time fields
// instead of the scaled or converted one. Other fields are unchanged.
func ProjectRaw() ProjectOption {
	return func(c *projectConfig) { c.raw = true }
}

// ProjectMessages builds the table for one message type. Columns without a
// single non-nil value are dropped.
func (e *Extractor) ProjectMessages(messageType string, opts ...ProjectOption) (Table, error) {
	var cfg projectConfig
	for _, o := range opts {
		o(&cfg)
	}

	occs, ok := e.messages[messageType]
	if !e.Processed() || !ok {
		return Table{}, &UnknownMessageTypeError{Source: e.src.Name(), MessageType: messageType}
	}

	index := map[string]int{}
	var columns []string
	for _, occ := range occs {
		for _, f := range occ {
			if _, ok := index[f.Name]; !ok {
				index[f.Name] = len(columns)
				columns = append(columns, f.Name)
			}
		}
	}

	rows := make([][]any, len(occs))
	filled := make([]bool, len(columns))
	for r, occ := range occs {
		row := make([]any, len(columns))
		for _, f := range occ {
			v := f.Value
			if cfg.raw && hasRaw(v) {
				v = f.RawValue
			}
			i := index[f.Name]
			row[i] = v
			if v != nil {
				filled[i] = true
			}
		}
		rows[r] = row
	}

	keep := make([]int, 0, len(columns))
	for i, ok := range filled {
		if ok {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(columns) {
		return Table{Name: messageType, Columns: columns, Rows: rows}, nil
	}

	t := Table{Name: messageType, Columns: make([]string, len(keep)), Rows: make([][]any, len(rows))}
	for j, i := range keep {
		t.Columns[j] = columns[i]
	}
	for r, row := range rows {
		out := make([]any, len(keep))
		for j, i := range keep {
			out[j] = row[i]
		}
		t.Rows[r] = out
	}
	return t, nil
}

func hasRaw(v any) bool {
	if _, ok := v.(time.Time); ok {
		return true
	}
	return schema.IsNumeric(v)
}

// ColumnTypes classifies every column of t.
func (t Table) ColumnTypes() map[string]schema.ColumnType {
	out := make(map[string]schema.ColumnType, len(t.Columns))
	for i, c := range t.Columns {
		out[c] = schema.Classify(t.Column(i))
	}
	return out
}
