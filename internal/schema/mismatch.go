package schema

import (
	"fmt"
	"sort"
)

// Mismatch is a field whose type in one file differs from the canonical type.
// Values are never coerced into another type.
type Mismatch struct {
	MessageType string
	Field       string
	Observed    ColumnType
	Canonical   ColumnType
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s.%s: observed %s, canonical %s", m.MessageType, m.Field, m.Observed, m.Canonical)
}

// Lossy reports whether inserting the observed values into the canonical
// column is expected to fail. Anything goes into Text or Opaque columns.
func (m Mismatch) Lossy() bool {
	return m.Canonical == Numeric || m.Canonical == Timestamp
}

// Mismatches lists, in message-type then field order, the fields of one file
// whose observed type differs from the schema.
func Mismatches(s Schema, file Summarizer) []Mismatch {
	var out []Mismatch
	for name, info := range file.MessageInfos() {
		canonical, ok := s[name]
		if !ok {
			continue
		}
		for field, observed := range info.Columns {
			want, ok := canonical[field]
			if !ok || want == observed {
				continue
			}
			out = append(out, Mismatch{MessageType: name, Field: field, Observed: observed, Canonical: want})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MessageType != out[j].MessageType {
			return out[i].MessageType < out[j].MessageType
		}
		return out[i].Field < out[j].Field
	})
	return out
}
