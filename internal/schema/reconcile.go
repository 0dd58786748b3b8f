package schema

import "sort"

// MessageInfo describes one message type as observed in one file.
type MessageInfo struct {
	Name    string
	Rows    int
	Columns map[string]ColumnType
}

// Summarizer exposes the per-message column types of one decoded file.
type Summarizer interface {
	MessageInfos() map[string]MessageInfo
}

// TypeSet is the set of column types observed for one field across files.
type TypeSet map[ColumnType]struct{}

// NewTypeSet returns a set holding ts.
func NewTypeSet(ts ...ColumnType) TypeSet {
	s := make(TypeSet, len(ts))
	for _, t := range ts {
		s.Add(t)
	}
	return s
}

func (s TypeSet) Add(t ColumnType) { s[t] = struct{}{} }

func (s TypeSet) Has(t ColumnType) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members from highest to lowest priority.
func (s TypeSet) Sorted() []ColumnType {
	out := make([]ColumnType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// resolveOrder is the strict priority used by ResolveType. Opaque is not
// listed; it is what is left when nothing else matches.
var resolveOrder = []ColumnType{Numeric, Timestamp, Text}

// ResolveType picks the canonical type for a field from the set of types it
// was observed with. Priority is Numeric > Timestamp > Text, with Opaque as
// the fallback, including for an empty set.
func ResolveType(s TypeSet) ColumnType {
	for _, t := range resolveOrder {
		if s.Has(t) {
			return t
		}
	}
	return Opaque
}

// UnionMessageTypes returns the sorted union of message types across files.
func UnionMessageTypes(summaries ...Summarizer) []string {
	seen := map[string]struct{}{}
	for _, s := range summaries {
		for name := range s.MessageInfos() {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CollectFieldTypes gathers, per message type and field, every column type any
// file observed.
func CollectFieldTypes(summaries ...Summarizer) map[string]map[string]TypeSet {
	out := map[string]map[string]TypeSet{}
	for _, s := range summaries {
		for name, info := range s.MessageInfos() {
			fields := out[name]
			if fields == nil {
				fields = map[string]TypeSet{}
				out[name] = fields
			}
			for field, t := range info.Columns {
				set := fields[field]
				if set == nil {
					set = TypeSet{}
					fields[field] = set
				}
				set.Add(t)
			}
		}
	}
	return out
}

// Schema maps message type to field to canonical column type. It is built
// once per run and treated as immutable afterwards.
type Schema map[string]map[string]ColumnType

// BuildSchema reconciles the summaries of every successfully decoded file.
// A message type seen only with zero projected columns still gets an entry so
// that its table is created.
func BuildSchema(summaries ...Summarizer) Schema {
	out := Schema{}
	for name, fields := range CollectFieldTypes(summaries...) {
		cols := make(map[string]ColumnType, len(fields))
		for field, set := range fields {
			cols[field] = ResolveType(set)
		}
		out[name] = cols
	}
	for _, name := range UnionMessageTypes(summaries...) {
		if _, ok := out[name]; !ok {
			out[name] = map[string]ColumnType{}
		}
	}
	return out
}

// MessageTypes returns the message types in sorted order.
func (s Schema) MessageTypes() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Fields returns the fields of a message type in sorted order.
func (s Schema) Fields(messageType string) []string {
	cols := s[messageType]
	out := make([]string, 0, len(cols))
	for f := range cols {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Has reports whether messageType is part of the schema.
func (s Schema) Has(messageType string) bool {
	_, ok := s[messageType]
	return ok
}
