// Package ident turns FIT message and field names into SQL identifiers.
//
// Identifiers are lowercase ASCII snake case. Names longer than a backend's
// limit are cut and given a short hash suffix so distinct long names stay
// distinct.
package ident

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MessagePrefix prefixes every message table name.
	MessagePrefix = "message_"
	// FieldPrefix is prepended to field names that collide with the columns
	// every message table carries.
	FieldPrefix = "field_"

	// ParentColumn references the registry row a message row belongs to.
	ParentColumn = "fitfile_id"
	// IndexColumn holds the occurrence index within the file.
	IndexColumn = "row_index"
)

var reserved = map[string]bool{ParentColumn: true, IndexColumn: true}

// Normalize converts arbitrary text into a lowercase ASCII identifier:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot/slash to underscore; drop others
//  4. fall back to fallback if empty
func Normalize(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.' || r == '/':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return fallback
	}
	return name
}

// Fit shortens name to at most max bytes. Longer names keep a prefix and end
// in "_" plus 8 hex digits of the xxh3 hash of the full name. max <= 0 means
// no limit.
func Fit(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}
	suffix := fmt.Sprintf("_%08x", uint32(xxh3.HashString(name)))
	keep := max - len(suffix)
	if keep < 1 {
		return suffix[1:]
	}
	return strings.TrimRight(name[:keep], "_") + suffix
}

// Table returns the table name for a message type.
func Table(messageType string, max int) string {
	return Fit(MessagePrefix+Normalize(messageType, "message"), max)
}

// Columns maps field names to column names for one table. Reserved names get
// FieldPrefix; names that normalise to the same identifier are disambiguated
// with a numeric suffix, assigned in the order fields are given.
func Columns(fields []string, max int) map[string]string {
	out := make(map[string]string, len(fields))
	used := make(map[string]bool, len(fields)+len(reserved))
	for r := range reserved {
		used[r] = true
	}
	for _, f := range fields {
		base := Normalize(f, "col")
		if reserved[base] {
			base = FieldPrefix + base
		}
		name := Fit(base, max)
		for n := 2; used[name]; n++ {
			name = Fit(base+"_"+strconv.Itoa(n), max)
		}
		used[name] = true
		out[f] = name
	}
	return out
}
