// Package schema reconciles the column types observed in independently
// decoded files into one canonical schema per message type.
//
// Everything here is pure: no I/O, no database access. The same set of
// observations always yields the same schema, whatever order files were
// decoded in.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ColumnType is the storage class chosen for a column.
type ColumnType uint8

const (
	// Opaque is the catch-all: values are stored in their textual form.
	Opaque ColumnType = iota
	Text
	Timestamp
	Numeric
)

var columnTypeNames = [...]string{
	Opaque:    "opaque",
	Text:      "text",
	Timestamp: "timestamp",
	Numeric:   "numeric",
}

func (t ColumnType) String() string {
	if int(t) < len(columnTypeNames) {
		return columnTypeNames[t]
	}
	return fmt.Sprintf("ColumnType(%d)", uint8(t))
}

// ParseColumnType is the inverse of String. It is case-insensitive.
func ParseColumnType(s string) (ColumnType, error) {
	for i, n := range columnTypeNames {
		if strings.EqualFold(s, n) {
			return ColumnType(i), nil
		}
	}
	return Opaque, fmt.Errorf("schema: unknown column type %q", s)
}

// Classify infers the column type of a projected column from its values.
// nil entries are ignored. A column whose values are all numeric is Numeric,
// all time.Time is Timestamp, all string is Text; anything else (mixed kinds,
// bools, slices, maps, or no values at all) is Opaque.
func Classify(values []any) ColumnType {
	var numeric, stamps, texts, other int
	for _, v := range values {
		switch {
		case v == nil:
			continue
		case IsNumeric(v):
			numeric++
		default:
			switch v.(type) {
			case time.Time:
				stamps++
			case string:
				texts++
			default:
				other++
			}
		}
	}

	switch n := numeric + stamps + texts + other; {
	case n == 0:
		return Opaque
	case numeric == n:
		return Numeric
	case stamps == n:
		return Timestamp
	case texts == n:
		return Text
	default:
		return Opaque
	}
}

// IsNumeric reports whether v is a Go integer or floating point value.
func IsNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// ToFloat converts a numeric value to float64. ok is false for non-numeric v.
func ToFloat(v any) (float64, bool) {
	if !IsNumeric(v) {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	default:
		return rv.Float(), true
	}
}
