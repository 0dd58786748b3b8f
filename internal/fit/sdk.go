package fit

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/muktihari/fit/cmd/fitprint/printer"
	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/proto"
)

// SDKDecoder decodes real FIT streams with github.com/muktihari/fit. Chained
// FIT files (several sequences in one stream) produce one header and one CRC
// frame per sequence.
//
// The SDK does not surface definition messages through Decode, so no
// FrameDefinition frames are emitted.
type SDKDecoder struct{}

var _ Decoder = SDKDecoder{}

func (SDKDecoder) Decode(ctx context.Context, r io.Reader, fn func(Frame) error) error {
	dec := decoder.New(r)

	sequences := 0
	for dec.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := dec.Decode()
		if err != nil {
			return fmt.Errorf("fit: decode sequence %d: %w", sequences+1, err)
		}
		sequences++

		h := f.FileHeader
		if err := fn(Frame{Kind: FrameHeader, Header: &Header{
			Size:            uint8(h.Size),
			ProtocolVersion: uint8(h.ProtocolVersion),
			ProfileVersion:  uint16(h.ProfileVersion),
			DataSize:        uint32(h.DataSize),
			DataType:        fmt.Sprintf("%s", h.DataType),
			CRC:             uint16(h.CRC),
		}}); err != nil {
			return err
		}

		for i := range f.Messages {
			if err := fn(dataFrame(f.Messages[i])); err != nil {
				return err
			}
		}

		if err := fn(Frame{Kind: FrameCRC, CRC: &CRC{Value: uint16(f.CRC)}}); err != nil {
			return err
		}
	}

	if sequences == 0 {
		return ErrNoData
	}
	return nil
}

func dataFrame(m proto.Message) Frame {
	fields := make([]Field, 0, len(m.Fields))
	for _, pf := range m.Fields {
		if pf.FieldBase == nil {
			continue
		}
		name := pf.Name
		if name == "" || name == "unknown" {
			name = "unknown_" + strconv.Itoa(int(pf.Num))
		}
		value, raw := decodeValue(pf)
		fields = append(fields, Field{
			Name:     name,
			Value:    value,
			RawValue: raw,
			Units:    pf.Units,
		})
	}
	return Frame{
		Kind:   FrameData,
		Name:   messageName(m.Num.String(), uint16(m.Num)),
		Fields: fields,
	}
}

// messageName maps the SDK's message name onto the snake_case names used for
// tables. Messages the profile does not know come back as e.g.
// "MesgNumInvalid(233)" and are renamed to "unknown_233".
func messageName(s string, num uint16) string {
	if s == "" || strings.ContainsAny(s, "()") {
		return "unknown_" + strconv.Itoa(int(num))
	}
	return snake(s)
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.ReplaceAll(b.String(), "__", "_")
}

func isDateTime(pf proto.Field) bool {
	switch pf.Type.String() {
	case "date_time", "local_date_time", "DateTime", "LocalDateTime":
		return true
	}
	return false
}

// decodeValue applies FIT scale/offset and date_time conversion to a field's
// raw value. Invalid sentinels decode to nil. Unscaled fields of a named
// profile type (manufacturer, sport, file type) decode to the value's profile
// name when it has one.
func decodeValue(pf proto.Field) (any, int64) {
	v := pf.Value.Any()
	if invalid(v) {
		return nil, 0
	}

	scale := pf.Scale
	if scale == 0 {
		scale = 1
	}
	scaled := scale != 1 || pf.Offset != 0

	if raw, ok := integral(v); ok {
		if isDateTime(pf) {
			if t, ok := ToTime(uint32(raw)); ok {
				return t, raw
			}
		}
		if scaled {
			return float64(raw)/scale - pf.Offset, raw
		}
		if name, ok := enumName(pf); ok {
			return name, raw
		}
		return raw, raw
	}

	switch x := v.(type) {
	case float32:
		if scaled {
			return float64(x)/scale - pf.Offset, 0
		}
		return float64(x), 0
	case float64:
		if scaled {
			return x/scale - pf.Offset, 0
		}
		return x, 0
	case string, bool:
		return x, 0
	}
	return v, 0
}

// enumName looks the field's value up in its profile type. Base types and
// values without a name report false.
func enumName(pf proto.Field) (string, bool) {
	name := printer.TypedefString(pf.Type, pf.Value)
	if name == "" || strings.ContainsRune(name, '(') {
		return "", false
	}
	// Types without a lookup table fall back to the base type's invalid value.
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		return "", false
	}
	return name, true
}

func integral(v any) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case uint8:
		return int64(x), true
	case int16:
		return int64(x), true
	case uint16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		return int64(x), true
	}
	return 0, false
}

// invalid reports whether v is the FIT invalid sentinel of its base type.
// Zero-invalid base types (uint8z etc.) are indistinguishable from uint8 at
// this level and are kept.
func invalid(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case int8:
		return x == math.MaxInt8
	case uint8:
		return x == math.MaxUint8
	case int16:
		return x == math.MaxInt16
	case uint16:
		return x == math.MaxUint16
	case int32:
		return x == math.MaxInt32
	case uint32:
		return x == math.MaxUint32
	case int64:
		return x == math.MaxInt64
	case uint64:
		return x == math.MaxUint64
	case float32:
		return math.Float32bits(x) == math.MaxUint32
	case float64:
		return math.Float64bits(x) == math.MaxUint64
	case string:
		return x == ""
	}
	return false
}
