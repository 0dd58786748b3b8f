package ingest

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/jonasinn/fitextractor/internal/schema"
)

// convert renders v in the representation of a column of type t. nil stays
// nil. Numeric and Timestamp columns only accept their own kind of value;
// Text and Opaque columns accept anything in textual form.
func convert(v any, t schema.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case schema.Numeric:
		if f, ok := schema.ToFloat(v); ok {
			return f, nil
		}
	case schema.Timestamp:
		if ts, ok := v.(time.Time); ok {
			return ts.UTC(), nil
		}
	default:
		s, err := render(v)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %T into %s", ErrIncompatibleValue, v, t)
}

// render returns the textual form of a decoded value. Slices become JSON
// arrays.
func render(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	}
	if schema.IsNumeric(v) {
		return fmt.Sprint(v), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		// []uint8 would otherwise be base64 encoded.
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		b, err := json.Marshal(elems)
		if err != nil {
			return "", fmt.Errorf("ingest: render %T: %w", v, err)
		}
		return string(b), nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("ingest: render %T: %w", v, err)
	}
	return string(b), nil
}
