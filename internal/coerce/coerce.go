// Package coerce converts loosely typed payload values the way graph authors expect:
// one numeric type, string conversion for templates, and truthiness for conditions.
package coerce

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// String renders a value for template substitution and substring tests.
// Scalars use their natural text form; nil is "null"; composite values are JSON.
func String(v any) string {
	if v == nil {
		return "null"
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return ""
}

// Number converts a value to float64. Values that cannot be read as a number yield NaN.
// Booleans are 0/1, nil and blank strings are 0.
func Number(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		trimmed := strings.TrimSpace(x)
		if trimmed == "" {
			return 0
		}
		f, err := cast.ToFloat64E(trimmed)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Int64 converts a value to int64, reporting whether the conversion succeeded.
func Int64(v any) (int64, bool) {
	f := Number(v)
	if v == nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// Truthy reports whether a value counts as true.
// false, 0, NaN, "" and nil are falsy; everything else, including empty collections, is truthy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	}
	if isNumeric(v) {
		return Number(v) != 0
	}
	return true
}

// StrictEqual compares without type coercion, except that all numeric widths are one type.
// 10 and 10.0 are equal; 10 and "10" are not.
func StrictEqual(a, b any) bool {
	if isNumeric(a) && isNumeric(b) {
		return Number(a) == Number(b)
	}
	if isNumeric(a) || isNumeric(b) {
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Slice returns v as []any when it is a slice or array.
func Slice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return true
	}
	return false
}
