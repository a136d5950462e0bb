package myfly

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Lookup returns the value stored under the first key present in v, falling back
// to a case-insensitive match. v must be a JSON object (map[string]any or Airport);
// anything else yields (nil, false).
//
// An exact key holding null stops the search and reports absence, mirroring how
// the upstream API signals "known field, no value".
func Lookup(v any, keys ...string) (any, bool) {
	m := AsMap(v)
	if m == nil {
		return nil, false
	}

	for _, k := range keys {
		if val, ok := m[k]; ok {
			return val, val != nil
		}
	}

	// Sorted so that colliding spellings ("Size" vs "size") resolve deterministically.
	names := slices.Sorted(maps.Keys(m))
	for _, k := range keys {
		for _, name := range names {
			if strings.EqualFold(name, k) && m[name] != nil {
				return m[name], true
			}
		}
	}

	return nil, false
}

// AsMap returns v as a JSON object, or nil.
func AsMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case Airport:
		return m
	}
	return nil
}

// AsList returns v as a JSON array, or nil.
func AsList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

// Number reports v as a float64 when it is a JSON number. Strings are not coerced.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Float coerces numbers and numeric strings to float64.
func Float(v any) (float64, bool) {
	if f, ok := Number(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}

// Int coerces v to an int, truncating fractions. Anything unparseable is 0.
func Int(v any) int {
	if f, ok := Number(v); ok {
		return int(f)
	}
	if s, ok := v.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err == nil {
			return n
		}
	}
	return 0
}

// Text renders a scalar JSON value as display text. Objects, arrays and null
// render as "".
func Text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := Number(v); ok {
		return FormatNumber(f)
	}
	return ""
}

// FormatNumber prints integral values without a decimal point.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FirstText returns the first value that renders as non-empty text.
func FirstText(values ...any) string {
	for _, v := range values {
		if s := Text(v); s != "" {
			return s
		}
	}
	return ""
}

// Truthy follows JSON "presence" semantics: null, false, 0, "" and empty
// collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if f, ok := Number(v); ok {
		return f != 0
	}
	return true
}

// FirstTruthy returns the value under the first key of m whose value is truthy.
func FirstTruthy(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v := m[k]; Truthy(v) {
			return v
		}
	}
	return nil
}
