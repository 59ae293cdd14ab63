package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Decode parses a single JSON document, keeping numbers as json.Number.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode payload: trailing data after document")
	}
	return v, nil
}

// Get descends through nested objects. A missing key or a non-object along the path yields nil.
func Get(v any, keys ...string) any {
	cur := v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

// Map returns the object at the path, or an empty map.
func Map(v any, keys ...string) map[string]any {
	if m, ok := Get(v, keys...).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Object returns the first object held by v in any container shape, or an empty map.
func Object(v any) map[string]any {
	if items := Of(v).Items; len(items) > 0 {
		return items[0]
	}
	return map[string]any{}
}

// First returns the first value among keys that is neither null nor blank.
func First(m map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

// Text is String(First(m, keys...)).
func Text(m map[string]any, keys ...string) string {
	return String(First(m, keys...))
}

// String renders a JSON value as text. Null is empty, strings are trimmed, and objects and
// lists are serialized as compact JSON.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return JSON(t)
	}
}

// JSON serializes v compactly without HTML escaping. It returns "" if v cannot be encoded.
func JSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Int converts a JSON number or a numeric string to an int. Fractions are truncated.
// Anything else reports false.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatInt(f)
	case float64:
		return floatInt(t)
	case int:
		return t, true
	case int64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func floatInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

// IntPtr is Int returning nil for absent values.
func IntPtr(v any) *int {
	n, ok := Int(v)
	if !ok {
		return nil
	}
	return &n
}
