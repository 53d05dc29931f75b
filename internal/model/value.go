package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a loosely typed JSON document, such as the analysis returned by
// the model. Every accessor tolerates missing or mistyped fields and falls
// back to the caller's default instead of failing.
type Value struct {
	v any
}

// ParseValue decodes JSON into a Value.
func ParseValue(data []byte) (Value, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return Value{v: v}, nil
}

// NewValue wraps an already decoded JSON value.
func NewValue(v any) Value {
	return Value{v: v}
}

// Raw returns the underlying decoded value.
func (v Value) Raw() any {
	return v.v
}

// Exists reports whether the value is present and not JSON null.
func (v Value) Exists() bool {
	return v.v != nil
}

// Get walks nested object keys. Missing keys yield an empty Value.
func (v Value) Get(keys ...string) Value {
	cur := v.v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return Value{}
		}
		cur = m[k]
	}
	return Value{v: cur}
}

// First returns the first of the given keys that is present.
func (v Value) First(keys ...string) Value {
	for _, k := range keys {
		if got := v.Get(k); got.Exists() {
			return got
		}
	}
	return Value{}
}

// Str returns the value as a string, or def when it is missing or empty.
func (v Value) Str(def string) string {
	switch t := v.v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return def
		}
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return def
}

// Num returns the value as a number. Numeric strings such as "85" or "85%" are accepted.
func (v Value) Num(def float64) float64 {
	switch t := v.v.(type) {
	case float64:
		return t
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the value as an integer, truncating fractions.
func (v Value) Int(def int) int {
	return int(v.Num(float64(def)))
}

// List returns the elements of a JSON array, or nil.
func (v Value) List() []Value {
	arr, ok := v.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(arr))
	for i, e := range arr {
		out[i] = Value{v: e}
	}
	return out
}

// Len returns the array length. A bare number is treated as a count,
// which is how some responses report error categories.
func (v Value) Len() int {
	switch t := v.v.(type) {
	case []any:
		return len(t)
	case float64:
		return int(t)
	}
	return 0
}

// Strings returns the array elements rendered as strings, skipping empty ones.
func (v Value) Strings() []string {
	var out []string
	for _, e := range v.List() {
		if s := e.Str(""); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Ints returns the numeric array elements. Strings such as "Q3" or "3" are
// accepted; elements without a number are skipped.
func (v Value) Ints() []int {
	var out []int
	for _, e := range v.List() {
		if s, ok := e.v.(string); ok {
			s = strings.TrimLeft(strings.TrimSpace(s), "Qq. ")
			if n, err := strconv.Atoi(s); err == nil {
				out = append(out, n)
			}
			continue
		}
		if n, ok := e.v.(float64); ok {
			out = append(out, int(n))
		}
	}
	return out
}

// Join renders array elements separated by sep. A scalar renders as itself.
func (v Value) Join(sep string) string {
	if _, ok := v.v.([]any); ok {
		return strings.Join(v.Strings(), sep)
	}
	return v.Str("")
}

// JSON renders the value back to JSON. Indented output is used for prompts.
func (v Value) JSON(indent bool) string {
	var (
		b   []byte
		err error
	)
	if indent {
		b, err = json.MarshalIndent(v.v, "", "  ")
	} else {
		b, err = json.Marshal(v.v)
	}
	if err != nil {
		return "null"
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &v.v)
}
