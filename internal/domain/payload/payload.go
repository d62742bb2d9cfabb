// Package payload wraps JSON captured from the data source. The source owns the
// schema, so every accessor reports whether the field was present instead of
// assuming it.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ErrEmpty is returned by Parse for an empty body.
var ErrEmpty = errors.New("empty payload")

// Value is a decoded JSON value. The zero Value is absent.
type Value struct {
	v       any
	present bool
}

// Parse decodes a JSON document. Numbers keep their textual form until read.
func Parse(b []byte) (Value, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Value{}, ErrEmpty
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, fmt.Errorf("decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("decode payload: trailing data")
	}
	return Value{v: v, present: true}, nil
}

// Exists reports whether the value was present (a JSON null counts as absent).
func (p Value) Exists() bool { return p.present && p.v != nil }

// Raw returns the decoded value for pass-through storage.
func (p Value) Raw() any {
	if !p.Exists() {
		return nil
	}
	return p.v
}

// Get walks object keys. Any missing step yields an absent Value.
func (p Value) Get(path ...string) Value {
	cur := p
	for _, key := range path {
		m, ok := cur.v.(map[string]any)
		if !ok {
			return Value{}
		}
		next, ok := m[key]
		if !ok {
			return Value{}
		}
		cur = Value{v: next, present: true}
	}
	return cur
}

// Index returns element i of an array.
func (p Value) Index(i int) Value {
	arr, ok := p.v.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return Value{}
	}
	return Value{v: arr[i], present: true}
}

// Array returns the elements of an array, or nil.
func (p Value) Array() []Value {
	arr, ok := p.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(arr))
	for i, e := range arr {
		out[i] = Value{v: e, present: true}
	}
	return out
}

// Len is the length of an array or object, 0 otherwise.
func (p Value) Len() int {
	switch t := p.v.(type) {
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	}
	return 0
}

// Str returns a JSON string.
func (p Value) Str() (string, bool) {
	s, ok := p.v.(string)
	return s, ok
}

// Float returns a JSON number as float64.
func (p Value) Float() (float64, bool) {
	switch n := p.v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}

// Int returns a JSON number as int64. Fractional numbers are rejected.
func (p Value) Int() (int64, bool) {
	switch n := p.v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// Bool returns a JSON boolean.
func (p Value) Bool() (bool, bool) {
	b, ok := p.v.(bool)
	return b, ok
}

// StringOr returns the string or def when absent.
func (p Value) StringOr(def string) string {
	if s, ok := p.Str(); ok && s != "" {
		return s
	}
	return def
}

// Nullable accessors return nil when the field is absent or of another type,
// which maps directly onto SQL NULL.

// IntPtr returns a pointer to the int value or nil.
func (p Value) IntPtr() *int64 {
	if i, ok := p.Int(); ok {
		return &i
	}
	return nil
}

// FloatPtr returns a pointer to the float value or nil.
func (p Value) FloatPtr() *float64 {
	if f, ok := p.Float(); ok {
		return &f
	}
	return nil
}

// StringPtr returns a pointer to the string value or nil.
func (p Value) StringPtr() *string {
	if s, ok := p.Str(); ok {
		return &s
	}
	return nil
}

// MarshalJSON re-encodes the value; absent values encode as null.
func (p Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Raw())
}

// Number returns an int64 for integral numbers, a float64 otherwise, and nil
// when absent. It suits columns whose numeric type the source does not pin down.
func (p Value) Number() any {
	if i, ok := p.Int(); ok {
		return i
	}
	if f, ok := p.Float(); ok {
		return f
	}
	return nil
}
