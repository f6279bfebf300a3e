// Package metatree holds the ordered, JSON-like tree used to display raw tag metadata.
//
// Values in a tree are one of: nil, string, bool, int, int64, float64, []byte, Object, Array.
// Object keeps its fields in insertion order and marshals to JSON in that order.
package metatree

import (
	"bytes"
	"encoding/json"
)

// RedactedPlaceholder replaces binary payloads stored under a "data" key.
const RedactedPlaceholder = "Image binary data hidden for convenience"

// Field is a single key/value pair of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is an ordered set of fields.
type Object []Field

// Array is an ordered list of values.
type Array []any

// Set appends a field, or replaces the value of an existing field in place.
func (o Object) Set(key string, value any) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return o
		}
	}
	return append(o, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, f := range o {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON writes the fields in insertion order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes a nil array as [] rather than null.
func (a Array) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]any(a))
}

// Redact returns a deep copy of v in which every field named "data" holding an
// object payload (Object, Array or []byte) is replaced by RedactedPlaceholder.
// All other structure, including key order, is preserved.
func Redact(v any) any {
	switch t := v.(type) {
	case Object:
		out := make(Object, len(t))
		for i, f := range t {
			if f.Key == "data" && isObjectPayload(f.Value) {
				out[i] = Field{Key: f.Key, Value: RedactedPlaceholder}
				continue
			}
			out[i] = Field{Key: f.Key, Value: Redact(f.Value)}
		}
		return out
	case Array:
		if t == nil {
			return Array(nil)
		}
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = Redact(item)
		}
		return out
	case []byte:
		return bytes.Clone(t)
	default:
		return v
	}
}

func isObjectPayload(v any) bool {
	switch v.(type) {
	case Object, Array, []byte:
		return true
	default:
		return false
	}
}
