// Package optional tracks whether a JSON field was present in a request body.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a decoded field. Set is true whenever the key appeared in the
// payload, including an explicit null (Null is then true).
type Value[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a set, non-null value.
func Of[T any](v T) Value[T] {
	return Value[T]{Set: true, Value: v}
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Null = true
		var zero T
		v.Value = zero
		return nil
	}
	v.Null = false
	return json.Unmarshal(data, &v.Value)
}

// Ptr returns the value, or nil when absent or null.
func (v Value[T]) Ptr() *T {
	if !v.Set || v.Null {
		return nil
	}
	out := v.Value
	return &out
}
