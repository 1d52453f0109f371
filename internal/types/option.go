// internal/types/option.go
package types

import (
	"bytes"
	"encoding/json"
)

// Option is a per-field partial update: either keep the current value or set a new one.
// The zero value keeps.
type Option[T any] struct {
	value T
	set   bool
}

// Set returns an Option that replaces the field with v.
func Set[T any](v T) Option[T] {
	return Option[T]{value: v, set: true}
}

// Keep returns an Option that leaves the field unchanged.
func Keep[T any]() Option[T] {
	return Option[T]{}
}

// IsSet reports whether the option carries a value.
func (o Option[T]) IsSet() bool {
	return o.set
}

// Get returns the carried value and whether it was set.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.set
}

// ApplyTo overwrites *dst when the option is set.
func (o Option[T]) ApplyTo(dst *T) {
	if o.set {
		*dst = o.value
	}
}

func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON treats an explicit null the same as an absent field.
func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Option[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Set(v)
	return nil
}
