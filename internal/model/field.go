package model

import (
	"bytes"
	"encoding/json"
)

// fieldState enumerates the three states an evaluable clinical field can be in.
type fieldState uint8

const (
	fieldUnknown fieldState = iota
	fieldKnown
	fieldNotApplicable
)

// Field is a three-valued container for an evaluable clinical field: a known
// value, unknown (not reported), or not applicable. Unknown is the zero value,
// so absent JSON keys decode as unknown rather than as a negative finding.
// Unknown must never be treated as "constraint satisfied" downstream.
type Field[T any] struct {
	state fieldState
	value T
}

// Known wraps a reported value.
func Known[T any](v T) Field[T] {
	return Field[T]{state: fieldKnown, value: v}
}

// Unknown returns a field whose value was not reported.
func Unknown[T any]() Field[T] {
	return Field[T]{state: fieldUnknown}
}

// NotApplicable returns a field that does not apply to this subject.
func NotApplicable[T any]() Field[T] {
	return Field[T]{state: fieldNotApplicable}
}

// Get returns the value and whether it is known.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == fieldKnown
}

// MustValue returns the value regardless of state; callers must check
// IsKnown first. Exists for terse access in templating code.
func (f Field[T]) MustValue() T {
	return f.value
}

func (f Field[T]) IsKnown() bool         { return f.state == fieldKnown }
func (f Field[T]) IsUnknown() bool       { return f.state == fieldUnknown }
func (f Field[T]) IsNotApplicable() bool { return f.state == fieldNotApplicable }

var jsonNull = []byte("null")

// MarshalJSON encodes a known value as itself and both unknown and
// not-applicable as null. The distinction between the two non-known states is
// an evaluation-time concern and is not carried on the wire.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldKnown {
		return jsonNull, nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON decodes null as unknown and anything else as a known value.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*f = Unknown[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Known(v)
	return nil
}
