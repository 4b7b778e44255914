package services

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a JSON field that was omitted from one sent as null.
// Present is true whenever the key appeared; Value is nil for an explicit null.
type Optional[T any] struct {
	Present bool
	Value   *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: &v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Present: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
