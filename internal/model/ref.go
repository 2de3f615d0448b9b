package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Identifiable is implemented by records that can be referenced by ID.
type Identifiable interface {
	RefID() string
}

// Ref is a relationship to another record. The backend sometimes returns
// the bare identifier and sometimes the populated record; a Ref holds
// exactly one of the two.
type Ref[T Identifiable] struct {
	id     string
	inline *T
}

// RefTo returns a Ref holding only an identifier.
func RefTo[T Identifiable](id string) Ref[T] {
	return Ref[T]{id: id}
}

// InlineRef returns a Ref holding a populated record.
func InlineRef[T Identifiable](v T) Ref[T] {
	return Ref[T]{inline: &v}
}

// ID returns the referenced record's identifier in both forms.
func (r Ref[T]) ID() string {
	if r.inline != nil {
		return (*r.inline).RefID()
	}
	return r.id
}

// IsZero reports whether the Ref points nowhere.
func (r Ref[T]) IsZero() bool {
	return r.inline == nil && r.id == ""
}

// Inlined returns the populated record when the backend sent one.
func (r Ref[T]) Inlined() (T, bool) {
	if r.inline == nil {
		var zero T
		return zero, false
	}
	return *r.inline, true
}

// Resolve returns the referenced record, using lookup when only the
// identifier is known.
func (r Ref[T]) Resolve(lookup func(id string) (T, bool)) (T, bool) {
	if v, ok := r.Inlined(); ok {
		return v, true
	}
	if r.id == "" || lookup == nil {
		var zero T
		return zero, false
	}
	return lookup(r.id)
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.inline != nil {
		return json.Marshal(*r.inline)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*r = Ref[T]{}
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = RefTo[T](id)
	case data[0] == '{':
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*r = InlineRef(v)
	default:
		return fmt.Errorf("reference must be an id string or an object, got %s", data)
	}
	return nil
}
