package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type valueKind int

const (
	valueNone valueKind = iota
	valueText
	valueInt
)

// Value is an answer value. Multiple-choice and free-text answers carry text,
// scale answers carry an integer. The zero Value is empty.
type Value struct {
	kind valueKind
	text string
	num  int
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: valueText, text: s}
}

// Int returns an integer value.
func Int(n int) Value {
	return Value{kind: valueInt, num: n}
}

// IsEmpty reports whether v counts as "no answer": absent, or text that is
// empty once surrounding whitespace is removed.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case valueText:
		return strings.TrimSpace(v.text) == ""
	case valueInt:
		return false
	}
	return true
}

// AsText returns the text payload.
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == valueText
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int, bool) {
	return v.num, v.kind == valueInt
}

// Equal reports whether two values hold the same payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) String() string {
	switch v.kind {
	case valueText:
		return v.text
	case valueInt:
		return strconv.Itoa(v.num)
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueText:
		return json.Marshal(v.text)
	case valueInt:
		return json.Marshal(v.num)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("answer value must be a string or a number: %w", err)
	}
	n, err := parseInt(num)
	if err != nil {
		return err
	}
	*v = Int(n)
	return nil
}

// maxExactFloat is the largest integer a float64 holds exactly.
const maxExactFloat = 1 << 53

// parseInt converts a JSON number to an int. Integral forms such as 7.0 or
// 1e2 are accepted when they are exact; anything else is an error.
func parseInt(num json.Number) (int, error) {
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("answer value %s is out of range", num)
		}
		f, ferr := num.Float64()
		if ferr != nil {
			return 0, fmt.Errorf("answer value %s is not a number", num)
		}
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("answer value %s is not an integer", num)
		}
		if math.Abs(f) > maxExactFloat {
			return 0, fmt.Errorf("answer value %s is out of range", num)
		}
		n = int64(f)
	}
	if int64(int(n)) != n {
		return 0, fmt.Errorf("answer value %s is out of range", num)
	}
	return int(n), nil
}
