package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindNumber
	kindText
)

// Value is an optional field value: null, a whole number or a piece of text.
// The zero Value is null.
type Value struct {
	kind valueKind
	num  int64
	text string
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Number wraps a whole number.
func Number(n int64) Value { return Value{kind: kindNumber, num: n} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: kindText, text: s} }

// IsNull reports whether v carries no value.
func (v Value) IsNull() bool { return v.kind == kindNull }

// Int returns the numeric value and whether v is a number.
func (v Value) Int() (int64, bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

// Str returns the text value and whether v is text.
func (v Value) Str() (string, bool) {
	if v.kind != kindText {
		return "", false
	}
	return v.text, true
}

// String renders the value for logs and summaries.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatInt(v.num, 10)
	case kindText:
		return v.text
	default:
		return "null"
	}
}

// MarshalJSON encodes null, a JSON number or a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, whole numbers and strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Null()
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("value %s is not null, a whole number or a string", data)
	}
	*v = Number(n)
	return nil
}

// Fields maps schema field names to their values.
type Fields map[string]Value

// Int returns the numeric value of name, if present.
func (f Fields) Int(name string) (int64, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	return v.Int()
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
