// Package value defines the values bound to script variables.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which field of a Value is meaningful.
type Kind uint8

const (
	KindNumber Kind = iota
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a number, a boolean or a string. The zero Value is the number 0.
type Value struct {
	kind Kind
	num  float64
	b    bool
	str  string
}

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsIndex returns the value as a non-fractional integer.
func (v Value) AsIndex() (int, bool) {
	if v.kind != KindNumber || v.num != math.Trunc(v.num) || math.IsInf(v.num, 0) {
		return 0, false
	}
	return int(v.num), true
}

// Truthy reports whether the value counts as true in a condition:
// true, any non-zero number, or any non-empty string.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		return v.str != ""
	}
	return v.num != 0 && !math.IsNaN(v.num)
}

// Interface returns the payload as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		return v.str
	}
	return v.num
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.str
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.str == o.str
	}
	return v.num == o.num
}

// Add accumulates o onto v: numbers are summed and strings concatenated.
// A string absorbs a number or boolean by its text form.
func (v Value) Add(o Value) (Value, error) {
	switch {
	case v.kind == KindNumber && o.kind == KindNumber:
		return Number(v.num + o.num), nil
	case v.kind == KindString:
		return String(v.str + o.String()), nil
	}
	return Value{}, fmt.Errorf("cannot add %s to %s", o.kind, v.kind)
}

// FromInterface converts a plain Go value produced by an evaluator.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case nil:
		return Value{}, fmt.Errorf("no value")
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}
