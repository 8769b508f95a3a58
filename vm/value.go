package vm

import (
	"strconv"
	"strings"
)

// ValueKind discriminates the payload of a Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindArray
)

// String returns the type name used in error messages.
func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return "ValueKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the content of one register. Exactly one payload field is
// meaningful, selected by Kind; the zero Value is none.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Arr   *Array
}

// Array is a mutable sequence. Values hold arrays by pointer, so
// copying a Value between registers aliases the same elements.
type Array struct {
	Elems []Value
}

// NoneValue is the none singleton.
var NoneValue = Value{}

// IntValue wraps an integer.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatValue wraps a float.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// ArrayValue wraps an array.
func ArrayValue(a *Array) Value { return Value{Kind: KindArray, Arr: a} }

// Truthy reports whether the value counts as true in conditions:
// false and none are falsy, everything else is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNone:
		return false
	case KindBool:
		return v.Bool
	default:
		return true
	}
}

// IsNumber reports whether the value is an int or a float.
func (v Value) IsNumber() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// AsFloat returns the numeric value widened to float64.
// Only meaningful when IsNumber reports true.
func (v Value) AsFloat() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

// Equal implements the == operator. Ints and floats compare
// numerically across kinds; any other kind mismatch is false, never an
// error. Arrays compare by identity, matching their reference
// semantics.
func (v Value) Equal(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		if v.Kind == KindInt && o.Kind == KindInt {
			return v.Int == o.Int
		}
		return v.AsFloat() == o.AsFloat()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNone:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindString:
		return v.Str == o.Str
	case KindArray:
		return v.Arr == o.Arr
	default:
		return false
	}
}

// maxFormatDepth bounds recursion when formatting nested arrays, which
// may alias themselves.
const maxFormatDepth = 16

// String renders the value the way print shows it.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb, 0)
	return sb.String()
}

func (v Value) format(sb *strings.Builder, depth int) {
	switch v.Kind {
	case KindNone:
		sb.WriteString("none")
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case KindString:
		sb.WriteString(v.Str)
	case KindArray:
		if depth >= maxFormatDepth {
			sb.WriteString("[...]")
			return
		}
		sb.WriteByte('[')
		for i, el := range v.Arr.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			el.format(sb, depth+1)
		}
		sb.WriteByte(']')
	}
}
