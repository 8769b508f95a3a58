package vm

import (
	"strings"
	"testing"
)

func TestValueTruthiness(t *testing.T) {
	tests := []struct {
		value Value
		want  bool
	}{
		{NoneValue, false},
		{BoolValue(false), false},
		{BoolValue(true), true},
		{IntValue(0), true},
		{IntValue(-1), true},
		{FloatValue(0), true},
		{StringValue(""), true},
		{ArrayValue(&Array{}), true},
	}

	for _, tc := range tests {
		if got := tc.value.Truthy(); got != tc.want {
			t.Errorf("Truthy(%s) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestValueEqual(t *testing.T) {
	shared := &Array{Elems: []Value{IntValue(1)}}
	tests := []struct {
		a, b Value
		want bool
	}{
		{IntValue(3), IntValue(3), true},
		{IntValue(3), IntValue(4), false},
		{IntValue(3), FloatValue(3), true},
		{FloatValue(2.5), FloatValue(2.5), true},
		{NoneValue, NoneValue, true},
		{BoolValue(true), BoolValue(true), true},
		{BoolValue(true), BoolValue(false), false},
		{StringValue("a"), StringValue("a"), true},
		{StringValue("a"), StringValue("b"), false},

		// Kind mismatches are false, never an error.
		{IntValue(1), StringValue("1"), false},
		{IntValue(0), NoneValue, false},
		{IntValue(1), BoolValue(true), false},
		{StringValue("true"), BoolValue(true), false},

		// Arrays compare by identity, not by contents.
		{ArrayValue(shared), ArrayValue(shared), true},
		{ArrayValue(&Array{Elems: []Value{IntValue(1)}}), ArrayValue(&Array{Elems: []Value{IntValue(1)}}), false},
	}

	for _, tc := range tests {
		if got := tc.a.Equal(tc.b); got != tc.want {
			t.Errorf("Equal(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		if got := tc.b.Equal(tc.a); got != tc.want {
			t.Errorf("Equal(%s, %s) = %v, want %v (symmetry)", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{NoneValue, "none"},
		{IntValue(42), "42"},
		{IntValue(-4), "-4"},
		{FloatValue(2.5), "2.5"},
		{FloatValue(4), "4"},
		{FloatValue(-0.5), "-0.5"},
		{BoolValue(true), "true"},
		{BoolValue(false), "false"},
		{StringValue("hi"), "hi"},
		{StringValue(""), ""},
		{ArrayValue(&Array{}), "[]"},
		{ArrayValue(&Array{Elems: []Value{IntValue(1), IntValue(2), IntValue(3)}}), "[1, 2, 3]"},
		{ArrayValue(&Array{Elems: []Value{
			IntValue(1),
			ArrayValue(&Array{Elems: []Value{StringValue("x"), NoneValue}}),
		}}), "[1, [x, none]]"},
	}

	for _, tc := range tests {
		if got := tc.value.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

// A self-referencing array must format without recursing forever.
func TestValueStringSelfReference(t *testing.T) {
	arr := &Array{Elems: make([]Value, 1)}
	arr.Elems[0] = ArrayValue(arr)

	got := ArrayValue(arr).String()
	if !strings.Contains(got, "[...]") {
		t.Errorf("String() = %q, want a depth cutoff marker", got)
	}
}

func TestValueNumeric(t *testing.T) {
	if !IntValue(1).IsNumber() || !FloatValue(1).IsNumber() {
		t.Error("int and float must be numbers")
	}
	if StringValue("1").IsNumber() || NoneValue.IsNumber() {
		t.Error("string and none must not be numbers")
	}
	if got := IntValue(3).AsFloat(); got != 3.0 {
		t.Errorf("AsFloat(3) = %v, want 3", got)
	}
	if got := FloatValue(2.5).AsFloat(); got != 2.5 {
		t.Errorf("AsFloat(2.5) = %v, want 2.5", got)
	}
}

func TestValueZeroIsNone(t *testing.T) {
	var v Value
	if v.Kind != KindNone || v.Truthy() {
		t.Errorf("zero Value = %s, want none", v)
	}
	if !v.Equal(NoneValue) {
		t.Error("zero Value does not equal none")
	}
}
