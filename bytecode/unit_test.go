package bytecode

import (
	"strings"
	"testing"
)

func TestAddConstantDedup(t *testing.T) {
	u := NewUnit()

	a := u.AddConstant(IntConstant(42))
	b := u.AddConstant(IntConstant(42))
	if a != b {
		t.Errorf("duplicate int constant got indices %d and %d", a, b)
	}

	// Same numeric payload under a different kind is a distinct entry.
	c := u.AddConstant(FloatConstant(42))
	if c == a {
		t.Error("float 42 shares an index with int 42")
	}
	d := u.AddConstant(StringConstant("42"))
	if d == a || d == c {
		t.Error("string \"42\" shares an index with a numeric 42")
	}

	if got := u.ConstantCount(); got != 3 {
		t.Errorf("ConstantCount() = %d, want 3", got)
	}
	if got := u.GetConstant(a); got != IntConstant(42) {
		t.Errorf("GetConstant(%d) = %v, want int 42", a, got)
	}
}

func TestAddConstantAfterFreezePanics(t *testing.T) {
	u := NewUnit()
	u.AddConstant(IntConstant(1))
	u.Freeze()
	if !u.Frozen() {
		t.Fatal("Frozen() = false after Freeze")
	}

	defer func() {
		if recover() == nil {
			t.Error("AddConstant on a frozen pool did not panic")
		}
	}()
	u.AddConstant(IntConstant(2))
}

func TestConstantString(t *testing.T) {
	tests := []struct {
		c    Constant
		want string
	}{
		{NoneConstant(), "none"},
		{IntConstant(-7), "-7"},
		{FloatConstant(2.5), "2.5"},
		{FloatConstant(4), "4"},
		{StringConstant("hi\n"), `"hi\n"`},
		{BoolConstant(true), "true"},
	}

	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Constant.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEmitReturnsIndices(t *testing.T) {
	u := NewUnit()
	if got := u.CurrentOffset(); got != 0 {
		t.Fatalf("CurrentOffset() on empty unit = %d", got)
	}

	i0 := u.Emit(OpLoadConst, 0, 0, 0)
	i1 := u.Emit(OpPrint, 0, 0, 0)
	if i0 != 0 || i1 != 1 {
		t.Errorf("Emit returned %d, %d, want 0, 1", i0, i1)
	}
	if got := u.CurrentOffset(); got != 2 {
		t.Errorf("CurrentOffset() = %d, want 2", got)
	}
}

func TestEmitJumpAndPatch(t *testing.T) {
	u := NewUnit()
	c := u.AddConstant(BoolConstant(true))
	u.Emit(OpLoadConst, 0, int32(c), 0) // 0
	at := u.EmitJump(OpJumpIfFalse, 0)  // 1
	u.Emit(OpPrint, 0, 0, 0)            // 2
	u.PatchJump(at)                     // lands on 3
	u.Emit(OpReturn, 0, 0, 0)           // 3
	u.MainRegisters = 1

	if got := u.JumpTarget(at); got != 3 {
		t.Errorf("JumpTarget(%d) = %d, want 3", at, got)
	}
	if err := u.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	// The condition register rides in A, the offset in B.
	if u.Code[at].A != 0 || u.Code[at].B != 1 {
		t.Errorf("patched jump = %+v, want A=0 B=1", u.Code[at])
	}
}

func TestUnpatchedJumpFailsValidation(t *testing.T) {
	u := NewUnit()
	u.EmitJump(OpJump, 0)
	u.MainRegisters = 1
	err := u.Validate()
	if err == nil {
		t.Fatal("unit with an unpatched jump validated")
	}
	if !strings.Contains(err.Error(), "jump target") {
		t.Errorf("error = %q, want a jump target complaint", err)
	}
}

func TestEmitLoop(t *testing.T) {
	u := NewUnit()
	c := u.AddConstant(IntConstant(1))
	top := u.CurrentOffset()
	u.Emit(OpLoadConst, 0, int32(c), 0)
	u.Emit(OpPrint, 0, 0, 0)
	at := u.EmitLoop(top)

	if got := u.JumpTarget(at); got != top {
		t.Errorf("JumpTarget(%d) = %d, want %d", at, got, top)
	}
	if u.Code[at].A >= 0 {
		t.Errorf("loop offset = %d, want a negative offset", u.Code[at].A)
	}
}

func TestPatchNonJumpPanics(t *testing.T) {
	u := NewUnit()
	at := u.Emit(OpAdd, 0, 1, 2)
	defer func() {
		if recover() == nil {
			t.Error("PatchJumpTo on ADD did not panic")
		}
	}()
	u.PatchJumpTo(at, 0)
}

func TestEmitJumpRejectsNonJump(t *testing.T) {
	u := NewUnit()
	defer func() {
		if recover() == nil {
			t.Error("EmitJump(ADD) did not panic")
		}
	}()
	u.EmitJump(OpAdd, 0)
}

func TestAddFunctionAndFuncIndex(t *testing.T) {
	u := NewUnit()
	i0 := u.AddFunction(Function{Name: "first", Entry: 0, Arity: 0, Registers: 1})
	i1 := u.AddFunction(Function{Name: "second", Entry: 2, Arity: 1, Registers: 2})
	if i0 != 0 || i1 != 1 {
		t.Errorf("AddFunction returned %d, %d, want 0, 1", i0, i1)
	}

	idx, ok := u.FuncIndex("second")
	if !ok || idx != 1 {
		t.Errorf("FuncIndex(second) = %d, %v, want 1, true", idx, ok)
	}
	if _, ok := u.FuncIndex("third"); ok {
		t.Error("FuncIndex found a function that was never added")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *Unit
		fragment string
	}{
		{
			"entry outside code",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpReturn, 0, 0, 0)
				u.Entry = 5
				return u
			},
			"entry point 5 outside code",
		},
		{
			"negative root window",
			func() *Unit {
				u := NewUnit()
				u.MainRegisters = -1
				return u
			},
			"negative root window size",
		},
		{
			"function entry outside code",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpReturn, 0, 0, 0)
				u.AddFunction(Function{Name: "f", Entry: 9, Registers: 1})
				return u
			},
			`function "f" entry 9 outside code`,
		},
		{
			"arity exceeds window",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpReturn, 0, 0, 0)
				u.AddFunction(Function{Name: "f", Entry: 0, Arity: 2, Registers: 1})
				return u
			},
			`function "f" arity 2 exceeds window size 1`,
		},
		{
			"unknown opcode",
			func() *Unit {
				u := NewUnit()
				u.Emit(Opcode(0xEE), 0, 0, 0)
				return u
			},
			"unknown opcode 0xEE",
		},
		{
			"constant outside pool",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpLoadConst, 0, 3, 0)
				return u
			},
			"constant 3 outside pool",
		},
		{
			"function operand outside table",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpCall, 0, 0, 0)
				return u
			},
			"function 0 outside table",
		},
		{
			"jump past code",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpJump, 5, 0, 0)
				return u
			},
			"jump target 6 outside code",
		},
		{
			"global slot outside root window",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpLoadGlobal, 0, 2, 0)
				u.MainRegisters = 1
				return u
			},
			"global slot 2 outside root window",
		},
		{
			"negative count",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpLoadArray, 0, 0, -1)
				return u
			},
			"negative count",
		},
		{
			"bad flag",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpReturn, 0, 2, 0)
				return u
			},
			"flag operand 2 is not 0 or 1",
		},
		{
			"negative register",
			func() *Unit {
				u := NewUnit()
				u.Emit(OpAdd, -1, 0, 0)
				return u
			},
			"negative register",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build().Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want an error mentioning %q", tc.fragment)
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tc.fragment)
			}
		})
	}
}

func TestValidateAllowsJumpToEnd(t *testing.T) {
	// A jump that lands exactly one past the last instruction halts
	// top-level execution and is legal.
	u := NewUnit()
	u.Emit(OpJump, 0, 0, 0)
	u.MainRegisters = 1
	if err := u.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateWellFormedUnit(t *testing.T) {
	u := NewUnit()
	c := u.AddConstant(IntConstant(1))
	u.AddFunction(Function{Name: "id", Entry: 0, Arity: 1, Registers: 1})
	u.Emit(OpReturn, 0, 1, 0) // id body
	u.Entry = u.CurrentOffset()
	u.Emit(OpLoadConst, 0, int32(c), 0)
	u.Emit(OpCall, 0, 0, 0)
	u.Emit(OpReturn, 0, 1, 0)
	u.MainRegisters = 1

	if err := u.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
