package compiler

import (
	"reflect"
	"strings"
	"testing"

	"github.com/BrianSMitchell/Synapse-sub000/bytecode"
)

func compileSource(t *testing.T, input string) *bytecode.Unit {
	t.Helper()
	unit, err := CompileSource(input)
	if err != nil {
		t.Fatalf("CompileSource(%q): %v", input, err)
	}
	return unit
}

// Expression operands land above their destination register and are
// released once the operation is emitted, so 2 + 3 * 4 compiles to a
// fixed, compact window.
func TestCompileArithmetic(t *testing.T) {
	unit := compileSource(t, "print 2 + 3 * 4")

	want := []bytecode.Instruction{
		{Op: bytecode.OpLoadConst, A: 1, B: 0},
		{Op: bytecode.OpLoadConst, A: 3, B: 1},
		{Op: bytecode.OpLoadConst, A: 4, B: 2},
		{Op: bytecode.OpMul, A: 2, B: 3, C: 4},
		{Op: bytecode.OpAdd, A: 0, B: 1, C: 2},
		{Op: bytecode.OpPrint, A: 0},
	}
	if !reflect.DeepEqual(unit.Code, want) {
		t.Errorf("code = %v, want %v", unit.Code, want)
	}

	wantConsts := []bytecode.Constant{
		bytecode.IntConstant(2),
		bytecode.IntConstant(3),
		bytecode.IntConstant(4),
	}
	if !reflect.DeepEqual(unit.Constants, wantConsts) {
		t.Errorf("constants = %v, want %v", unit.Constants, wantConsts)
	}
	if unit.Entry != 0 {
		t.Errorf("entry = %d, want 0", unit.Entry)
	}
	if unit.MainRegisters != 5 {
		t.Errorf("main registers = %d, want 5", unit.MainRegisters)
	}
}

// A let compiles its value directly into the variable's home register;
// no separate store is emitted.
func TestCompileLet(t *testing.T) {
	unit := compileSource(t, "let x = 1\nlet y = 2\nprint x + y")

	want := []bytecode.Instruction{
		{Op: bytecode.OpLoadConst, A: 0, B: 0},
		{Op: bytecode.OpLoadConst, A: 1, B: 1},
		{Op: bytecode.OpLoadVar, A: 3, B: 0},
		{Op: bytecode.OpLoadVar, A: 4, B: 1},
		{Op: bytecode.OpAdd, A: 2, B: 3, C: 4},
		{Op: bytecode.OpPrint, A: 2},
	}
	if !reflect.DeepEqual(unit.Code, want) {
		t.Errorf("code = %v, want %v", unit.Code, want)
	}

	wantGlobals := map[string]int{"x": 0, "y": 1}
	if !reflect.DeepEqual(unit.Globals, wantGlobals) {
		t.Errorf("globals = %v, want %v", unit.Globals, wantGlobals)
	}
}

// Function bodies come first in the instruction stream, each sealed by
// an unconditional return; the top level starts at Entry.
func TestCompileFunctionLayout(t *testing.T) {
	unit := compileSource(t, "fn one() { return 1 }\nprint one()")

	want := []bytecode.Instruction{
		{Op: bytecode.OpLoadConst, A: 0, B: 0},
		{Op: bytecode.OpReturn, A: 0, B: 1},
		{Op: bytecode.OpReturn, A: 0, B: 0},
		{Op: bytecode.OpCall, A: 0, B: 0, C: 1},
		{Op: bytecode.OpPrint, A: 0},
	}
	if !reflect.DeepEqual(unit.Code, want) {
		t.Errorf("code = %v, want %v", unit.Code, want)
	}
	if unit.Entry != 3 {
		t.Errorf("entry = %d, want 3", unit.Entry)
	}

	if len(unit.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(unit.Functions))
	}
	fn := unit.Functions[0]
	if fn.Name != "one" || fn.Entry != 0 || fn.Arity != 0 || fn.Registers != 1 {
		t.Errorf("function = %+v, want {one 0 0 1}", fn)
	}
}

// A body whose last statement is a conditional return still gets the
// trailing return, so jumps patched past the body cannot fall through
// into the next function.
func TestCompileFunctionEpilogue(t *testing.T) {
	unit := compileSource(t, `
fn first(x) {
	if x {
		return 1
	}
}
fn second() {
	return 2
}
print first(false)
print second()
`)
	first := unit.Functions[0]
	second := unit.Functions[1]

	last := unit.Code[second.Entry-1]
	if last.Op != bytecode.OpReturn {
		t.Fatalf("instruction before second's entry = %v, want RETURN", last.Op)
	}
	for at := first.Entry; at < second.Entry; at++ {
		ins := unit.Code[at]
		if !ins.Op.IsJump() {
			continue
		}
		target := unit.JumpTarget(at)
		if target < first.Entry || target >= second.Entry {
			t.Errorf("jump at %d targets %d, outside first's body [%d, %d)",
				at, target, first.Entry, second.Entry)
		}
	}
}

func TestCompileScopeRegisterReuse(t *testing.T) {
	unit := compileSource(t, `
let a = 1
{
	let b = 2
	print b
}
{
	let c = 3
	print c
}
`)
	if unit.MainRegisters != 3 {
		t.Errorf("main registers = %d, want 3 (block locals share a slot)", unit.MainRegisters)
	}
	wantGlobals := map[string]int{"a": 0}
	if !reflect.DeepEqual(unit.Globals, wantGlobals) {
		t.Errorf("globals = %v, want %v (block locals are not globals)", unit.Globals, wantGlobals)
	}
}

func TestCompileWhileJumps(t *testing.T) {
	unit := compileSource(t, `
let i = 0
while i < 3 {
	i = i + 1
}
print i
`)
	backward := 0
	for at, ins := range unit.Code {
		if !ins.Op.IsJump() {
			continue
		}
		target := unit.JumpTarget(at)
		if target < 0 || target > len(unit.Code) {
			t.Errorf("jump at %d targets %d, outside code", at, target)
		}
		if ins.Op == bytecode.OpJump && target <= at {
			backward++
		}
	}
	if backward != 1 {
		t.Errorf("got %d backward jumps, want 1 (the loop)", backward)
	}
}

func TestCompileBreakContinue(t *testing.T) {
	unit := compileSource(t, `
let i = 0
while true {
	i = i + 1
	if i > 10 {
		break
	}
	continue
}
print i
`)
	if err := unit.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

// len lowers to the length opcode unless a user function shadows it.
func TestCompileLenBuiltin(t *testing.T) {
	unit := compileSource(t, "print len([1, 2, 3])")
	if !hasOpcode(unit, bytecode.OpArrayLen) {
		t.Error("len([...]) did not lower to the length opcode")
	}
	if hasOpcode(unit, bytecode.OpCall) {
		t.Error("len([...]) emitted a call")
	}

	shadowed := compileSource(t, "fn len(x) { return 42 }\nprint len([1])")
	if !hasOpcode(shadowed, bytecode.OpCall) {
		t.Error("user-defined len was not called")
	}
	if hasOpcode(shadowed, bytecode.OpArrayLen) {
		t.Error("user-defined len still lowered to the length opcode")
	}
}

func hasOpcode(u *bytecode.Unit, op bytecode.Opcode) bool {
	for _, ins := range u.Code {
		if ins.Op == op {
			return true
		}
	}
	return false
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"print y", `undefined variable "y"`},
		{"x = 1", `undefined variable "x"`},
		{"let x = 1\nlet x = 2", `duplicate declaration of "x"`},
		{"fn f() {}\nfn f() {}", `function "f" already defined`},
		{"fn f(a, a) {}", `duplicate parameter "a"`},
		{"f(1)", `unknown function "f"`},
		{"fn g(a) { return a }\ng(1, 2)", `function "g" expects 1 arguments, got 2`},
		{"break", "break outside loop"},
		{"continue", "continue outside loop"},
		{"len(1, 2)", "len expects 1 argument, got 2"},
		{"fn outer() { fn inner() {} }", "functions may only be declared at the top level"},
	}

	for _, tc := range tests {
		_, err := CompileSource(tc.input)
		if err == nil {
			t.Errorf("CompileSource(%q): expected an error", tc.input)
			continue
		}
		if _, ok := err.(*CompileError); !ok {
			t.Errorf("CompileSource(%q): error type = %T, want *CompileError", tc.input, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("CompileSource(%q) = %q, want it to mention %q", tc.input, err, tc.want)
		}
	}
}

func TestCompileErrorPosition(t *testing.T) {
	_, err := CompileSource("print y")
	cerr, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("error type = %T, want *CompileError", err)
	}
	if cerr.Pos.Line != 1 || cerr.Pos.Column != 7 {
		t.Errorf("position = %v, want 1:7", cerr.Pos)
	}
}

func TestCompileRegisterExhaustion(t *testing.T) {
	tokens, err := Tokenize("print 1 + 2")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	prog, err := Parse(tokens)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := CompileWithCapacity(prog, 2); err == nil {
		t.Fatal("expected register exhaustion with capacity 2")
	} else if !strings.Contains(err.Error(), "needs more than 2 registers") {
		t.Errorf("error = %q, want register exhaustion", err)
	}

	if _, err := CompileWithCapacity(prog, 5); err != nil {
		t.Errorf("capacity 5 should be enough: %v", err)
	}
}

// Compiling the same source twice yields identical units: no map
// iteration order or other nondeterminism leaks into the output.
func TestCompileDeterministic(t *testing.T) {
	source := `
let total = 0
fn add(a, b) {
	return a + b
}
fn weight(arr) {
	let sum = 0
	let i = 0
	while i < len(arr) {
		sum = add(sum, arr[i])
		i = i + 1
	}
	return sum
}
total = weight([3, 1, 4, 1, 5])
print total
`
	a := compileSource(t, source)
	b := compileSource(t, source)

	if !reflect.DeepEqual(a.Code, b.Code) {
		t.Error("instruction streams differ between compiles")
	}
	if !reflect.DeepEqual(a.Constants, b.Constants) {
		t.Error("constant pools differ between compiles")
	}
	if !reflect.DeepEqual(a.Functions, b.Functions) {
		t.Error("function tables differ between compiles")
	}
	if !reflect.DeepEqual(a.Globals, b.Globals) {
		t.Error("global tables differ between compiles")
	}
	if a.Entry != b.Entry || a.MainRegisters != b.MainRegisters {
		t.Errorf("entry/window differ: %d/%d vs %d/%d",
			a.Entry, a.MainRegisters, b.Entry, b.MainRegisters)
	}
}

func TestCompileConstantDedup(t *testing.T) {
	unit := compileSource(t, "print 7 + 7 + 7")
	if got := unit.ConstantCount(); got != 1 {
		t.Errorf("constant count = %d, want 1 (pool deduplicates)", got)
	}
}

func TestCompileValidatedAndFrozen(t *testing.T) {
	unit := compileSource(t, "let x = 1\nprint x")
	if !unit.Frozen() {
		t.Error("compiled unit is not frozen")
	}
	if err := unit.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
