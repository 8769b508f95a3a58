package vm

import (
	"fmt"
	"os"
	"strings"

	"github.com/BrianSMitchell/Synapse-sub000/bytecode"
)

// Default execution limits.
const (
	DefaultRegisters = 256  // per-frame register window capacity
	DefaultCallDepth = 1000 // maximum call stack depth
)

// Config controls machine limits and output routing.
type Config struct {
	Registers int  // per-frame window capacity; 0 means DefaultRegisters
	CallDepth int  // call stack limit; 0 means DefaultCallDepth
	Sink      Sink // program output; nil means standard output
}

// DefaultConfig returns the stock limits with output to stdout.
func DefaultConfig() Config {
	return Config{Registers: DefaultRegisters, CallDepth: DefaultCallDepth}
}

// callFrame is one activation record. base and window carve the
// frame's register view out of the machine's backing slice; registers
// outside [base, base+window) are unreachable from this frame.
type callFrame struct {
	returnPC  int // code index to resume at after return
	base      int // first backing slice index of this frame's window
	window    int // register count visible to this frame
	resultReg int // caller-relative register receiving the return value
	fn        int // function table index, -1 for the top level
}

// Machine executes one compiled unit. It is single-threaded: drive it
// with Step or Run from one goroutine.
type Machine struct {
	unit      *bytecode.Unit
	cfg       Config
	sink      Sink
	registers []Value
	frames    []callFrame
	pc        int
	halted    bool
	result    Value
	err       error
}

// New prepares a machine for a compiled unit. The unit is validated
// and its constant pool frozen; a unit whose register windows exceed
// the configured capacity is rejected here rather than mid-run.
func New(u *bytecode.Unit, cfg Config) (*Machine, error) {
	if u == nil {
		return nil, fmt.Errorf("vm: nil unit")
	}
	if cfg.Registers <= 0 {
		cfg.Registers = DefaultRegisters
	}
	if cfg.CallDepth <= 0 {
		cfg.CallDepth = DefaultCallDepth
	}
	if cfg.Sink == nil {
		cfg.Sink = WriterSink{W: os.Stdout}
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if u.MainRegisters > cfg.Registers {
		return nil, fmt.Errorf("vm: top-level window needs %d registers, capacity is %d", u.MainRegisters, cfg.Registers)
	}
	for _, fn := range u.Functions {
		if fn.Registers > cfg.Registers {
			return nil, fmt.Errorf("vm: function %q needs %d registers, capacity is %d", fn.Name, fn.Registers, cfg.Registers)
		}
	}
	u.Freeze()

	return &Machine{
		unit:      u,
		cfg:       cfg,
		sink:      cfg.Sink,
		registers: make([]Value, u.MainRegisters),
		frames:    []callFrame{{returnPC: -1, base: 0, window: u.MainRegisters, resultReg: -1, fn: -1}},
		pc:        u.Entry,
	}, nil
}

// Execute compiles nothing and runs everything: convenience wrapper
// around New and Run.
func Execute(u *bytecode.Unit, cfg Config) (Value, error) {
	m, err := New(u, cfg)
	if err != nil {
		return NoneValue, err
	}
	return m.Run()
}

// Run steps the machine until it halts or fails.
func (m *Machine) Run() (Value, error) {
	for {
		done, err := m.Step()
		if err != nil {
			return NoneValue, err
		}
		if done {
			return m.result, nil
		}
	}
}

// Step executes exactly one instruction and reports whether the
// machine has halted. A fatal error halts the machine permanently;
// subsequent calls keep returning the same error.
func (m *Machine) Step() (bool, error) {
	if m.halted {
		return true, m.err
	}
	if m.pc == len(m.unit.Code) {
		// Top-level code ran off the end.
		m.halt(NoneValue)
		return true, nil
	}

	ins := m.unit.Code[m.pc]
	var err error

	switch ins.Op {
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		err = m.stepArith(ins)

	case bytecode.OpNeg:
		var v Value
		if v, err = m.getReg(ins.B); err == nil {
			switch v.Kind {
			case KindInt:
				err = m.setReg(ins.A, IntValue(-v.Int))
			case KindFloat:
				err = m.setReg(ins.A, FloatValue(-v.Float))
			default:
				err = m.fail(ErrType, "cannot negate %s", v.Kind)
			}
		}

	case bytecode.OpCmpEq, bytecode.OpCmpNe, bytecode.OpCmpLt, bytecode.OpCmpLe, bytecode.OpCmpGt, bytecode.OpCmpGe:
		err = m.stepCompare(ins)

	case bytecode.OpAnd, bytecode.OpOr:
		var a, b Value
		if a, err = m.getReg(ins.B); err == nil {
			if b, err = m.getReg(ins.C); err == nil {
				if ins.Op == bytecode.OpAnd {
					err = m.setReg(ins.A, BoolValue(a.Truthy() && b.Truthy()))
				} else {
					err = m.setReg(ins.A, BoolValue(a.Truthy() || b.Truthy()))
				}
			}
		}

	case bytecode.OpNot:
		var v Value
		if v, err = m.getReg(ins.B); err == nil {
			err = m.setReg(ins.A, BoolValue(!v.Truthy()))
		}

	case bytecode.OpJump:
		m.pc += 1 + int(ins.A)
		return false, nil

	case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
		var v Value
		if v, err = m.getReg(ins.A); err == nil {
			taken := v.Truthy() == (ins.Op == bytecode.OpJumpIfTrue)
			if taken {
				m.pc += 1 + int(ins.B)
			} else {
				m.pc++
			}
			return false, nil
		}

	case bytecode.OpCall:
		if err = m.stepCall(ins); err == nil {
			return false, nil
		}

	case bytecode.OpReturn:
		if err = m.stepReturn(ins); err == nil {
			return m.halted, nil
		}

	case bytecode.OpLoadConst:
		err = m.setReg(ins.A, fromConstant(m.unit.Constants[ins.B]))

	case bytecode.OpLoadVar, bytecode.OpStoreVar:
		var v Value
		if v, err = m.getReg(ins.B); err == nil {
			err = m.setReg(ins.A, v)
		}

	case bytecode.OpLoadGlobal:
		err = m.setReg(ins.A, m.registers[ins.B])

	case bytecode.OpStoreGlobal:
		var v Value
		if v, err = m.getReg(ins.B); err == nil {
			m.registers[ins.A] = v
		}

	case bytecode.OpLoadArray:
		elems := make([]Value, int(ins.C))
		for i := range elems {
			if elems[i], err = m.getReg(ins.B + int32(i)); err != nil {
				break
			}
		}
		if err == nil {
			err = m.setReg(ins.A, ArrayValue(&Array{Elems: elems}))
		}

	case bytecode.OpStoreArray:
		err = m.stepStoreArray(ins)

	case bytecode.OpArrayIndex:
		err = m.stepArrayIndex(ins)

	case bytecode.OpArrayLen:
		var v Value
		if v, err = m.getReg(ins.B); err == nil {
			switch v.Kind {
			case KindArray:
				err = m.setReg(ins.A, IntValue(int64(len(v.Arr.Elems))))
			case KindString:
				err = m.setReg(ins.A, IntValue(int64(len(v.Str))))
			default:
				err = m.fail(ErrType, "len needs an array or string, got %s", v.Kind)
			}
		}

	case bytecode.OpPrint:
		var v Value
		if v, err = m.getReg(ins.A); err == nil {
			if werr := m.sink.Write(v.String() + "\n"); werr != nil {
				err = m.fail(ErrIO, "write failed: %v", werr)
			}
		}

	default:
		err = m.fail(ErrState, "unknown opcode 0x%02X", byte(ins.Op))
	}

	if err != nil {
		m.halted = true
		m.err = err
		return true, err
	}
	m.pc++
	return false, nil
}

// PC returns the code index of the next instruction.
func (m *Machine) PC() int { return m.pc }

// Depth returns the current call stack depth.
func (m *Machine) Depth() int { return len(m.frames) }

// Halted reports whether execution has finished or failed.
func (m *Machine) Halted() bool { return m.halted }

// Result returns the program result once the machine has halted: the
// value of a top-level return, or none when execution ran off the end.
func (m *Machine) Result() Value { return m.result }

func (m *Machine) halt(v Value) {
	m.halted = true
	m.result = v
}

func (m *Machine) fail(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, PC: m.pc, Msg: fmt.Sprintf(format, args...)}
}

// ----------------------------------------------------------------------------
// Register access
// ----------------------------------------------------------------------------

func (m *Machine) getReg(r int32) (Value, error) {
	f := &m.frames[len(m.frames)-1]
	if r < 0 || int(r) >= f.window {
		return NoneValue, m.fail(ErrRegister, "register %d outside window of %d", r, f.window)
	}
	return m.registers[f.base+int(r)], nil
}

func (m *Machine) setReg(r int32, v Value) error {
	f := &m.frames[len(m.frames)-1]
	if r < 0 || int(r) >= f.window {
		return m.fail(ErrRegister, "register %d outside window of %d", r, f.window)
	}
	m.registers[f.base+int(r)] = v
	return nil
}

// ----------------------------------------------------------------------------
// Instruction families
// ----------------------------------------------------------------------------

func (m *Machine) stepArith(ins bytecode.Instruction) error {
	a, err := m.getReg(ins.B)
	if err != nil {
		return err
	}
	b, err := m.getReg(ins.C)
	if err != nil {
		return err
	}

	var v Value
	switch ins.Op {
	case bytecode.OpAdd:
		switch {
		case a.Kind == KindString && b.Kind == KindString:
			v = StringValue(a.Str + b.Str)
		case a.Kind == KindInt && b.Kind == KindInt:
			v = IntValue(a.Int + b.Int)
		case a.IsNumber() && b.IsNumber():
			v = FloatValue(a.AsFloat() + b.AsFloat())
		default:
			return m.fail(ErrType, "cannot add %s and %s", a.Kind, b.Kind)
		}
	case bytecode.OpSub:
		switch {
		case a.Kind == KindInt && b.Kind == KindInt:
			v = IntValue(a.Int - b.Int)
		case a.IsNumber() && b.IsNumber():
			v = FloatValue(a.AsFloat() - b.AsFloat())
		default:
			return m.fail(ErrType, "cannot subtract %s and %s", a.Kind, b.Kind)
		}
	case bytecode.OpMul:
		switch {
		case a.Kind == KindInt && b.Kind == KindInt:
			v = IntValue(a.Int * b.Int)
		case a.IsNumber() && b.IsNumber():
			v = FloatValue(a.AsFloat() * b.AsFloat())
		default:
			return m.fail(ErrType, "cannot multiply %s and %s", a.Kind, b.Kind)
		}
	case bytecode.OpDiv:
		switch {
		case a.Kind == KindInt && b.Kind == KindInt:
			if b.Int == 0 {
				return m.fail(ErrDivZero, "division by zero")
			}
			v = IntValue(a.Int / b.Int)
		case a.IsNumber() && b.IsNumber():
			if b.AsFloat() == 0 {
				return m.fail(ErrDivZero, "division by zero")
			}
			v = FloatValue(a.AsFloat() / b.AsFloat())
		default:
			return m.fail(ErrType, "cannot divide %s and %s", a.Kind, b.Kind)
		}
	case bytecode.OpMod:
		if a.Kind != KindInt || b.Kind != KindInt {
			return m.fail(ErrType, "modulo needs integers, got %s and %s", a.Kind, b.Kind)
		}
		if b.Int == 0 {
			return m.fail(ErrDivZero, "modulo by zero")
		}
		v = IntValue(a.Int % b.Int)
	}
	return m.setReg(ins.A, v)
}

func (m *Machine) stepCompare(ins bytecode.Instruction) error {
	a, err := m.getReg(ins.B)
	if err != nil {
		return err
	}
	b, err := m.getReg(ins.C)
	if err != nil {
		return err
	}

	switch ins.Op {
	case bytecode.OpCmpEq:
		return m.setReg(ins.A, BoolValue(a.Equal(b)))
	case bytecode.OpCmpNe:
		return m.setReg(ins.A, BoolValue(!a.Equal(b)))
	}

	ord, err := m.order(a, b)
	if err != nil {
		return err
	}
	var res bool
	switch ins.Op {
	case bytecode.OpCmpLt:
		res = ord < 0
	case bytecode.OpCmpLe:
		res = ord <= 0
	case bytecode.OpCmpGt:
		res = ord > 0
	case bytecode.OpCmpGe:
		res = ord >= 0
	}
	return m.setReg(ins.A, BoolValue(res))
}

// order compares two values for the relational operators: numbers
// compare numerically, strings lexicographically, anything else is a
// type error.
func (m *Machine) order(a, b Value) (int, error) {
	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		switch {
		case a.Int < b.Int:
			return -1, nil
		case a.Int > b.Int:
			return 1, nil
		}
		return 0, nil
	case a.IsNumber() && b.IsNumber():
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	case a.Kind == KindString && b.Kind == KindString:
		return strings.Compare(a.Str, b.Str), nil
	}
	return 0, m.fail(ErrType, "cannot order %s and %s", a.Kind, b.Kind)
}

func (m *Machine) stepCall(ins bytecode.Instruction) error {
	if len(m.frames) >= m.cfg.CallDepth {
		return m.fail(ErrOverflow, "call depth limit %d exceeded", m.cfg.CallDepth)
	}
	f := &m.frames[len(m.frames)-1]
	fn := m.unit.Functions[ins.B]

	dst, argBase := int(ins.A), int(ins.C)
	if dst < 0 || dst >= f.window {
		return m.fail(ErrRegister, "register %d outside window of %d", dst, f.window)
	}
	if argBase < 0 || argBase+fn.Arity > f.window {
		return m.fail(ErrRegister, "argument registers %d-%d outside window of %d", argBase, argBase+fn.Arity-1, f.window)
	}

	newBase := f.base + f.window
	need := newBase + fn.Registers
	if need > len(m.registers) {
		grown := make([]Value, need)
		copy(grown, m.registers)
		m.registers = grown
	}
	// Wipe the callee window: the backing slice may hold leftovers from
	// earlier calls, and a fresh frame must start from none.
	for i := newBase; i < need; i++ {
		m.registers[i] = NoneValue
	}
	for i := 0; i < fn.Arity; i++ {
		m.registers[newBase+i] = m.registers[f.base+argBase+i]
	}

	m.frames = append(m.frames, callFrame{
		returnPC:  m.pc + 1,
		base:      newBase,
		window:    fn.Registers,
		resultReg: dst,
		fn:        int(ins.B),
	})
	m.pc = fn.Entry
	return nil
}

func (m *Machine) stepReturn(ins bytecode.Instruction) error {
	ret := NoneValue
	if ins.B == 1 {
		v, err := m.getReg(ins.A)
		if err != nil {
			return err
		}
		ret = v
	}

	if len(m.frames) == 1 {
		// Top-level return ends the program with a result.
		m.halt(ret)
		return nil
	}

	popped := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
	caller := &m.frames[len(m.frames)-1]
	m.registers[caller.base+popped.resultReg] = ret
	m.pc = popped.returnPC
	return nil
}

func (m *Machine) stepStoreArray(ins bytecode.Instruction) error {
	av, err := m.getReg(ins.A)
	if err != nil {
		return err
	}
	iv, err := m.getReg(ins.B)
	if err != nil {
		return err
	}
	sv, err := m.getReg(ins.C)
	if err != nil {
		return err
	}
	if av.Kind != KindArray {
		return m.fail(ErrType, "cannot index %s", av.Kind)
	}
	if iv.Kind != KindInt {
		return m.fail(ErrType, "array index must be int, got %s", iv.Kind)
	}
	if iv.Int < 0 || iv.Int >= int64(len(av.Arr.Elems)) {
		return m.fail(ErrBounds, "array index %d out of bounds (length %d)", iv.Int, len(av.Arr.Elems))
	}
	av.Arr.Elems[iv.Int] = sv
	return nil
}

func (m *Machine) stepArrayIndex(ins bytecode.Instruction) error {
	av, err := m.getReg(ins.B)
	if err != nil {
		return err
	}
	iv, err := m.getReg(ins.C)
	if err != nil {
		return err
	}
	if av.Kind != KindArray {
		return m.fail(ErrType, "cannot index %s", av.Kind)
	}
	if iv.Kind != KindInt {
		return m.fail(ErrType, "array index must be int, got %s", iv.Kind)
	}
	if iv.Int < 0 || iv.Int >= int64(len(av.Arr.Elems)) {
		return m.fail(ErrBounds, "array index %d out of bounds (length %d)", iv.Int, len(av.Arr.Elems))
	}
	return m.setReg(ins.A, av.Arr.Elems[iv.Int])
}

// fromConstant converts a pool entry to a runtime value.
func fromConstant(c bytecode.Constant) Value {
	switch c.Kind {
	case bytecode.ConstInt:
		return IntValue(c.Int)
	case bytecode.ConstFloat:
		return FloatValue(c.Float)
	case bytecode.ConstString:
		return StringValue(c.Str)
	case bytecode.ConstBool:
		return BoolValue(c.Bool)
	default:
		return NoneValue
	}
}
