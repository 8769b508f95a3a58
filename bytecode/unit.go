package bytecode

import (
	"fmt"
	"strconv"
)

// ConstKind discriminates the payload of a Constant.
type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstInt
	ConstFloat
	ConstString
	ConstBool
)

// String returns a human-readable name for the constant kind.
func (k ConstKind) String() string {
	switch k {
	case ConstNone:
		return "none"
	case ConstInt:
		return "int"
	case ConstFloat:
		return "float"
	case ConstString:
		return "string"
	case ConstBool:
		return "bool"
	default:
		return fmt.Sprintf("ConstKind(%d)", uint8(k))
	}
}

// Constant is a single pool entry. Exactly one payload field is
// meaningful, selected by Kind. The struct is comparable, which lets
// the pool deduplicate entries by value and kind with a plain map.
type Constant struct {
	Kind  ConstKind `cbor:"1,keyasint"`
	Int   int64     `cbor:"2,keyasint,omitempty"`
	Float float64   `cbor:"3,keyasint,omitempty"`
	Str   string    `cbor:"4,keyasint,omitempty"`
	Bool  bool      `cbor:"5,keyasint,omitempty"`
}

// IntConstant returns an integer pool entry.
func IntConstant(v int64) Constant { return Constant{Kind: ConstInt, Int: v} }

// FloatConstant returns a float pool entry.
func FloatConstant(v float64) Constant { return Constant{Kind: ConstFloat, Float: v} }

// StringConstant returns a string pool entry.
func StringConstant(s string) Constant { return Constant{Kind: ConstString, Str: s} }

// BoolConstant returns a boolean pool entry.
func BoolConstant(b bool) Constant { return Constant{Kind: ConstBool, Bool: b} }

// NoneConstant returns the none pool entry.
func NoneConstant() Constant { return Constant{Kind: ConstNone} }

// String formats the constant the way the disassembler shows it.
func (c Constant) String() string {
	switch c.Kind {
	case ConstNone:
		return "none"
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	default:
		return fmt.Sprintf("Constant(%d)", uint8(c.Kind))
	}
}

// Instruction is one fixed-width VM instruction. The meaning of the
// operands A, B and C depends on Op; see the OpcodeInfo table.
type Instruction struct {
	Op Opcode `cbor:"1,keyasint"`
	A  int32  `cbor:"2,keyasint,omitempty"`
	B  int32  `cbor:"3,keyasint,omitempty"`
	C  int32  `cbor:"4,keyasint,omitempty"`
}

// Function describes one compiled function body.
type Function struct {
	Name      string `cbor:"1,keyasint"`
	Entry     int    `cbor:"2,keyasint"` // index of the first body instruction
	Arity     int    `cbor:"3,keyasint"` // declared parameter count
	Registers int    `cbor:"4,keyasint"` // frame window size the body needs
}

// Unit is a complete compiled program: one shared constant pool, one
// flat instruction stream and a function table. Function bodies occupy
// [0, Entry) and top-level code occupies [Entry, len(Code)).
type Unit struct {
	Constants     []Constant     `cbor:"1,keyasint"`
	Code          []Instruction  `cbor:"2,keyasint"`
	Functions     []Function     `cbor:"3,keyasint,omitempty"`
	Globals       map[string]int `cbor:"4,keyasint,omitempty"` // top-level name -> root window slot
	Entry         int            `cbor:"5,keyasint"`
	MainRegisters int            `cbor:"6,keyasint"` // root frame window size

	frozen     bool
	constIndex map[Constant]int
}

// jumpPlaceholder fills the offset operand of a jump between emission
// and patching. It is far outside any real code range, so a jump that
// misses its patch fails validation instead of silently falling through.
const jumpPlaceholder int32 = 1 << 30

// NewUnit creates an empty unit ready for emission.
func NewUnit() *Unit {
	return &Unit{
		Constants: make([]Constant, 0, 8),
		Code:      make([]Instruction, 0, 64),
		Globals:   make(map[string]int),
	}
}

// AddConstant adds a constant to the pool and returns its index.
// If an entry with the same kind and value already exists, the
// existing index is returned. Panics if the pool has been frozen.
func (u *Unit) AddConstant(c Constant) int {
	if u.frozen {
		panic("bytecode: constant pool is frozen")
	}
	if u.constIndex == nil {
		u.constIndex = make(map[Constant]int, len(u.Constants))
		for i, existing := range u.Constants {
			u.constIndex[existing] = i
		}
	}
	if idx, ok := u.constIndex[c]; ok {
		return idx
	}
	idx := len(u.Constants)
	u.Constants = append(u.Constants, c)
	u.constIndex[c] = idx
	return idx
}

// GetConstant returns the pool entry at the given index.
// Panics if the index is out of bounds.
func (u *Unit) GetConstant(index int) Constant {
	return u.Constants[index]
}

// ConstantCount returns the number of pool entries.
func (u *Unit) ConstantCount() int {
	return len(u.Constants)
}

// Freeze seals the constant pool. Execution starts only on frozen
// units; any later AddConstant panics.
func (u *Unit) Freeze() {
	u.frozen = true
}

// Frozen reports whether the constant pool has been sealed.
func (u *Unit) Frozen() bool {
	return u.frozen
}

// Emit appends an instruction and returns its index.
func (u *Unit) Emit(op Opcode, a, b, c int32) int {
	idx := len(u.Code)
	u.Code = append(u.Code, Instruction{Op: op, A: a, B: b, C: c})
	return idx
}

// CurrentOffset returns the index the next emitted instruction will get.
func (u *Unit) CurrentOffset() int {
	return len(u.Code)
}

// EmitJump emits a jump with a placeholder offset and returns the
// instruction index for later patching. src is the condition register
// for conditional jumps and is ignored for OpJump.
func (u *Unit) EmitJump(op Opcode, src int32) int {
	switch op {
	case OpJump:
		return u.Emit(OpJump, jumpPlaceholder, 0, 0)
	case OpJumpIfFalse, OpJumpIfTrue:
		return u.Emit(op, src, jumpPlaceholder, 0)
	default:
		panic(fmt.Sprintf("bytecode: %s is not a jump", op))
	}
}

// PatchJump rewrites the jump at index at so control lands on the next
// instruction to be emitted.
func (u *Unit) PatchJump(at int) {
	u.PatchJumpTo(at, len(u.Code))
}

// PatchJumpTo rewrites the jump at index at to land on target.
// Offsets are relative to the instruction after the jump.
func (u *Unit) PatchJumpTo(at, target int) {
	off := int32(target - at - 1)
	switch u.Code[at].Op {
	case OpJump:
		u.Code[at].A = off
	case OpJumpIfFalse, OpJumpIfTrue:
		u.Code[at].B = off
	default:
		panic(fmt.Sprintf("bytecode: instruction %d (%s) is not a jump", at, u.Code[at].Op))
	}
}

// EmitLoop emits an unconditional backward jump to target and returns
// the instruction index.
func (u *Unit) EmitLoop(target int) int {
	at := u.Emit(OpJump, 0, 0, 0)
	u.PatchJumpTo(at, target)
	return at
}

// JumpTarget resolves the absolute code index the jump at index at
// lands on. Panics if the instruction is not a jump.
func (u *Unit) JumpTarget(at int) int {
	ins := u.Code[at]
	switch ins.Op {
	case OpJump:
		return at + 1 + int(ins.A)
	case OpJumpIfFalse, OpJumpIfTrue:
		return at + 1 + int(ins.B)
	default:
		panic(fmt.Sprintf("bytecode: instruction %d (%s) is not a jump", at, ins.Op))
	}
}

// AddFunction appends a function table entry and returns its index.
func (u *Unit) AddFunction(fn Function) int {
	idx := len(u.Functions)
	u.Functions = append(u.Functions, fn)
	return idx
}

// FuncIndex returns the table index of the named function.
func (u *Unit) FuncIndex(name string) (int, bool) {
	for i, fn := range u.Functions {
		if fn.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Validate checks the structural integrity of the unit: every opcode is
// defined, constant and function operands index into their tables, jump
// targets land inside the code (or exactly one past the end, which
// halts top-level execution) and flag operands are 0 or 1.
func (u *Unit) Validate() error {
	if u.Entry < 0 || u.Entry > len(u.Code) {
		return fmt.Errorf("bytecode: entry point %d outside code (0-%d)", u.Entry, len(u.Code))
	}
	if u.MainRegisters < 0 {
		return fmt.Errorf("bytecode: negative root window size %d", u.MainRegisters)
	}
	for _, fn := range u.Functions {
		if fn.Entry < 0 || fn.Entry >= len(u.Code) {
			return fmt.Errorf("bytecode: function %q entry %d outside code (0-%d)", fn.Name, fn.Entry, len(u.Code)-1)
		}
		if fn.Arity < 0 || fn.Arity > fn.Registers {
			return fmt.Errorf("bytecode: function %q arity %d exceeds window size %d", fn.Name, fn.Arity, fn.Registers)
		}
	}
	for i, ins := range u.Code {
		if !ins.Op.Valid() {
			return fmt.Errorf("bytecode: instruction %04d: unknown opcode 0x%02X", i, byte(ins.Op))
		}
		info := GetOpcodeInfo(ins.Op)
		operands := [3]int32{ins.A, ins.B, ins.C}
		for k := 0; k < info.Operands; k++ {
			v := operands[k]
			switch info.Kinds[k] {
			case OperandReg:
				if v < 0 {
					return fmt.Errorf("bytecode: instruction %04d %s: negative register %d", i, info.Name, v)
				}
			case OperandConst:
				if v < 0 || int(v) >= len(u.Constants) {
					return fmt.Errorf("bytecode: instruction %04d %s: constant %d outside pool (%d entries)", i, info.Name, v, len(u.Constants))
				}
			case OperandFunc:
				if v < 0 || int(v) >= len(u.Functions) {
					return fmt.Errorf("bytecode: instruction %04d %s: function %d outside table (%d entries)", i, info.Name, v, len(u.Functions))
				}
			case OperandOffset:
				target := i + 1 + int(v)
				if target < 0 || target > len(u.Code) {
					return fmt.Errorf("bytecode: instruction %04d %s: jump target %d outside code (0-%d)", i, info.Name, target, len(u.Code))
				}
			case OperandGlobal:
				if v < 0 || int(v) >= u.MainRegisters {
					return fmt.Errorf("bytecode: instruction %04d %s: global slot %d outside root window (%d slots)", i, info.Name, v, u.MainRegisters)
				}
			case OperandCount:
				if v < 0 {
					return fmt.Errorf("bytecode: instruction %04d %s: negative count %d", i, info.Name, v)
				}
			case OperandFlag:
				if v != 0 && v != 1 {
					return fmt.Errorf("bytecode: instruction %04d %s: flag operand %d is not 0 or 1", i, info.Name, v)
				}
			}
		}
	}
	return nil
}
