package bytecode

import "fmt"

// Opcode identifies a single VM instruction.
//
// Opcodes are grouped into families by hex range so that a decoded
// instruction's category is visible at a glance in dumps:
//
//	0x01-0x0F  arithmetic
//	0x10-0x1F  comparison
//	0x20-0x2F  logic
//	0x30-0x3F  control flow
//	0x40-0x4F  data movement
//	0x50-0x5F  output
type Opcode byte

// ============================================================================
// Arithmetic (0x01-0x0F)
// ============================================================================

const (
	OpAdd Opcode = 0x01 // ADD dst, a, b    dst = a + b (numbers or string concat)
	OpSub Opcode = 0x02 // SUB dst, a, b    dst = a - b
	OpMul Opcode = 0x03 // MUL dst, a, b    dst = a * b
	OpDiv Opcode = 0x04 // DIV dst, a, b    dst = a / b (fatal on zero divisor)
	OpMod Opcode = 0x05 // MOD dst, a, b    dst = a % b (integers only, fatal on zero)
	OpNeg Opcode = 0x06 // NEG dst, src     dst = -src
)

// ============================================================================
// Comparison (0x10-0x1F)
// ============================================================================

const (
	OpCmpEq Opcode = 0x10 // CMP_EQ dst, a, b    dst = a == b
	OpCmpNe Opcode = 0x11 // CMP_NE dst, a, b    dst = a != b
	OpCmpLt Opcode = 0x12 // CMP_LT dst, a, b    dst = a < b
	OpCmpLe Opcode = 0x13 // CMP_LE dst, a, b    dst = a <= b
	OpCmpGt Opcode = 0x14 // CMP_GT dst, a, b    dst = a > b
	OpCmpGe Opcode = 0x15 // CMP_GE dst, a, b    dst = a >= b
)

// ============================================================================
// Logic (0x20-0x2F)
// ============================================================================

const (
	OpAnd Opcode = 0x20 // AND dst, a, b    dst = truthy(a) && truthy(b)
	OpOr  Opcode = 0x21 // OR dst, a, b     dst = truthy(a) || truthy(b)
	OpNot Opcode = 0x22 // NOT dst, src     dst = !truthy(src)
)

// ============================================================================
// Control flow (0x30-0x3F)
// ============================================================================

const (
	OpJump        Opcode = 0x30 // JUMP off                  pc += off
	OpJumpIfFalse Opcode = 0x31 // JUMP_IF_FALSE src, off    pc += off when src is falsy
	OpJumpIfTrue  Opcode = 0x32 // JUMP_IF_TRUE src, off     pc += off when src is truthy
	OpCall        Opcode = 0x33 // CALL dst, fn, argBase     invoke function fn, result in dst
	OpReturn      Opcode = 0x34 // RETURN src, hasValue      pop frame; src meaningful when hasValue=1
)

// ============================================================================
// Data movement (0x40-0x4F)
// ============================================================================

const (
	OpLoadConst   Opcode = 0x40 // LOAD_CONST dst, const       dst = constant pool[const]
	OpLoadVar     Opcode = 0x41 // LOAD_VAR dst, src           dst = src (variable slot read)
	OpStoreVar    Opcode = 0x42 // STORE_VAR dst, src          dst = src (variable slot write)
	OpLoadGlobal  Opcode = 0x43 // LOAD_GLOBAL dst, slot       dst = root window slot
	OpStoreGlobal Opcode = 0x44 // STORE_GLOBAL slot, src      root window slot = src
	OpLoadArray   Opcode = 0x45 // LOAD_ARRAY dst, base, n     dst = new array from n regs at base
	OpStoreArray  Opcode = 0x46 // STORE_ARRAY arr, idx, src   arr[idx] = src (fatal when out of bounds)
	OpArrayIndex  Opcode = 0x47 // ARRAY_INDEX dst, arr, idx   dst = arr[idx] (fatal when out of bounds)
	OpArrayLen    Opcode = 0x48 // ARRAY_LEN dst, src          dst = element/byte count of src
)

// ============================================================================
// Output (0x50-0x5F)
// ============================================================================

const (
	OpPrint Opcode = 0x50 // PRINT src    write formatted src to the machine's sink
)

// OperandKind describes how a single instruction operand is interpreted.
// The disassembler uses it to format operands and the VM uses it to
// validate register indices before dispatch.
type OperandKind uint8

const (
	// OperandNone marks an unused operand slot.
	OperandNone OperandKind = iota

	// OperandReg is a register index relative to the current frame window.
	OperandReg

	// OperandConst is an index into the unit's constant pool.
	OperandConst

	// OperandOffset is a signed jump distance relative to the next instruction.
	OperandOffset

	// OperandFunc is an index into the unit's function table.
	OperandFunc

	// OperandGlobal is an absolute slot in the root frame's window.
	OperandGlobal

	// OperandCount is a plain non-negative count.
	OperandCount

	// OperandFlag is a 0/1 marker.
	OperandFlag
)

// String returns a short name for the operand kind.
func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandReg:
		return "reg"
	case OperandConst:
		return "const"
	case OperandOffset:
		return "offset"
	case OperandFunc:
		return "func"
	case OperandGlobal:
		return "global"
	case OperandCount:
		return "count"
	case OperandFlag:
		return "flag"
	default:
		return fmt.Sprintf("OperandKind(%d)", uint8(k))
	}
}

// OpcodeInfo holds static metadata about an opcode.
type OpcodeInfo struct {
	Name     string         // Mnemonic used by the disassembler
	Operands int            // Number of meaningful operands (0-3)
	Kinds    [3]OperandKind // Interpretation of A, B, C in order
}

// opcodeInfoTable maps each opcode to its metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Arithmetic
	OpAdd: {Name: "ADD", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpSub: {Name: "SUB", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpMul: {Name: "MUL", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpDiv: {Name: "DIV", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpMod: {Name: "MOD", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpNeg: {Name: "NEG", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandNone}},

	// Comparison
	OpCmpEq: {Name: "CMP_EQ", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpCmpNe: {Name: "CMP_NE", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpCmpLt: {Name: "CMP_LT", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpCmpLe: {Name: "CMP_LE", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpCmpGt: {Name: "CMP_GT", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpCmpGe: {Name: "CMP_GE", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},

	// Logic
	OpAnd: {Name: "AND", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpOr:  {Name: "OR", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpNot: {Name: "NOT", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandNone}},

	// Control flow
	OpJump:        {Name: "JUMP", Operands: 1, Kinds: [3]OperandKind{OperandOffset, OperandNone, OperandNone}},
	OpJumpIfFalse: {Name: "JUMP_IF_FALSE", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandOffset, OperandNone}},
	OpJumpIfTrue:  {Name: "JUMP_IF_TRUE", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandOffset, OperandNone}},
	OpCall:        {Name: "CALL", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandFunc, OperandReg}},
	OpReturn:      {Name: "RETURN", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandFlag, OperandNone}},

	// Data movement
	OpLoadConst:   {Name: "LOAD_CONST", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandConst, OperandNone}},
	OpLoadVar:     {Name: "LOAD_VAR", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandNone}},
	OpStoreVar:    {Name: "STORE_VAR", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandNone}},
	OpLoadGlobal:  {Name: "LOAD_GLOBAL", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandGlobal, OperandNone}},
	OpStoreGlobal: {Name: "STORE_GLOBAL", Operands: 2, Kinds: [3]OperandKind{OperandGlobal, OperandReg, OperandNone}},
	OpLoadArray:   {Name: "LOAD_ARRAY", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandCount}},
	OpStoreArray:  {Name: "STORE_ARRAY", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpArrayIndex:  {Name: "ARRAY_INDEX", Operands: 3, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandReg}},
	OpArrayLen:    {Name: "ARRAY_LEN", Operands: 2, Kinds: [3]OperandKind{OperandReg, OperandReg, OperandNone}},

	// Output
	OpPrint: {Name: "PRINT", Operands: 1, Kinds: [3]OperandKind{OperandReg, OperandNone, OperandNone}},
}

// GetOpcodeInfo returns metadata for an opcode.
// Unknown opcodes yield a placeholder name so dumps stay readable.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the opcode's mnemonic.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Operands returns how many operands the opcode carries.
func (op Opcode) Operands() int {
	return GetOpcodeInfo(op).Operands
}

// Valid reports whether the opcode is defined in the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsJump reports whether the opcode transfers control via a relative offset.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse || op == OpJumpIfTrue
}

// IsTerminator reports whether the opcode unconditionally ends the
// current frame's linear execution.
func (op Opcode) IsTerminator() bool {
	return op == OpReturn
}

// AllOpcodes returns every defined opcode in ascending numeric order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		ops = append(ops, op)
	}
	for i := 1; i < len(ops); i++ {
		for j := i; j > 0 && ops[j-1] > ops[j]; j-- {
			ops[j-1], ops[j] = ops[j], ops[j-1]
		}
	}
	return ops
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
