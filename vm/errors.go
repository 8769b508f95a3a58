package vm

import "fmt"

// ErrorKind classifies fatal execution errors.
type ErrorKind uint8

const (
	ErrType     ErrorKind = iota // operand kinds don't fit the operation
	ErrDivZero                   // division or modulo by zero
	ErrBounds                    // array index outside the array
	ErrRegister                  // register operand outside the frame window
	ErrOverflow                  // call stack exceeded the depth limit
	ErrIO                        // the output sink failed
	ErrState                     // machine integrity violation, e.g. an undecodable opcode
)

// String returns a short label for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrType:
		return "type mismatch"
	case ErrDivZero:
		return "division by zero"
	case ErrBounds:
		return "index out of bounds"
	case ErrRegister:
		return "register out of range"
	case ErrOverflow:
		return "call stack overflow"
	case ErrIO:
		return "io error"
	case ErrState:
		return "machine state"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// RuntimeError is a fatal execution error. Execution stops at the
// instruction that raised it; the machine stays halted afterwards.
type RuntimeError struct {
	Kind ErrorKind
	PC   int // code index of the faulting instruction
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %04d: %s", e.PC, e.Msg)
}
