package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Front-end error types
// ---------------------------------------------------------------------------
//
// Each pipeline stage fails with its own error type so hosts can tell the
// stages apart. Every stage is all-or-nothing: the first error aborts the
// stage and is returned to the caller; nothing is swallowed and nothing
// recovers.

// LexError reports a malformed token.
type LexError struct {
	Pos Position
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %s: %s", e.Pos, e.Msg)
}

// ParseError reports a grammar violation: the parser expected one kind of
// token and found another.
type ParseError struct {
	Expected string
	Found    Token
	Pos      Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// CompileError reports a semantic issue resolvable at compile time:
// an undefined name, a call arity mismatch, register exhaustion.
type CompileError struct {
	Pos Position
	Msg string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %s: %s", e.Pos, e.Msg)
}
