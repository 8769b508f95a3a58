package compiler

import "fmt"

// ---------------------------------------------------------------------------
// AST: abstract syntax tree for Synapse
// ---------------------------------------------------------------------------
//
// The node set is a closed sum: Expr and Stmt are sealed by unexported
// marker methods, so every consumer can switch over the variants
// exhaustively. Nodes own their children outright (tree ownership, no
// sharing) and are never mutated after the parser returns them.

// Position represents a source location.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLit represents an integer literal.
type IntLit struct {
	PosVal Position
	Value  int64
}

func (n *IntLit) Pos() Position { return n.PosVal }
func (n *IntLit) node()         {}
func (n *IntLit) expr()         {}

// FloatLit represents a floating-point literal.
type FloatLit struct {
	PosVal Position
	Value  float64
}

func (n *FloatLit) Pos() Position { return n.PosVal }
func (n *FloatLit) node()         {}
func (n *FloatLit) expr()         {}

// BoolLit represents the literals 'true' and 'false'.
type BoolLit struct {
	PosVal Position
	Value  bool
}

func (n *BoolLit) Pos() Position { return n.PosVal }
func (n *BoolLit) node()         {}
func (n *BoolLit) expr()         {}

// StringLit represents a string literal.
type StringLit struct {
	PosVal Position
	Value  string
}

func (n *StringLit) Pos() Position { return n.PosVal }
func (n *StringLit) node()         {}
func (n *StringLit) expr()         {}

// NoneLit represents the 'none' literal.
type NoneLit struct {
	PosVal Position
}

func (n *NoneLit) Pos() Position { return n.PosVal }
func (n *NoneLit) node()         {}
func (n *NoneLit) expr()         {}

// Ident represents a variable reference.
type Ident struct {
	PosVal Position
	Name   string
}

func (n *Ident) Pos() Position { return n.PosVal }
func (n *Ident) node()         {}
func (n *Ident) expr()         {}

// Unary represents a prefix operation (-x, not x).
type Unary struct {
	PosVal  Position
	Op      TokenKind // TokenMinus or TokenNot
	Operand Expr
}

func (n *Unary) Pos() Position { return n.PosVal }
func (n *Unary) node()         {}
func (n *Unary) expr()         {}

// Binary represents an infix operation (a + b, a == b, a and b).
type Binary struct {
	PosVal Position
	Op     TokenKind
	Left   Expr
	Right  Expr
}

func (n *Binary) Pos() Position { return n.PosVal }
func (n *Binary) node()         {}
func (n *Binary) expr()         {}

// ArrayLit represents an array literal [a, b, c].
type ArrayLit struct {
	PosVal   Position
	Elements []Expr
}

func (n *ArrayLit) Pos() Position { return n.PosVal }
func (n *ArrayLit) node()         {}
func (n *ArrayLit) expr()         {}

// Index represents an index access (arr[i]).
type Index struct {
	PosVal Position
	Target Expr
	Idx    Expr
}

func (n *Index) Pos() Position { return n.PosVal }
func (n *Index) node()         {}
func (n *Index) expr()         {}

// Call represents a function call by name (f(a, b)).
type Call struct {
	PosVal Position
	Name   string
	Args   []Expr
}

func (n *Call) Pos() Position { return n.PosVal }
func (n *Call) node()         {}
func (n *Call) expr()         {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Let represents a variable declaration (let x = expr).
type Let struct {
	PosVal Position
	Name   string
	Value  Expr
}

func (n *Let) Pos() Position { return n.PosVal }
func (n *Let) node()         {}
func (n *Let) stmt()         {}

// Assign represents an assignment to a declared variable (x = expr).
type Assign struct {
	PosVal Position
	Name   string
	Value  Expr
}

func (n *Assign) Pos() Position { return n.PosVal }
func (n *Assign) node()         {}
func (n *Assign) stmt()         {}

// IndexAssign represents an assignment through an index (arr[i] = expr).
type IndexAssign struct {
	PosVal Position
	Target Expr
	Idx    Expr
	Value  Expr
}

func (n *IndexAssign) Pos() Position { return n.PosVal }
func (n *IndexAssign) node()         {}
func (n *IndexAssign) stmt()         {}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	PosVal Position
	Expr   Expr
}

func (n *ExprStmt) Pos() Position { return n.PosVal }
func (n *ExprStmt) node()         {}
func (n *ExprStmt) stmt()         {}

// Block represents a braced statement sequence; it opens a lexical scope.
type Block struct {
	PosVal Position
	Stmts  []Stmt
}

func (n *Block) Pos() Position { return n.PosVal }
func (n *Block) node()         {}
func (n *Block) stmt()         {}

// If represents a conditional (if cond { } else { }). Else is nil, a
// *Block, or a nested *If for else-if chains.
type If struct {
	PosVal Position
	Cond   Expr
	Then   *Block
	Else   Stmt
}

func (n *If) Pos() Position { return n.PosVal }
func (n *If) node()         {}
func (n *If) stmt()         {}

// While represents a loop (while cond { }).
type While struct {
	PosVal Position
	Cond   Expr
	Body   *Block
}

func (n *While) Pos() Position { return n.PosVal }
func (n *While) node()         {}
func (n *While) stmt()         {}

// Break exits the innermost enclosing loop.
type Break struct {
	PosVal Position
}

func (n *Break) Pos() Position { return n.PosVal }
func (n *Break) node()         {}
func (n *Break) stmt()         {}

// Continue jumps to the condition of the innermost enclosing loop.
type Continue struct {
	PosVal Position
}

func (n *Continue) Pos() Position { return n.PosVal }
func (n *Continue) node()         {}
func (n *Continue) stmt()         {}

// FnDecl represents a function definition (fn name(a, b) { }).
type FnDecl struct {
	PosVal Position
	Name   string
	Params []string
	Body   *Block
}

func (n *FnDecl) Pos() Position { return n.PosVal }
func (n *FnDecl) node()         {}
func (n *FnDecl) stmt()         {}

// Return represents a return statement, with or without a value.
type Return struct {
	PosVal Position
	Value  Expr // nil for a bare return
}

func (n *Return) Pos() Position { return n.PosVal }
func (n *Return) node()         {}
func (n *Return) stmt()         {}

// Print represents a print statement (print expr).
type Print struct {
	PosVal Position
	Value  Expr
}

func (n *Print) Pos() Position { return n.PosVal }
func (n *Print) node()         {}
func (n *Print) stmt()         {}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// Program represents a complete compilation unit's source.
type Program struct {
	Stmts []Stmt
}

func (n *Program) Pos() Position {
	if len(n.Stmts) > 0 {
		return n.Stmts[0].Pos()
	}
	return Position{Line: 1, Column: 1}
}

func (n *Program) node() {}
