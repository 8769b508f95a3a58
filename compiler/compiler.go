package compiler

import (
	"fmt"

	"github.com/BrianSMitchell/Synapse-sub000/bytecode"
)

// DefaultRegisterCapacity is the per-frame register window limit used
// when no explicit capacity is configured.
const DefaultRegisterCapacity = 256

// scopeFrame is one lexical scope. base records the allocation
// frontier at scope entry so endScope can release the scope's
// registers in one step.
type scopeFrame struct {
	names map[string]int
	base  int
}

// loopFrame tracks the innermost enclosing loop during compilation.
type loopFrame struct {
	condStart int   // code index of the condition, continue jumps here
	breaks    []int // JUMP indices to patch to the loop exit
}

// funcScope is the register allocation state for one function body or
// for the top-level program.
type funcScope struct {
	next   int // allocation frontier: next free register
	high   int // high-water mark, becomes the frame window size
	scopes []scopeFrame
	loops  []loopFrame
	root   bool // true for the top-level program
}

// Compiler lowers a parsed program to a bytecode unit. Expressions
// compile post-order: every expression lands in a freshly allocated
// register at the current frontier and releases its operand
// temporaries before returning, so statement boundaries always see a
// clean frontier.
type Compiler struct {
	unit     *bytecode.Unit
	capacity int
	fnIndex  map[string]int
	fnDecls  []*FnDecl
	cur      *funcScope
	pos      Position // position of the node being compiled, for errors
}

// Compile lowers a program with the default register capacity.
func Compile(prog *Program) (*bytecode.Unit, error) {
	return CompileWithCapacity(prog, DefaultRegisterCapacity)
}

// CompileSource runs the whole front end on a source text: tokenize,
// parse, compile. The error is a *LexError, *ParseError or
// *CompileError describing the first problem found.
func CompileSource(input string) (*bytecode.Unit, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	prog, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	return Compile(prog)
}

// CompileWithCapacity lowers a program with an explicit per-frame
// register window limit. The returned unit is validated and its
// constant pool frozen.
func CompileWithCapacity(prog *Program, capacity int) (*bytecode.Unit, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("compiler: register capacity must be positive, got %d", capacity)
	}
	c := &Compiler{
		unit:     bytecode.NewUnit(),
		capacity: capacity,
		fnIndex:  make(map[string]int),
	}

	if err := c.collectDeclarations(prog); err != nil {
		return nil, err
	}
	for _, decl := range c.fnDecls {
		if err := c.compileFunction(decl); err != nil {
			return nil, err
		}
	}
	if err := c.compileTopLevel(prog); err != nil {
		return nil, err
	}

	c.unit.Freeze()
	if err := c.unit.Validate(); err != nil {
		return nil, err
	}
	return c.unit, nil
}

// collectDeclarations is the pre-pass over the top level: it fills the
// function table so calls can reference functions declared later, and
// assigns root window slots to top-level variables so function bodies
// can address them before the declaring statement has been compiled.
func (c *Compiler) collectDeclarations(prog *Program) error {
	slot := 0
	for _, stmt := range prog.Stmts {
		switch n := stmt.(type) {
		case *FnDecl:
			if _, dup := c.fnIndex[n.Name]; dup {
				return &CompileError{Pos: n.Pos(), Msg: fmt.Sprintf("function %q already defined", n.Name)}
			}
			seen := make(map[string]bool, len(n.Params))
			for _, p := range n.Params {
				if seen[p] {
					return &CompileError{Pos: n.Pos(), Msg: fmt.Sprintf("duplicate parameter %q in function %q", p, n.Name)}
				}
				seen[p] = true
			}
			idx := c.unit.AddFunction(bytecode.Function{Name: n.Name, Arity: len(n.Params)})
			c.fnIndex[n.Name] = idx
			c.fnDecls = append(c.fnDecls, n)
		case *Let:
			if _, ok := c.unit.Globals[n.Name]; !ok {
				c.unit.Globals[n.Name] = slot
				slot++
			}
		}
	}
	return nil
}

// compileFunction lowers one function body. Parameters occupy the
// first registers of the frame window; the body always ends with a
// return so execution cannot run past the function boundary.
func (c *Compiler) compileFunction(decl *FnDecl) error {
	idx := c.fnIndex[decl.Name]
	entry := c.unit.CurrentOffset()

	c.cur = &funcScope{
		next: len(decl.Params),
		high: len(decl.Params),
	}
	c.beginScope()
	for i, p := range decl.Params {
		c.cur.scopes[0].names[p] = i
	}

	for _, stmt := range decl.Body.Stmts {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	// Unconditional epilogue: forward jumps patched to the end of the
	// body must land on a return, never on the next function's entry.
	c.unit.Emit(bytecode.OpReturn, 0, 0, 0)
	c.endScope()

	c.unit.Functions[idx].Entry = entry
	c.unit.Functions[idx].Registers = c.cur.high
	return nil
}

// compileTopLevel lowers the top-level statements. Its frame is the
// root window; function declarations were already compiled by the
// earlier passes and are skipped here.
func (c *Compiler) compileTopLevel(prog *Program) error {
	c.unit.Entry = c.unit.CurrentOffset()
	c.cur = &funcScope{root: true}
	c.beginScope()
	for _, stmt := range prog.Stmts {
		if _, ok := stmt.(*FnDecl); ok {
			continue
		}
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.endScope()
	c.unit.MainRegisters = c.cur.high
	return nil
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (c *Compiler) compileStatement(stmt Stmt) error {
	c.pos = stmt.Pos()
	mark := c.cur.next

	switch s := stmt.(type) {
	case *Let:
		return c.compileLet(s)

	case *Assign:
		vr, err := c.compileExpr(s.Value)
		if err != nil {
			return err
		}
		if err := c.compileStore(s.Name, vr, s.Pos()); err != nil {
			return err
		}
		c.cur.next = mark
		return nil

	case *IndexAssign:
		tr, err := c.compileExpr(s.Target)
		if err != nil {
			return err
		}
		ir, err := c.compileExpr(s.Idx)
		if err != nil {
			return err
		}
		vr, err := c.compileExpr(s.Value)
		if err != nil {
			return err
		}
		c.unit.Emit(bytecode.OpStoreArray, tr, ir, vr)
		c.cur.next = mark
		return nil

	case *ExprStmt:
		if _, err := c.compileExpr(s.Expr); err != nil {
			return err
		}
		c.cur.next = mark
		return nil

	case *Print:
		vr, err := c.compileExpr(s.Value)
		if err != nil {
			return err
		}
		c.unit.Emit(bytecode.OpPrint, vr, 0, 0)
		c.cur.next = mark
		return nil

	case *Return:
		if s.Value == nil {
			c.unit.Emit(bytecode.OpReturn, 0, 0, 0)
			return nil
		}
		vr, err := c.compileExpr(s.Value)
		if err != nil {
			return err
		}
		c.unit.Emit(bytecode.OpReturn, vr, 1, 0)
		c.cur.next = mark
		return nil

	case *Block:
		return c.compileBlock(s)

	case *If:
		return c.compileIf(s)

	case *While:
		return c.compileWhile(s)

	case *Break:
		if len(c.cur.loops) == 0 {
			return &CompileError{Pos: s.Pos(), Msg: "break outside loop"}
		}
		loop := &c.cur.loops[len(c.cur.loops)-1]
		loop.breaks = append(loop.breaks, c.unit.EmitJump(bytecode.OpJump, 0))
		return nil

	case *Continue:
		if len(c.cur.loops) == 0 {
			return &CompileError{Pos: s.Pos(), Msg: "continue outside loop"}
		}
		c.unit.EmitLoop(c.cur.loops[len(c.cur.loops)-1].condStart)
		return nil

	case *FnDecl:
		return &CompileError{Pos: s.Pos(), Msg: "functions may only be declared at the top level"}

	default:
		return &CompileError{Pos: stmt.Pos(), Msg: fmt.Sprintf("unsupported statement type %T", stmt)}
	}
}

// compileLet declares a variable in the current scope. The initial
// value is compiled directly into the variable's home register, which
// sits at the allocation frontier.
func (c *Compiler) compileLet(s *Let) error {
	scope := &c.cur.scopes[len(c.cur.scopes)-1]
	if _, dup := scope.names[s.Name]; dup {
		return &CompileError{Pos: s.Pos(), Msg: fmt.Sprintf("duplicate declaration of %q in this scope", s.Name)}
	}
	home, err := c.compileExpr(s.Value)
	if err != nil {
		return err
	}
	scope.names[s.Name] = int(home)
	c.cur.next = int(home) + 1
	return nil
}

func (c *Compiler) compileBlock(b *Block) error {
	c.beginScope()
	for _, stmt := range b.Stmts {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.endScope()
	return nil
}

func (c *Compiler) compileIf(s *If) error {
	mark := c.cur.next
	cond, err := c.compileExpr(s.Cond)
	if err != nil {
		return err
	}
	elseJump := c.unit.EmitJump(bytecode.OpJumpIfFalse, cond)
	c.cur.next = mark

	if err := c.compileBlock(s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		c.unit.PatchJump(elseJump)
		return nil
	}
	endJump := c.unit.EmitJump(bytecode.OpJump, 0)
	c.unit.PatchJump(elseJump)
	if err := c.compileStatement(s.Else); err != nil {
		return err
	}
	c.unit.PatchJump(endJump)
	return nil
}

func (c *Compiler) compileWhile(s *While) error {
	condStart := c.unit.CurrentOffset()
	mark := c.cur.next
	cond, err := c.compileExpr(s.Cond)
	if err != nil {
		return err
	}
	exitJump := c.unit.EmitJump(bytecode.OpJumpIfFalse, cond)
	c.cur.next = mark

	c.cur.loops = append(c.cur.loops, loopFrame{condStart: condStart})
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	c.unit.EmitLoop(condStart)

	loop := c.cur.loops[len(c.cur.loops)-1]
	c.cur.loops = c.cur.loops[:len(c.cur.loops)-1]
	c.unit.PatchJump(exitJump)
	for _, at := range loop.breaks {
		c.unit.PatchJump(at)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// compileExpr lowers an expression and returns the register holding
// its result. The result register is always freshly allocated at the
// frontier; any registers used for sub-expressions are released before
// returning.
func (c *Compiler) compileExpr(expr Expr) (int32, error) {
	c.pos = expr.Pos()

	switch e := expr.(type) {
	case *IntLit:
		return c.compileConst(bytecode.IntConstant(e.Value))
	case *FloatLit:
		return c.compileConst(bytecode.FloatConstant(e.Value))
	case *StringLit:
		return c.compileConst(bytecode.StringConstant(e.Value))
	case *BoolLit:
		return c.compileConst(bytecode.BoolConstant(e.Value))
	case *NoneLit:
		return c.compileConst(bytecode.NoneConstant())

	case *Ident:
		return c.compileIdent(e)

	case *Unary:
		dst, err := c.alloc()
		if err != nil {
			return 0, err
		}
		src, err := c.compileExpr(e.Operand)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case TokenMinus:
			c.unit.Emit(bytecode.OpNeg, dst, src, 0)
		case TokenNot:
			c.unit.Emit(bytecode.OpNot, dst, src, 0)
		default:
			return 0, &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("unsupported unary operator %s", e.Op)}
		}
		c.cur.next = int(dst) + 1
		return dst, nil

	case *Binary:
		return c.compileBinary(e)

	case *ArrayLit:
		dst, err := c.alloc()
		if err != nil {
			return 0, err
		}
		base := int32(c.cur.next)
		for _, el := range e.Elements {
			if _, err := c.compileExpr(el); err != nil {
				return 0, err
			}
		}
		c.unit.Emit(bytecode.OpLoadArray, dst, base, int32(len(e.Elements)))
		c.cur.next = int(dst) + 1
		return dst, nil

	case *Index:
		dst, err := c.alloc()
		if err != nil {
			return 0, err
		}
		arr, err := c.compileExpr(e.Target)
		if err != nil {
			return 0, err
		}
		idx, err := c.compileExpr(e.Idx)
		if err != nil {
			return 0, err
		}
		c.unit.Emit(bytecode.OpArrayIndex, dst, arr, idx)
		c.cur.next = int(dst) + 1
		return dst, nil

	case *Call:
		return c.compileCall(e)

	default:
		return 0, &CompileError{Pos: expr.Pos(), Msg: fmt.Sprintf("unsupported expression type %T", expr)}
	}
}

func (c *Compiler) compileConst(k bytecode.Constant) (int32, error) {
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	idx := c.unit.AddConstant(k)
	c.unit.Emit(bytecode.OpLoadConst, dst, int32(idx), 0)
	return dst, nil
}

func (c *Compiler) compileIdent(e *Ident) (int32, error) {
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	if home, ok := c.resolveLocal(e.Name); ok {
		c.unit.Emit(bytecode.OpLoadVar, dst, int32(home), 0)
		return dst, nil
	}
	if !c.cur.root {
		if slot, ok := c.unit.Globals[e.Name]; ok {
			c.unit.Emit(bytecode.OpLoadGlobal, dst, int32(slot), 0)
			return dst, nil
		}
	}
	return 0, &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("undefined variable %q", e.Name)}
}

func (c *Compiler) compileBinary(e *Binary) (int32, error) {
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	left, err := c.compileExpr(e.Left)
	if err != nil {
		return 0, err
	}
	right, err := c.compileExpr(e.Right)
	if err != nil {
		return 0, err
	}

	var op bytecode.Opcode
	switch e.Op {
	case TokenPlus:
		op = bytecode.OpAdd
	case TokenMinus:
		op = bytecode.OpSub
	case TokenStar:
		op = bytecode.OpMul
	case TokenSlash:
		op = bytecode.OpDiv
	case TokenPercent:
		op = bytecode.OpMod
	case TokenEq:
		op = bytecode.OpCmpEq
	case TokenNotEq:
		op = bytecode.OpCmpNe
	case TokenLess:
		op = bytecode.OpCmpLt
	case TokenLessEq:
		op = bytecode.OpCmpLe
	case TokenGreater:
		op = bytecode.OpCmpGt
	case TokenGreaterEq:
		op = bytecode.OpCmpGe
	case TokenAnd:
		op = bytecode.OpAnd
	case TokenOr:
		op = bytecode.OpOr
	default:
		return 0, &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("unsupported binary operator %s", e.Op)}
	}
	c.unit.Emit(op, dst, left, right)
	c.cur.next = int(dst) + 1
	return dst, nil
}

// compileCall lowers a function call. Arguments are compiled into
// consecutive registers directly above the result register so the VM
// can copy the whole argument window in one pass. len is a builtin
// unless a user function shadows it.
func (c *Compiler) compileCall(e *Call) (int32, error) {
	idx, isFunc := c.fnIndex[e.Name]
	if !isFunc && e.Name == "len" {
		if len(e.Args) != 1 {
			return 0, &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("len expects 1 argument, got %d", len(e.Args))}
		}
		dst, err := c.alloc()
		if err != nil {
			return 0, err
		}
		src, err := c.compileExpr(e.Args[0])
		if err != nil {
			return 0, err
		}
		c.unit.Emit(bytecode.OpArrayLen, dst, src, 0)
		c.cur.next = int(dst) + 1
		return dst, nil
	}
	if !isFunc {
		return 0, &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("unknown function %q", e.Name)}
	}

	fn := c.unit.Functions[idx]
	if len(e.Args) != fn.Arity {
		return 0, &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("function %q expects %d arguments, got %d", e.Name, fn.Arity, len(e.Args))}
	}

	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	argBase := int32(c.cur.next)
	for _, arg := range e.Args {
		if _, err := c.compileExpr(arg); err != nil {
			return 0, err
		}
	}
	c.unit.Emit(bytecode.OpCall, dst, int32(idx), argBase)
	c.cur.next = int(dst) + 1
	return dst, nil
}

// compileStore resolves an assignment target and emits the store.
func (c *Compiler) compileStore(name string, src int32, pos Position) error {
	if home, ok := c.resolveLocal(name); ok {
		c.unit.Emit(bytecode.OpStoreVar, int32(home), src, 0)
		return nil
	}
	if !c.cur.root {
		if slot, ok := c.unit.Globals[name]; ok {
			c.unit.Emit(bytecode.OpStoreGlobal, int32(slot), src, 0)
			return nil
		}
	}
	return &CompileError{Pos: pos, Msg: fmt.Sprintf("undefined variable %q", name)}
}

// ----------------------------------------------------------------------------
// Scope and register management
// ----------------------------------------------------------------------------

func (c *Compiler) beginScope() {
	c.cur.scopes = append(c.cur.scopes, scopeFrame{
		names: make(map[string]int),
		base:  c.cur.next,
	})
}

// endScope drops the innermost scope and releases its registers by
// winding the frontier back to where the scope opened.
func (c *Compiler) endScope() {
	top := c.cur.scopes[len(c.cur.scopes)-1]
	c.cur.scopes = c.cur.scopes[:len(c.cur.scopes)-1]
	c.cur.next = top.base
}

// resolveLocal walks the scope chain innermost-first.
func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.cur.scopes) - 1; i >= 0; i-- {
		if home, ok := c.cur.scopes[i].names[name]; ok {
			return home, true
		}
	}
	return 0, false
}

// alloc claims the register at the frontier. Exceeding the window
// capacity is a compile error: frames never spill.
func (c *Compiler) alloc() (int32, error) {
	if c.cur.next >= c.capacity {
		return 0, &CompileError{Pos: c.pos, Msg: fmt.Sprintf("expression needs more than %d registers", c.capacity)}
	}
	r := c.cur.next
	c.cur.next++
	if c.cur.next > c.cur.high {
		c.cur.high = c.cur.next
	}
	return int32(r), nil
}
