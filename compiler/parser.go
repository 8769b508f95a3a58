package compiler

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent parser for Synapse
// ---------------------------------------------------------------------------
//
// The parser consumes an eagerly produced token slice with one token of
// lookahead and no backtracking: every production either consumes tokens
// and returns a node, or fails with a *ParseError that aborts the whole
// parse. Binary expressions use precedence climbing over the binaryPrec
// table.

// Operator precedence levels, lowest binds loosest.
var binaryPrec = map[TokenKind]int{
	TokenOr:        1,
	TokenAnd:       2,
	TokenEq:        3,
	TokenNotEq:     3,
	TokenLess:      4,
	TokenLessEq:    4,
	TokenGreater:   4,
	TokenGreaterEq: 4,
	TokenPlus:      5,
	TokenMinus:     5,
	TokenStar:      6,
	TokenSlash:     6,
	TokenPercent:   6,
}

// Parser parses a token sequence into an AST.
type Parser struct {
	tokens []Token
	pos    int // index of the token after peek
	cur    Token
	peek   Token
}

// NewParser creates a parser over the given tokens. The slice is expected
// to end with an EOF token, as produced by Tokenize.
func NewParser(tokens []Token) *Parser {
	p := &Parser{tokens: tokens}
	// Fill cur and peek.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse consumes the whole token sequence and returns the program AST.
func Parse(tokens []Token) (*Program, error) {
	p := NewParser(tokens)
	return p.ParseProgram()
}

// nextToken advances the cursor by one token.
func (p *Parser) nextToken() {
	p.cur = p.peek
	if p.pos < len(p.tokens) {
		p.peek = p.tokens[p.pos]
		p.pos++
	} else {
		p.peek = Token{Kind: TokenEOF, Line: p.cur.Line, Column: p.cur.Column}
	}
}

// curTokenIs checks if the current token is of the given kind.
func (p *Parser) curTokenIs(k TokenKind) bool {
	return p.cur.Kind == k
}

// peekTokenIs checks if the peek token is of the given kind.
func (p *Parser) peekTokenIs(k TokenKind) bool {
	return p.peek.Kind == k
}

// expect consumes the current token if it matches, or fails.
func (p *Parser) expect(k TokenKind) (Token, error) {
	if !p.curTokenIs(k) {
		return Token{}, p.errExpected(k.String())
	}
	tok := p.cur
	p.nextToken()
	return tok, nil
}

// errExpected builds a ParseError pointing at the current token.
func (p *Parser) errExpected(what string) error {
	return &ParseError{Expected: what, Found: p.cur, Pos: p.cur.Pos()}
}

// skipSemicolons consumes optional statement separators.
func (p *Parser) skipSemicolons() {
	for p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	p.skipSemicolons()
	for !p.curTokenIs(TokenEOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
		p.skipSemicolons()
	}
	return prog, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.cur.Kind {
	case TokenLet:
		return p.parseLet()
	case TokenFn:
		return p.parseFnDecl()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenBreak:
		tok := p.cur
		p.nextToken()
		return &Break{PosVal: tok.Pos()}, nil
	case TokenContinue:
		tok := p.cur
		p.nextToken()
		return &Continue{PosVal: tok.Pos()}, nil
	case TokenReturn:
		return p.parseReturn()
	case TokenPrint:
		return p.parsePrint()
	case TokenLBrace:
		return p.parseBlock()
	default:
		return p.parseExprOrAssign()
	}
}

// parseLet parses: let IDENT = expr
func (p *Parser) parseLet() (Stmt, error) {
	tok := p.cur
	p.nextToken()
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Let{PosVal: tok.Pos(), Name: name.Lexeme, Value: value}, nil
}

// parseFnDecl parses: fn IDENT ( params ) block
func (p *Parser) parseFnDecl() (Stmt, error) {
	tok := p.cur
	p.nextToken()
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var params []string
	if !p.curTokenIs(TokenRParen) {
		for {
			param, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			params = append(params, param.Lexeme)
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FnDecl{PosVal: tok.Pos(), Name: name.Lexeme, Params: params, Body: body}, nil
}

// parseIf parses: if expr block (else (if ... | block))?
func (p *Parser) parseIf() (Stmt, error) {
	tok := p.cur
	p.nextToken()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseStmt Stmt
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if p.curTokenIs(TokenIf) {
			elseStmt, err = p.parseIf()
		} else {
			elseStmt, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
	}
	return &If{PosVal: tok.Pos(), Cond: cond, Then: then, Else: elseStmt}, nil
}

// parseWhile parses: while expr block
func (p *Parser) parseWhile() (Stmt, error) {
	tok := p.cur
	p.nextToken()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &While{PosVal: tok.Pos(), Cond: cond, Body: body}, nil
}

// parseReturn parses: return expr?  The value is omitted when the next
// token cannot start an expression (end of block, separator, EOF).
func (p *Parser) parseReturn() (Stmt, error) {
	tok := p.cur
	p.nextToken()
	if p.curTokenIs(TokenRBrace) || p.curTokenIs(TokenSemicolon) || p.curTokenIs(TokenEOF) {
		return &Return{PosVal: tok.Pos()}, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Return{PosVal: tok.Pos(), Value: value}, nil
}

// parsePrint parses: print expr
func (p *Parser) parsePrint() (Stmt, error) {
	tok := p.cur
	p.nextToken()
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Print{PosVal: tok.Pos(), Value: value}, nil
}

// parseBlock parses: { stmt* }
func (p *Parser) parseBlock() (*Block, error) {
	tok, err := p.expect(TokenLBrace)
	if err != nil {
		return nil, err
	}
	block := &Block{PosVal: tok.Pos()}
	p.skipSemicolons()
	for !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenEOF) {
			return nil, p.errExpected("}")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
		p.skipSemicolons()
	}
	p.nextToken() // consume }
	return block, nil
}

// parseExprOrAssign parses an expression statement, turning it into an
// assignment when followed by '='.
func (p *Parser) parseExprOrAssign() (Stmt, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if !p.curTokenIs(TokenAssign) {
		return &ExprStmt{PosVal: expr.Pos(), Expr: expr}, nil
	}
	assignTok := p.cur
	p.nextToken()
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	switch target := expr.(type) {
	case *Ident:
		return &Assign{PosVal: target.PosVal, Name: target.Name, Value: value}, nil
	case *Index:
		return &IndexAssign{PosVal: target.PosVal, Target: target.Target, Idx: target.Idx, Value: value}, nil
	default:
		return nil, &ParseError{Expected: "assignable target", Found: assignTok, Pos: expr.Pos()}
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// parseExpression parses a full expression at the lowest precedence.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseBinaryExpr(1)
}

// parseBinaryExpr climbs the precedence table: it parses a unary operand,
// then folds in binary operators of at least minPrec, recursing one level
// tighter for the right side so operators stay left-associative.
func (p *Parser) parseBinaryExpr(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		prec, ok := binaryPrec[p.cur.Kind]
		if !ok || prec < minPrec {
			return left, nil
		}
		op := p.cur
		p.nextToken()
		right, err := p.parseBinaryExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{PosVal: op.Pos(), Op: op.Kind, Left: left, Right: right}
	}
}

// parseUnary parses prefix operators (- and not), which bind tighter than
// any binary operator but looser than call/index.
func (p *Parser) parseUnary() (Expr, error) {
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenNot) {
		op := p.cur
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{PosVal: op.Pos(), Op: op.Kind, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any number of
// index accesses.
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.curTokenIs(TokenLBracket) {
		tok := p.cur
		p.nextToken()
		idx, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRBracket); err != nil {
			return nil, err
		}
		expr = &Index{PosVal: tok.Pos(), Target: expr, Idx: idx}
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.cur.Kind {
	case TokenInt:
		tok := p.cur
		p.nextToken()
		value, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, &ParseError{Expected: "integer in range", Found: tok, Pos: tok.Pos()}
		}
		return &IntLit{PosVal: tok.Pos(), Value: value}, nil

	case TokenFloat:
		tok := p.cur
		p.nextToken()
		value, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, &ParseError{Expected: "float literal", Found: tok, Pos: tok.Pos()}
		}
		return &FloatLit{PosVal: tok.Pos(), Value: value}, nil

	case TokenString:
		tok := p.cur
		p.nextToken()
		return &StringLit{PosVal: tok.Pos(), Value: tok.Lexeme}, nil

	case TokenTrue, TokenFalse:
		tok := p.cur
		p.nextToken()
		return &BoolLit{PosVal: tok.Pos(), Value: tok.Kind == TokenTrue}, nil

	case TokenNone:
		tok := p.cur
		p.nextToken()
		return &NoneLit{PosVal: tok.Pos()}, nil

	case TokenIdent:
		tok := p.cur
		p.nextToken()
		if p.curTokenIs(TokenLParen) {
			return p.parseCall(tok)
		}
		return &Ident{PosVal: tok.Pos(), Name: tok.Lexeme}, nil

	case TokenLBracket:
		return p.parseArrayLit()

	case TokenLParen:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.errExpected("expression")
	}
}

// parseCall parses the argument list of a call; the callee name token has
// already been consumed.
func (p *Parser) parseCall(name Token) (Expr, error) {
	p.nextToken() // consume (

	var args []Expr
	if !p.curTokenIs(TokenRParen) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &Call{PosVal: name.Pos(), Name: name.Lexeme, Args: args}, nil
}

// parseArrayLit parses: [ expr, expr, ... ]
func (p *Parser) parseArrayLit() (Expr, error) {
	tok := p.cur
	p.nextToken() // consume [

	lit := &ArrayLit{PosVal: tok.Pos()}
	if !p.curTokenIs(TokenRBracket) {
		for {
			elem, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, elem)
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return nil, err
	}
	return lit, nil
}
