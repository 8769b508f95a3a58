package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token kinds for the Synapse lexer
// ---------------------------------------------------------------------------

// TokenKind represents the kind of a token.
type TokenKind int

const (
	// Special tokens
	TokenEOF TokenKind = iota
	TokenError

	// Literals
	TokenInt    // 42
	TokenFloat  // 3.14
	TokenString // "hello"
	TokenIdent  // foo, bar_2

	// Keywords
	TokenLet
	TokenFn
	TokenReturn
	TokenIf
	TokenElse
	TokenWhile
	TokenBreak
	TokenContinue
	TokenPrint
	TokenTrue
	TokenFalse
	TokenNone
	TokenAnd
	TokenOr
	TokenNot

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenAssign    // =
	TokenEq        // ==
	TokenNotEq     // !=
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenComma     // ,
	TokenSemicolon // ;
)

var tokenNames = map[TokenKind]string{
	TokenEOF:       "EOF",
	TokenError:     "ERROR",
	TokenInt:       "INT",
	TokenFloat:     "FLOAT",
	TokenString:    "STRING",
	TokenIdent:     "IDENT",
	TokenLet:       "let",
	TokenFn:        "fn",
	TokenReturn:    "return",
	TokenIf:        "if",
	TokenElse:      "else",
	TokenWhile:     "while",
	TokenBreak:     "break",
	TokenContinue:  "continue",
	TokenPrint:     "print",
	TokenTrue:      "true",
	TokenFalse:     "false",
	TokenNone:      "none",
	TokenAnd:       "and",
	TokenOr:        "or",
	TokenNot:       "not",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
	TokenPercent:   "%",
	TokenAssign:    "=",
	TokenEq:        "==",
	TokenNotEq:     "!=",
	TokenLess:      "<",
	TokenLessEq:    "<=",
	TokenGreater:   ">",
	TokenGreaterEq: ">=",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenComma:     ",",
	TokenSemicolon: ";",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(k))
}

// Token represents a lexical token. Tokens are immutable once produced:
// the lexer creates them, the parser consumes them, nothing mutates them.
type Token struct {
	Kind   TokenKind
	Lexeme string // the raw text
	Line   int    // 1-based line number
	Column int    // 1-based column number
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return "EOF"
	}
	if t.Kind == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Lexeme)
	}
	if len(t.Lexeme) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Kind, t.Lexeme[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Lexeme)
}

// Pos returns the token's source position.
func (t Token) Pos() Position {
	return Position{Line: t.Line, Column: t.Column}
}

// Reserved words mapped to their token kinds.
var keywords = map[string]TokenKind{
	"let":      TokenLet,
	"fn":       TokenFn,
	"return":   TokenReturn,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"print":    TokenPrint,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"none":     TokenNone,
	"and":      TokenAnd,
	"or":       TokenOr,
	"not":      TokenNot,
}

// LookupIdent returns the keyword kind for ident, or TokenIdent if it is
// not a reserved word.
func LookupIdent(ident string) TokenKind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return TokenIdent
}
