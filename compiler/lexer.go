package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for Synapse source text
// ---------------------------------------------------------------------------

// Lexer tokenizes Synapse source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line of the current character (1-based)
	col     int  // column of the current character (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar advances to the next character, tracking line and column.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
	} else {
		r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
		l.ch = r
		l.pos = l.readPos
		l.readPos += size
	}
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// token builds a token at the given position.
func (l *Lexer) token(kind TokenKind, lexeme string, line, col int) Token {
	return Token{Kind: kind, Lexeme: lexeme, Line: line, Column: col}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	if tok := l.skipWhitespaceAndComments(); tok != nil {
		return *tok
	}

	line, col := l.line, l.col

	switch {
	case l.ch == 0:
		return l.token(TokenEOF, "", line, col)

	case l.ch == '(':
		l.readChar()
		return l.token(TokenLParen, "(", line, col)

	case l.ch == ')':
		l.readChar()
		return l.token(TokenRParen, ")", line, col)

	case l.ch == '{':
		l.readChar()
		return l.token(TokenLBrace, "{", line, col)

	case l.ch == '}':
		l.readChar()
		return l.token(TokenRBrace, "}", line, col)

	case l.ch == '[':
		l.readChar()
		return l.token(TokenLBracket, "[", line, col)

	case l.ch == ']':
		l.readChar()
		return l.token(TokenRBracket, "]", line, col)

	case l.ch == ',':
		l.readChar()
		return l.token(TokenComma, ",", line, col)

	case l.ch == ';':
		l.readChar()
		return l.token(TokenSemicolon, ";", line, col)

	case l.ch == '+':
		l.readChar()
		return l.token(TokenPlus, "+", line, col)

	case l.ch == '-':
		l.readChar()
		return l.token(TokenMinus, "-", line, col)

	case l.ch == '*':
		l.readChar()
		return l.token(TokenStar, "*", line, col)

	case l.ch == '/':
		l.readChar()
		return l.token(TokenSlash, "/", line, col)

	case l.ch == '%':
		l.readChar()
		return l.token(TokenPercent, "%", line, col)

	case l.ch == '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenEq, "==", line, col)
		}
		return l.token(TokenAssign, "=", line, col)

	case l.ch == '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenNotEq, "!=", line, col)
		}
		return l.token(TokenError, "unexpected character: !", line, col)

	case l.ch == '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenLessEq, "<=", line, col)
		}
		return l.token(TokenLess, "<", line, col)

	case l.ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenGreaterEq, ">=", line, col)
		}
		return l.token(TokenGreater, ">", line, col)

	case l.ch == '"':
		return l.readString(line, col)

	case isDigit(l.ch):
		return l.readNumber(line, col)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(line, col)

	default:
		ch := l.ch
		l.readChar()
		return l.token(TokenError, fmt.Sprintf("unexpected character: %c", ch), line, col)
	}
}

// skipWhitespaceAndComments skips whitespace, // line comments, and
// /* */ block comments. Returns an error token if a block comment is
// left unterminated, nil otherwise.
func (l *Lexer) skipWhitespaceAndComments() *Token {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			line, col := l.line, l.col
			l.readChar() // consume /
			l.readChar() // consume *
			for {
				if l.ch == 0 {
					tok := l.token(TokenError, "unterminated block comment", line, col)
					return &tok
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // consume *
					l.readChar() // consume /
					break
				}
				l.readChar()
			}
			continue
		}

		return nil
	}
}

// readString reads a double-quoted string literal with escape sequences.
func (l *Lexer) readString(line, col int) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 {
			return l.token(TokenError, "unterminated string", line, col)
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\\':
				sb.WriteRune('\\')
			case '"':
				sb.WriteRune('"')
			case 0:
				return l.token(TokenError, "unterminated string", line, col)
			default:
				return l.token(TokenError, fmt.Sprintf("invalid escape sequence: \\%c", l.ch), line, col)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing "

	return l.token(TokenString, sb.String(), line, col)
}

// readNumber reads an integer or float literal. A float requires digits
// on both sides of the dot; "1." lexes as INT(1) followed by an error
// from whatever the dot turns out to be.
func (l *Lexer) readNumber(line, col int) Token {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume .
		for isDigit(l.ch) {
			l.readChar()
		}
		return l.token(TokenFloat, l.input[start:l.pos], line, col)
	}

	return l.token(TokenInt, l.input[start:l.pos], line, col)
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(line, col int) Token {
	start := l.pos

	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	lexeme := l.input[start:l.pos]
	return l.token(LookupIdent(lexeme), lexeme, line, col)
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize scans the whole input eagerly and returns the token sequence,
// ending with an EOF token. The first malformed token aborts the scan
// with a *LexError; no recovery is attempted.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Kind == TokenError {
			return nil, &LexError{Pos: tok.Pos(), Msg: tok.Lexeme}
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}
