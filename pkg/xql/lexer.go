package xql

import (
	"strconv"
	"unicode/utf8"
)

// Lexer tokenizes a single ConfigXQL statement.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// currentPos returns the current position.
func (l *Lexer) currentPos() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// Tokenize converts the input into a slice of tokens ending with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	pos := l.currentPos()
	if l.atEOF() {
		return Token{Type: TokenEOF, Pos: pos}, nil
	}

	switch l.ch {
	case '=':
		return l.single(TokenAssign, pos), nil
	case '!':
		return l.single(TokenBang, pos), nil
	case ',':
		return l.single(TokenComma, pos), nil
	case '[':
		return l.single(TokenLBracket, pos), nil
	case ']':
		return l.single(TokenRBracket, pos), nil
	case '"':
		return l.readString(pos)
	case '-':
		return l.readNumber(pos)
	}

	switch {
	case isDigit(l.ch):
		return l.readNumber(pos)
	case isIdentStart(l.ch):
		ident := l.readIdentifier()
		if !utf8.ValidString(ident) {
			return Token{}, NewParseErrorf(pos, "identifier %q is not valid UTF-8", ident)
		}
		return Token{Type: TokenIdent, Literal: ident, Pos: pos}, nil
	default:
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		return Token{}, NewParseErrorf(pos, "unexpected character %q", r)
	}
}

func (l *Lexer) single(typ TokenType, pos Position) Token {
	tok := Token{Type: typ, Literal: string(l.ch), Pos: pos}
	l.readChar()
	return tok
}

// skipWhitespace skips spaces, tabs and line breaks.
func (l *Lexer) skipWhitespace() {
	for !l.atEOF() && (l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r') {
		l.readChar()
	}
}

// readIdentifier reads a bare key.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for !l.atEOF() && isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads an integer or float literal. A decimal point or an
// exponent makes it a float.
func (l *Lexer) readNumber(pos Position) (Token, error) {
	start := l.pos
	typ := TokenInt

	if l.ch == '-' {
		l.readChar()
		if !isDigit(l.ch) {
			return Token{}, NewParseError(pos, "expected digit after '-'")
		}
	}
	l.readDigits()

	if l.ch == '.' {
		typ = TokenFloat
		l.readChar()
		if !isDigit(l.ch) {
			return Token{}, NewParseError(l.currentPos(), "expected digit after decimal point")
		}
		l.readDigits()
	}

	if l.ch == 'e' || l.ch == 'E' {
		typ = TokenFloat
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return Token{}, NewParseError(l.currentPos(), "expected digit in exponent")
		}
		l.readDigits()
	}

	if !l.atEOF() && isIdentPart(l.ch) {
		return Token{}, NewParseErrorf(pos, "invalid numeric literal %q", l.input[start:l.pos+1])
	}

	return Token{Type: typ, Literal: l.input[start:l.pos], Pos: pos}, nil
}

func (l *Lexer) readDigits() {
	for !l.atEOF() && isDigit(l.ch) {
		l.readChar()
	}
}

// readString reads a double-quoted string and returns its decoded content.
// Escapes follow Go string literal rules.
func (l *Lexer) readString(pos Position) (Token, error) {
	start := l.pos
	l.readChar() // opening quote

	for {
		if l.atEOF() {
			return Token{}, NewParseError(pos, "unterminated string")
		}
		switch l.ch {
		case '\\':
			l.readChar()
			if l.atEOF() {
				return Token{}, NewParseError(pos, "unterminated string")
			}
		case '"':
			raw := l.input[start : l.pos+1]
			l.readChar() // closing quote
			// Unquote maps raw invalid bytes to U+FFFD, so check before and after.
			if !utf8.ValidString(raw) {
				return Token{}, NewParseErrorf(pos, "string literal %q is not valid UTF-8", raw)
			}
			s, err := strconv.Unquote(raw)
			if err != nil {
				return Token{}, NewParseErrorf(pos, "invalid string literal %s", raw)
			}
			if !utf8.ValidString(s) {
				return Token{}, NewParseErrorf(pos, "string literal %s is not valid UTF-8", raw)
			}
			return Token{Type: TokenString, Literal: s, Pos: pos}, nil
		}
		l.readChar()
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

// isIdentStart accepts ASCII letters, '_' and any byte of a multi-byte
// UTF-8 sequence.
func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_' || ch >= utf8.RuneSelf
}

func isIdentPart(ch byte) bool {
	switch ch {
	case '_', '.', '-', '/', ':':
		return true
	}
	return isLetter(ch) || isDigit(ch) || ch >= utf8.RuneSelf
}
