// Package xql implements ConfigXQL, the statement language used to read and
// write entries of a configuration tree.
//
// A statement is one of:
//
//	key = literal    assignment
//	key              retrieval, fails if key is absent
//	key!             safe retrieval, yields null if key is absent
//	delete key       removal
//
// Literals are null, true, false, integers, floats, double-quoted strings and
// bracketed lists of literals, nested to any depth.
package xql

import "fmt"

// TokenType identifies the type of a lexical token.
type TokenType int

// Token types.
const (
	TokenEOF TokenType = iota
	TokenIllegal

	TokenIdent  // items, db.host
	TokenInt    // 42, -7
	TokenFloat  // 3.14, -1e9
	TokenString // "alice"

	TokenAssign   // =
	TokenBang     // !
	TokenComma    // ,
	TokenLBracket // [
	TokenRBracket // ]
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "ILLEGAL"
	case TokenIdent:
		return "IDENT"
	case TokenInt:
		return "INT"
	case TokenFloat:
		return "FLOAT"
	case TokenString:
		return "STRING"
	case TokenAssign:
		return "'='"
	case TokenBang:
		return "'!'"
	case TokenComma:
		return "','"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	default:
		return fmt.Sprintf("TOKEN(%d)", int(t))
	}
}

// Position is a location in statement text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in bytes
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexical token. For strings, Literal holds the raw quoted text.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent, TokenInt, TokenFloat, TokenString, TokenIllegal:
		return fmt.Sprintf("%s %q", t.Type, t.Literal)
	default:
		return t.Type.String()
	}
}

// Keywords recognized in value position. They are ordinary identifiers when
// used as keys.
const (
	keywordNull   = "null"
	keywordTrue   = "true"
	keywordFalse  = "false"
	keywordDelete = "delete"
)
