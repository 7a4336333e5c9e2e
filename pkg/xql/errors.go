package xql

import "fmt"

// ParseError reports malformed statement text. No tree mutation happens when
// a statement fails to parse.
type ParseError struct {
	Pos Position
	Msg string
}

// NewParseError creates a new parse error.
func NewParseError(pos Position, msg string) *ParseError {
	return &ParseError{Pos: pos, Msg: msg}
}

// NewParseErrorf creates a new parse error with formatting.
func NewParseErrorf(pos Position, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Msg)
}
