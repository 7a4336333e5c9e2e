package xql

import (
	"fmt"

	"github.com/leapstack-labs/configx/pkg/value"
)

// Eval converts a literal node to a value. Numeric subtypes are preserved:
// IntLit yields an Int and FloatLit a Float, at any nesting depth.
func Eval(lit Literal) value.Value {
	switch l := lit.(type) {
	case *NullLit:
		return value.Null()
	case *BoolLit:
		return value.Bool(l.Value)
	case *IntLit:
		return value.Int(l.Value)
	case *FloatLit:
		return value.Float(l.Value)
	case *StringLit:
		return value.String(l.Value)
	case *ListLit:
		elems := make([]value.Value, len(l.Elems))
		for i, e := range l.Elems {
			elems[i] = Eval(e)
		}
		return value.List(elems...)
	default:
		panic(fmt.Sprintf("xql: unhandled literal %T", lit))
	}
}

// ParseValue parses text consisting of exactly one literal.
func ParseValue(text string) (value.Value, error) {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return value.Null(), err
	}
	lit, rest, err := parseLiteral(tokens)
	if err != nil {
		return value.Null(), err
	}
	if err := expectEOF(rest); err != nil {
		return value.Null(), err
	}
	return Eval(lit), nil
}
