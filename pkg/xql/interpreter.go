package xql

import (
	"fmt"

	"github.com/leapstack-labs/configx/pkg/tree"
	"github.com/leapstack-labs/configx/pkg/value"
)

// Interpreter executes ConfigXQL statements against a tree.
type Interpreter struct {
	tree *tree.Tree
}

// New returns an interpreter bound to t.
func New(t *tree.Tree) *Interpreter {
	return &Interpreter{tree: t}
}

// Execute parses and runs a single statement.
//
// An assignment returns the stored value, a retrieval the current value and
// a delete statement Bool(true) if the key existed. Parse failures return a
// *ParseError and leave the tree untouched.
func (in *Interpreter) Execute(query string) (value.Value, error) {
	stmt, err := Parse(query)
	if err != nil {
		return value.Null(), err
	}
	return in.Run(stmt)
}

// Run executes an already parsed statement.
func (in *Interpreter) Run(stmt Statement) (value.Value, error) {
	switch s := stmt.(type) {
	case *AssignStmt:
		v := Eval(s.Value)
		if _, err := in.tree.Set(s.Key, v); err != nil {
			return value.Null(), err
		}
		return v, nil

	case *GetStmt:
		if s.Safe {
			return in.tree.GetSafe(s.Key), nil
		}
		return in.tree.Get(s.Key)

	case *DeleteStmt:
		existed, err := in.tree.Delete(s.Key)
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(existed), nil

	default:
		return value.Null(), fmt.Errorf("unsupported statement %T", stmt)
	}
}

// IsMutation reports whether stmt changes the tree when run.
func IsMutation(stmt Statement) bool {
	switch stmt.(type) {
	case *AssignStmt, *DeleteStmt:
		return true
	default:
		return false
	}
}
