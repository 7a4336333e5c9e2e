package xql

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/configx/pkg/value"
)

func TestParse_Statements(t *testing.T) {
	stmt, err := Parse("items")
	require.NoError(t, err)
	get, ok := stmt.(*GetStmt)
	require.True(t, ok, "expected *GetStmt, got %T", stmt)
	assert.Equal(t, "items", get.Key)
	assert.False(t, get.Safe)

	stmt, err = Parse("  missing ! ")
	require.NoError(t, err)
	get, ok = stmt.(*GetStmt)
	require.True(t, ok, "expected *GetStmt, got %T", stmt)
	assert.Equal(t, "missing", get.Key)
	assert.True(t, get.Safe)

	stmt, err = Parse(`name = "x"`)
	require.NoError(t, err)
	assign, ok := stmt.(*AssignStmt)
	require.True(t, ok, "expected *AssignStmt, got %T", stmt)
	assert.Equal(t, "name", assign.Key)
	assert.IsType(t, &StringLit{}, assign.Value)

	stmt, err = Parse("delete name")
	require.NoError(t, err)
	del, ok := stmt.(*DeleteStmt)
	require.True(t, ok, "expected *DeleteStmt, got %T", stmt)
	assert.Equal(t, "name", del.Key)
}

func TestParse_KeywordsAreKeysOutsideValuePosition(t *testing.T) {
	tests := []struct {
		query string
		key   string
	}{
		{"delete", "delete"},
		{"delete!", "delete"},
		{"true", "true"},
		{"null!", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			require.NoError(t, err)
			get, ok := stmt.(*GetStmt)
			require.True(t, ok, "expected *GetStmt, got %T", stmt)
			assert.Equal(t, tt.key, get.Key)
		})
	}

	stmt, err := Parse("delete = 1")
	require.NoError(t, err)
	assert.IsType(t, &AssignStmt{}, stmt)
}

func TestParseValue_LiteralClasses(t *testing.T) {
	tests := []struct {
		text string
		want value.Value
	}{
		{"null", value.Null()},
		{"true", value.Bool(true)},
		{"false", value.Bool(false)},
		{"3", value.Int(3)},
		{"-3", value.Int(-3)},
		{"3.0", value.Float(3)},
		{"1e3", value.Float(1000)},
		{"9223372036854775807", value.Int(math.MaxInt64)},
		{"-9223372036854775808", value.Int(math.MinInt64)},
		{`"alice"`, value.String("alice")},
		{`""`, value.String("")},
		{"[]", value.List()},
		{"[ ]", value.List()},
		{"[1,2,3]", value.List(value.Int(1), value.Int(2), value.Int(3))},
		{`["alice","bob"]`, value.List(value.String("alice"), value.String("bob"))},
		{"[[1,2],[3,4]]", value.List(
			value.List(value.Int(1), value.Int(2)),
			value.List(value.Int(3), value.Int(4)),
		)},
		{`[[1,"a"],[true,3.14]]`, value.List(
			value.List(value.Int(1), value.String("a")),
			value.List(value.Bool(true), value.Float(3.14)),
		)},
		{"[[],[[]]]", value.List(value.List(), value.List(value.List()))},
		{"[1, 1.0, null]", value.List(value.Int(1), value.Float(1), value.Null())},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseValue(tt.text)
			require.NoError(t, err)
			assert.True(t, value.Equal(tt.want, got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		column int
		msg    string
	}{
		{"empty", "", 1, "empty statement"},
		{"blank", "   ", 4, "empty statement"},
		{"no key", "=1", 1, "expected key"},
		{"missing value", "k=", 3, "expected literal"},
		{"bare word value", "k=alice", 3, "strings must be double-quoted"},
		{"unclosed list", "k=[1,2", 3, "unclosed '['"},
		{"unclosed nested list", "k=[[1,2]", 3, "unclosed '['"},
		{"extra bracket", "k=[1]]", 6, "unexpected ']'"},
		{"trailing comma", "k=[1,]", 6, "expected literal"},
		{"missing comma", "k=[1 2]", 6, "expected ',' or ']'"},
		{"int overflow", "k=9223372036854775808", 3, "out of range"},
		{"float overflow", "k=1e400", 3, "out of range"},
		{"two keys", "a b c", 3, "unexpected"},
		{"bang then more", "a!b", 3, "unexpected"},
		{"delete extra", "delete a b", 10, "unexpected"},
		{"assignment trailing", "a=1 2", 5, "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.query)
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.column, perr.Pos.Column, "error: %v", err)
			assert.Contains(t, perr.Error(), tt.msg)
		})
	}
}

func TestParse_NestingLimit(t *testing.T) {
	deep := ""
	for range maxNestingDepth + 1 {
		deep += "["
	}
	for range maxNestingDepth + 1 {
		deep += "]"
	}

	_, err := ParseValue(deep)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "nested deeper")
}
