package xql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/configx/pkg/tree"
	"github.com/leapstack-labs/configx/pkg/value"
)

func exec(t *testing.T, in *Interpreter, query string) value.Value {
	t.Helper()
	v, err := in.Execute(query)
	require.NoError(t, err, "query %q", query)
	return v
}

func TestInterpreter_ListBasic(t *testing.T) {
	in := New(tree.New())

	exec(t, in, "items=[1,2,3]")
	got := exec(t, in, "items")
	assert.True(t, value.Equal(value.MustFromGo([]any{1, 2, 3}), got), "got %s", got)

	exec(t, in, `names=["alice","bob"]`)
	got = exec(t, in, "names")
	assert.True(t, value.Equal(value.MustFromGo([]any{"alice", "bob"}), got), "got %s", got)

	exec(t, in, "empty=[]")
	got = exec(t, in, "empty")
	assert.Equal(t, value.KindList, got.Kind())
	assert.Equal(t, 0, got.Len())

	got = exec(t, in, "items!")
	assert.Equal(t, "[1,2,3]", got.String())

	got = exec(t, in, "missing!")
	assert.True(t, got.IsNull())

	_, err := in.Execute("missing")
	assert.ErrorIs(t, err, tree.ErrKeyNotFound)
}

func TestInterpreter_ListNested(t *testing.T) {
	in := New(tree.New())

	exec(t, in, "nested=[[1,2],[3,4]]")
	got := exec(t, in, "nested")
	assert.Equal(t, "[[1,2],[3,4]]", got.String())

	exec(t, in, `mixed=[[1,"a"],[true,3.14]]`)
	got = exec(t, in, "mixed")
	assert.Equal(t, `[[1,"a"],[true,3.14]]`, got.String())

	first, err := got.Index(0)
	require.NoError(t, err)
	one, err := first.Index(0)
	require.NoError(t, err)
	assert.Equal(t, value.KindInt, one.Kind())

	second, err := got.Index(1)
	require.NoError(t, err)
	pi, err := second.Index(1)
	require.NoError(t, err)
	assert.Equal(t, value.KindFloat, pi.Kind())
}

func TestInterpreter_NoCoercion(t *testing.T) {
	in := New(tree.New())

	assert.Equal(t, value.KindInt, exec(t, in, "a=3").Kind())
	assert.Equal(t, value.KindFloat, exec(t, in, "b=3.0").Kind())
	assert.False(t, value.Equal(exec(t, in, "a"), exec(t, in, "b")))
}

func TestInterpreter_AssignmentReturnsStoredValue(t *testing.T) {
	tr := tree.New()
	in := New(tr)

	got := exec(t, in, `greeting = "hello"`)
	assert.True(t, value.Equal(value.String("hello"), got))

	stored, err := tr.Get("greeting")
	require.NoError(t, err)
	assert.True(t, value.Equal(got, stored))
}

func TestInterpreter_SafeRetrievalIsIdempotent(t *testing.T) {
	tr := tree.New()
	in := New(tr)

	for range 5 {
		assert.True(t, exec(t, in, "ghost!").IsNull())
	}
	assert.False(t, tr.Has("ghost"))
	assert.Equal(t, 0, tr.Len())
}

func TestInterpreter_Delete(t *testing.T) {
	tr := tree.New()
	in := New(tr)

	exec(t, in, "k=1")
	assert.True(t, value.Equal(value.Bool(true), exec(t, in, "delete k")))
	assert.True(t, value.Equal(value.Bool(false), exec(t, in, "delete k")))
	assert.False(t, tr.Has("k"))
}

func TestInterpreter_ParseErrorLeavesTreeUntouched(t *testing.T) {
	tr := tree.New()
	in := New(tr)
	exec(t, in, "k=1")

	for _, q := range []string{`k=[1,2`, `k="open`, `k=[1,]`, `k=1 2`, `k=@`} {
		_, err := in.Execute(q)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, "query %q", q)
	}

	assert.Equal(t, []string{"k"}, tr.Keys())
	assert.Equal(t, "1", exec(t, in, "k").String())
}

type failingJournal struct{ err error }

func (j failingJournal) AppendSet(string, value.Value) error { return j.err }
func (j failingJournal) AppendDelete(string) error           { return j.err }

func TestInterpreter_JournalFailurePropagates(t *testing.T) {
	boom := errors.New("wal unavailable")
	tr := tree.NewBound(failingJournal{err: boom})
	in := New(tr)

	_, err := in.Execute("k=1")
	require.ErrorIs(t, err, boom)
	assert.False(t, tr.Has("k"))
}

func TestIsMutation(t *testing.T) {
	for query, want := range map[string]bool{
		"a=1":      true,
		"delete a": true,
		"a":        false,
		"a!":       false,
	} {
		stmt, err := Parse(query)
		require.NoError(t, err)
		assert.Equal(t, want, IsMutation(stmt), query)
	}
}
