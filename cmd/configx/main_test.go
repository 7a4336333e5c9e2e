package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/configx/internal/cli"
	"github.com/leapstack-labs/configx/internal/cli/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "configx v")
}

func TestExecThroughRoot(t *testing.T) {
	store := testutil.StoreArgs(t)

	args := append(append([]string{}, store...), "-o", "text", "exec", "empty=[]", "empty", "missing!")
	out, err := runCLI(t, args...)
	require.NoError(t, err)
	assert.Equal(t, "[]\n[]\nnull\n", out)

	args = append(append([]string{}, store...), "-o", "text", "exec", "empty")
	out, err = runCLI(t, args...)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestInvalidGlobalFlag(t *testing.T) {
	_, err := runCLI(t, "--sync", "sometimes", "dump")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sync mode")

	_, err = runCLI(t, "--log-level", "loud", "dump")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestHelpSkipsConfig(t *testing.T) {
	out, err := runCLI(t, "--sync", "sometimes", "help")
	require.NoError(t, err)
	assert.Contains(t, out, "exec")
	assert.Contains(t, out, "checkpoint")
}
