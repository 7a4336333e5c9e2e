package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/configx/internal/cli/config"
	"github.com/leapstack-labs/configx/internal/cli/output"
	"github.com/leapstack-labs/configx/internal/cli/testutil"
	"github.com/leapstack-labs/configx/internal/engine"
	inttestutil "github.com/leapstack-labs/configx/internal/testutil"
)

// runCommand executes cmd with cfg in its context and returns stdout and stderr.
func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, inttestutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewExecCommand(), "exec [statement...]", []string{"input"}},
		{NewREPLCommand(), "repl", nil},
		{NewDumpCommand(), "dump", []string{"prefix"}},
		{NewCheckpointCommand(), "checkpoint", nil},
		{NewWALCommand(), "wal", nil},
		{NewVersionCommand("test", "abc123", "2026-01-02"), "version", nil},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestExec_ArgsText(t *testing.T) {
	cfg := testutil.TestConfig(t, "text")

	out, _, err := runCommand(t, NewExecCommand(), cfg, "",
		"items=[1,2,3]", "items", `mixed=[[1,"a"],[true,3.14]]`, "missing!")
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]\n[1,2,3]\n"+`[[1,"a"],[true,3.14]]`+"\nnull\n", out)
}

func TestExec_PersistsAcrossInvocations(t *testing.T) {
	cfg := testutil.TestConfig(t, "text")

	_, _, err := runCommand(t, NewExecCommand(), cfg, "", "ratio=2.0", "count=2")
	require.NoError(t, err)

	out, _, err := runCommand(t, NewExecCommand(), cfg, "", "ratio", "count")
	require.NoError(t, err)
	assert.Equal(t, "2.0\n2\n", out)
}

func TestExec_StdinJSON(t *testing.T) {
	cfg := testutil.TestConfig(t, "json")

	stdin := "# settings\nname = \"svc\"\n\nport = 8080\nport\n"
	out, _, err := runCommand(t, NewExecCommand(), cfg, stdin)
	require.NoError(t, err)

	var results []struct {
		Statement string          `json:"statement"`
		Kind      string          `json:"kind"`
		Value     json.RawMessage `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, `name = "svc"`, results[0].Statement)
	assert.Equal(t, "string", results[0].Kind)
	assert.JSONEq(t, `{"t":"int","v":8080}`, string(results[2].Value))
}

func TestExec_InputFile(t *testing.T) {
	cfg := testutil.TestConfig(t, "text")
	path := filepath.Join(t.TempDir(), "stmts.xql")
	require.NoError(t, os.WriteFile(path, []byte("a=1\nb=[a]\n"), 0o600))

	_, _, err := runCommand(t, NewExecCommand(), cfg, "", "-i", path)
	require.Error(t, err, "bare identifiers are not literals")
	assert.Contains(t, err.Error(), "statement 2")

	out, _, err := runCommand(t, NewExecCommand(), cfg, "", "a")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out, "statements before the failure stay committed")
}

func TestExec_Errors(t *testing.T) {
	cfg := testutil.TestConfig(t, "text")

	_, _, err := runCommand(t, NewExecCommand(), cfg, "", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key not found")

	_, _, err = runCommand(t, NewExecCommand(), cfg, "\n# nothing\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no statements")
}

func TestDump(t *testing.T) {
	cfg := testutil.TestConfig(t, "text")
	_, _, err := runCommand(t, NewExecCommand(), cfg, "", "server.port=80", "server.host=\"h\"", "debug=false")
	require.NoError(t, err)

	out, _, err := runCommand(t, NewDumpCommand(), cfg, "", "--prefix", "server.")
	require.NoError(t, err)
	assert.Contains(t, out, "server.host")
	assert.Contains(t, out, "server.port")
	assert.NotContains(t, out, "debug")
	assert.Contains(t, out, "(2 rows)")
	testutil.AssertNoANSI(t, out)

	jsonCfg := *cfg
	jsonCfg.OutputFormat = "json"
	out, _, err = runCommand(t, NewDumpCommand(), &jsonCfg, "")
	require.NoError(t, err)

	var entries []struct {
		Key  string `json:"key"`
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "debug", entries[0].Key)
	assert.Equal(t, "bool", entries[0].Kind)
}

func TestCheckpoint(t *testing.T) {
	cfg := testutil.TestConfig(t, "json")
	_, _, err := runCommand(t, NewExecCommand(), cfg, "", "a=1", "b=2")
	require.NoError(t, err)

	out, _, err := runCommand(t, NewCheckpointCommand(), cfg, "")
	require.NoError(t, err)

	var res checkpointResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, uint64(2), res.WALSeq)
	assert.Equal(t, cfg.SnapshotPath, res.Snapshot)
}

func TestWAL_Inspect(t *testing.T) {
	cfg := testutil.TestConfig(t, "json")

	eng, err := engine.New(engine.Config{SnapshotPath: cfg.SnapshotPath, WALPath: cfg.WALPath, Sync: cfg.SyncMode()})
	require.NoError(t, err)
	for _, q := range []string{"a=1", "b=[1.5]", "delete a"} {
		_, err := eng.Exec(q)
		require.NoError(t, err)
	}
	// Leave the WAL in place by not closing the engine.

	out, _, err := runCommand(t, NewWALCommand(), cfg, "")
	require.NoError(t, err)

	var report walReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Records, 3)
	assert.Equal(t, "DEL", string(report.Records[2].Op))
	assert.Nil(t, report.Records[2].Value)
	require.NotNil(t, report.Records[1].Value)
	assert.Equal(t, "[1.5]", report.Records[1].Value.String())
	assert.Empty(t, report.Tail)

	// Tear the last frame and inspect again in text mode.
	require.NoError(t, os.Truncate(cfg.WALPath, report.FileSize-1))
	textCfg := *cfg
	textCfg.OutputFormat = "text"
	out, errOut, err := runCommand(t, NewWALCommand(), &textCfg, "")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, errOut, "torn tail")

	require.NoError(t, eng.Close())
}

func TestREPLSession_HandleLine(t *testing.T) {
	cfg := testutil.TestConfig(t, "text")
	eng, err := createEngine(cfg, inttestutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	tr := testutil.NewTestRenderer(output.ModeText, false)
	s := &replSession{ctx: &CommandContext{Cfg: cfg, Logger: inttestutil.NewTestLogger(t), Engine: eng, Renderer: tr.Renderer}}

	assert.False(t, s.handleLine("nested=[[1,2],[3,4]]"))
	assert.Equal(t, "[[1,2],[3,4]] (list)\n", tr.Output())

	tr.Reset()
	assert.False(t, s.handleLine("missing"))
	assert.Contains(t, tr.ErrorOutput(), "key not found")

	tr.Reset()
	assert.False(t, s.handleLine("   "))
	assert.Empty(t, tr.Output())

	tr.Reset()
	assert.False(t, s.handleLine(".keys ne"))
	assert.Equal(t, "nested\n", tr.Output())

	tr.Reset()
	assert.False(t, s.handleLine(".stats"))
	assert.Contains(t, tr.Output(), "entries=1")

	tr.Reset()
	assert.False(t, s.handleLine(".checkpoint"))
	assert.Contains(t, tr.ErrorOutput(), "checkpoint complete")
	assert.Equal(t, 0, eng.Runtime().Stats().PendingRecords)

	tr.Reset()
	assert.False(t, s.handleLine(".bogus"))
	assert.Contains(t, tr.ErrorOutput(), "unknown command")

	assert.True(t, s.handleLine(".quit"))
	assert.True(t, s.handleLine(".EXIT"))
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("a=1\n\n  # comment\n  b = 2  \r\nc!\n")
	assert.Equal(t, []string{"a=1", "b = 2", "c!"}, got)
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3", "abc123", "2026-01-02")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "configx v1.2.3")
	assert.Contains(t, out, "commit:   abc123")
	assert.Contains(t, out, "built:    2026-01-02")
}

func TestNewVersionCommand_JSON(t *testing.T) {
	cfg := testutil.TestConfig(t, "json")
	out, _, err := runCommand(t, NewVersionCommand("1.2.3", "abc123", "2026-01-02"), cfg, "")
	require.NoError(t, err)

	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.GitCommit)
	assert.Equal(t, "2026-01-02", info.BuildDate)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
