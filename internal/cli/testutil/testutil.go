// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/configx/internal/cli/config"
	"github.com/leapstack-labs/configx/internal/cli/output"
)

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// TestConfig returns a validated configuration for a fresh store in a
// temporary directory. WAL appends are not fsynced.
func TestConfig(t *testing.T, outputFormat string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		SnapshotPath:    filepath.Join(dir, "store", "config.snapshot"),
		WALPath:         filepath.Join(dir, "store", "config.wal"),
		Sync:            "none",
		CheckpointEvery: config.DefaultCheckpointEvery,
		LogLevel:        "debug",
		OutputFormat:    outputFormat,
		HistoryFile:     filepath.Join(dir, "history"),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

// StoreArgs returns global flags that point the CLI at a fresh store in a
// temporary directory.
func StoreArgs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"--snapshot", filepath.Join(dir, "config.snapshot"),
		"--wal", filepath.Join(dir, "config.wal"),
		"--sync", "none",
	}
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
