package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("snapshot", "", "")
	fs.String("wal", "", "")
	fs.String("sync", "", "")
	fs.Int("checkpoint-every", 0, "")
	fs.String("log-level", "", "")
	fs.StringP("output", "o", "", "")
	return fs
}

// chdir switches into a fresh directory for the duration of the test.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	// Resolve symlinks so paths compare equal to os.Getwd.
	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := chdir(t)

	cfg, err := LoadConfig("", testFlags())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultSnapshotFile), cfg.SnapshotPath)
	assert.Equal(t, filepath.Join(dir, DefaultWALFile), cfg.WALPath)
	assert.Equal(t, DefaultSync, cfg.Sync)
	assert.Equal(t, DefaultCheckpointEvery, cfg.CheckpointEvery)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Empty(t, cfg.ConfigFile)
	assert.Empty(t, cfg.HistoryFile)
}

func TestLoadConfig_FileRelativePaths(t *testing.T) {
	dir := chdir(t)
	confDir := filepath.Join(dir, "conf")
	require.NoError(t, os.MkdirAll(confDir, 0o750))

	cfgPath := filepath.Join(confDir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
snapshot: data/store.db
wal: /abs/store.wal
sync: none
checkpoint_every: 50
`), 0o600))

	cfg, err := LoadConfig(cfgPath, testFlags())
	require.NoError(t, err)

	assert.Equal(t, cfgPath, cfg.ConfigFile)
	assert.Equal(t, filepath.Join(confDir, "data", "store.db"), cfg.SnapshotPath)
	assert.Equal(t, "/abs/store.wal", cfg.WALPath)
	assert.Equal(t, "none", cfg.Sync)
	assert.Equal(t, 50, cfg.CheckpointEvery)
}

func TestLoadConfig_DiscoversDefaultFile(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configx.yaml"), []byte("log_level: debug\n"), 0o600))

	cfg, err := LoadConfig("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "configx.yaml"), cfg.ConfigFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configx.yaml"), []byte(`
checkpoint_every: 10
log_level: info
output: text
`), 0o600))

	t.Setenv("CONFIGX_CHECKPOINT_EVERY", "20")
	t.Setenv("CONFIGX_LOG_LEVEL", "error")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--checkpoint-every", "30", "--snapshot", "flag.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.CheckpointEvery, "flag beats env and file")
	assert.Equal(t, "error", cfg.LogLevel, "env beats file")
	assert.Equal(t, "text", cfg.OutputFormat, "file beats default")
	assert.Equal(t, filepath.Join(dir, "flag.db"), cfg.SnapshotPath)
}

func TestLoadConfig_UnsetFlagsDoNotOverride(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configx.yaml"), []byte("sync: none\n"), 0o600))

	cfg, err := LoadConfig("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Sync)
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	chdir(t)
	base := t.TempDir()
	t.Setenv("CONFIGX_TEST_BASE", base)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--wal", "${CONFIGX_TEST_BASE}/x.wal"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "x.wal"), cfg.WALPath)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	chdir(t)
	_, err := LoadConfig("nope.yaml", testFlags())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			SnapshotPath:    "s.db",
			WALPath:         "s.wal",
			Sync:            "always",
			CheckpointEvery: 10,
			LogLevel:        "warn",
			OutputFormat:    "auto",
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no snapshot", func(c *Config) { c.SnapshotPath = "" }, "snapshot path is required"},
		{"no wal", func(c *Config) { c.WALPath = "" }, "wal path is required"},
		{"same file", func(c *Config) { c.WALPath = c.SnapshotPath }, "different files"},
		{"bad sync", func(c *Config) { c.Sync = "sometimes" }, "unknown sync mode"},
		{"negative checkpoint", func(c *Config) { c.CheckpointEvery = -1 }, "must not be negative"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
		{"bad output", func(c *Config) { c.OutputFormat = "xml" }, "unknown output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestGetLogger_Fallback(t *testing.T) {
	assert.NotNil(t, GetLogger(t.Context()))

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(t.Context(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
