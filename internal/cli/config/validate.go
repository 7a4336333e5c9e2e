package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/configx/internal/cli/output"
	"github.com/leapstack-labs/configx/pkg/storage"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SnapshotPath == "" {
		return fmt.Errorf("snapshot path is required")
	}
	if c.WALPath == "" {
		return fmt.Errorf("wal path is required")
	}
	if c.SnapshotPath == c.WALPath {
		return fmt.Errorf("snapshot and wal must be different files, both are %s", c.SnapshotPath)
	}
	if _, err := storage.ParseSyncMode(c.Sync); err != nil {
		return err
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint_every must not be negative, got %d", c.CheckpointEvery)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	return nil
}

// SyncMode returns the validated storage sync mode.
func (c *Config) SyncMode() storage.SyncMode {
	mode, err := storage.ParseSyncMode(c.Sync)
	if err != nil {
		return storage.SyncAlways
	}
	return mode
}

// ParseLogLevel converts a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}
