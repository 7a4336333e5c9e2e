// Package engine wires a configuration tree, the query interpreter and the
// storage runtime into one handle that callers open, query and close.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/configx/pkg/storage"
	"github.com/leapstack-labs/configx/pkg/tree"
	"github.com/leapstack-labs/configx/pkg/value"
	"github.com/leapstack-labs/configx/pkg/xql"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("engine is closed")

// Engine executes ConfigXQL statements against a durable tree.
type Engine struct {
	logger          *slog.Logger
	tree            *tree.Tree
	runtime         *storage.Runtime
	interp          *xql.Interpreter
	checkpointEvery int
}

// Config holds engine configuration.
type Config struct {
	// SnapshotPath is the path to the snapshot database
	SnapshotPath string
	// WALPath is the path to the write-ahead log
	WALPath string
	// Sync selects how WAL appends are flushed (default always)
	Sync storage.SyncMode
	// CheckpointEvery triggers a checkpoint once the WAL holds this many
	// records. Zero disables automatic checkpoints.
	CheckpointEvery int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New opens the store described by cfg, recovering any existing state.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.SnapshotPath == "" || cfg.WALPath == "" {
		return nil, fmt.Errorf("snapshot and WAL paths are required")
	}
	if cfg.CheckpointEvery < 0 {
		return nil, fmt.Errorf("checkpoint interval must not be negative, got %d", cfg.CheckpointEvery)
	}

	for _, p := range []string{cfg.SnapshotPath, cfg.WALPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}

	logger.Debug("initializing engine", "snapshot", cfg.SnapshotPath, "wal", cfg.WALPath, "sync", cfg.Sync)

	rt := storage.New(cfg.SnapshotPath, cfg.WALPath,
		storage.WithLogger(logger),
		storage.WithSyncMode(cfg.Sync),
	)
	t := tree.New()
	if err := rt.Start(t); err != nil {
		return nil, fmt.Errorf("failed to start storage: %w", err)
	}

	return &Engine{
		logger:          logger,
		tree:            t,
		runtime:         rt,
		interp:          xql.New(t),
		checkpointEvery: cfg.CheckpointEvery,
	}, nil
}

// Exec parses and runs one statement. After a successful mutation it may
// fold the WAL into a new snapshot; a failed automatic checkpoint is
// logged and does not fail the statement, which is already durable.
func (e *Engine) Exec(query string) (value.Value, error) {
	stmt, err := xql.Parse(query)
	if err != nil {
		return value.Null(), err
	}

	v, err := e.interp.Run(stmt)
	if err != nil {
		return value.Null(), err
	}

	if xql.IsMutation(stmt) {
		e.maybeCheckpoint()
	}
	return v, nil
}

func (e *Engine) maybeCheckpoint() {
	if e.checkpointEvery <= 0 {
		return
	}
	if e.runtime.Stats().PendingRecords < e.checkpointEvery {
		return
	}
	if err := e.runtime.Checkpoint(e.tree); err != nil {
		e.logger.Warn("automatic checkpoint failed", "error", err)
	}
}

// Tree returns the underlying tree. Mutations made through it are durable.
func (e *Engine) Tree() *tree.Tree { return e.tree }

// Runtime returns the storage runtime.
func (e *Engine) Runtime() *storage.Runtime { return e.runtime }

// Checkpoint writes a new snapshot and empties the WAL.
func (e *Engine) Checkpoint() error {
	if err := e.runtime.Checkpoint(e.tree); err != nil {
		if errors.Is(err, storage.ErrNotOpen) {
			return ErrClosed
		}
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and releases the store files. Closing a closed engine
// is a no-op. If the final snapshot cannot be written the engine stays open
// and Close may be retried.
func (e *Engine) Close() error {
	if err := e.runtime.Shutdown(e.tree); err != nil {
		if errors.Is(err, storage.ErrNotOpen) {
			return nil
		}
		return fmt.Errorf("failed to shut down storage: %w", err)
	}
	return nil
}
