// Package storage makes a configuration tree durable with a snapshot file
// and a write-ahead log.
//
// Start loads the snapshot, replays the WAL on top of it and binds the tree
// so that every later mutation is appended to the WAL before it is applied.
// Checkpoint and Shutdown fold the WAL into a new snapshot.
//
// The snapshot is a SQLite database whose schema is managed by embedded
// migrations. It is always written to a temporary file and renamed into
// place. WAL frames carry a length, an xxhash64 checksum and a JSON record
// with a sequence number; replay stops quietly at the first frame that is
// incomplete, corrupt or out of sequence.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/leapstack-labs/configx/pkg/tree"
	"github.com/leapstack-labs/configx/pkg/value"
)

// State is the lifecycle state of a Runtime.
type State int

// Runtime states.
const (
	StateUninitialized State = iota
	StateStarting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SyncMode controls whether WAL appends are flushed to stable storage.
type SyncMode string

// Sync modes.
const (
	SyncAlways SyncMode = "always" // fsync after every append
	SyncNone   SyncMode = "none"   // leave flushing to the OS; for tests and benchmarks
)

// ParseSyncMode validates a sync mode name.
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(s) {
	case SyncAlways, "":
		return SyncAlways, nil
	case SyncNone:
		return SyncNone, nil
	default:
		return "", fmt.Errorf("unknown sync mode %q (want %q or %q)", s, SyncAlways, SyncNone)
	}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSyncMode sets the WAL sync mode. The default is SyncAlways.
func WithSyncMode(mode SyncMode) Option {
	return func(r *Runtime) {
		r.syncMode = mode
	}
}

// withClock overrides the snapshot timestamp source.
func withClock(now func() time.Time) Option {
	return func(r *Runtime) {
		r.now = now
	}
}

// Runtime owns the snapshot and WAL files of one tree.
type Runtime struct {
	snapshotPath string
	walPath      string
	syncMode     SyncMode
	logger       *slog.Logger
	now          func() time.Time

	mu          sync.Mutex
	state       State
	wal         *walWriter
	lastSeq     uint64 // sequence of the last durable record
	snapshotSeq uint64 // sequence covered by the current snapshot
	pending     int    // records in the WAL file
}

var _ tree.Journal = (*Runtime)(nil)

// New returns a runtime for the given files. Neither file needs to exist.
func New(snapshotPath, walPath string, opts ...Option) *Runtime {
	r := &Runtime{
		snapshotPath: snapshotPath,
		walPath:      walPath,
		syncMode:     SyncAlways,
		logger:       slog.New(slog.DiscardHandler),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SnapshotPath returns the snapshot file path.
func (r *Runtime) SnapshotPath() string { return r.snapshotPath }

// WALPath returns the WAL file path.
func (r *Runtime) WALPath() string { return r.walPath }

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start rebuilds t from the snapshot and WAL, binds t to the runtime and
// opens it for appends. On error the runtime does not open and t is left
// as it was.
func (r *Runtime) Start(t *tree.Tree) error {
	r.mu.Lock()
	if r.state == StateOpen || r.state == StateStarting {
		r.mu.Unlock()
		return &Error{Op: "start", Err: ErrAlreadyOpen}
	}
	prevState := r.state
	r.state = StateStarting
	r.mu.Unlock()

	rec, err := r.recover(context.Background())
	if err != nil {
		r.mu.Lock()
		r.state = prevState
		r.mu.Unlock()
		return err
	}

	t.Restore(rec.entries)
	t.Bind(r)

	r.mu.Lock()
	r.wal = rec.wal
	r.lastSeq = rec.lastSeq
	r.snapshotSeq = rec.snapshotSeq
	r.pending = rec.pending
	r.state = StateOpen
	r.mu.Unlock()

	r.logger.Info("storage runtime started",
		"snapshot", r.snapshotPath,
		"wal", r.walPath,
		"entries", len(rec.entries),
		"replayed", rec.replayed,
		"last_seq", rec.lastSeq,
	)
	return nil
}

type recovered struct {
	entries     map[string]value.Value
	wal         *walWriter
	lastSeq     uint64
	snapshotSeq uint64
	replayed    int
	pending     int
}

// recover loads the snapshot, replays the WAL and opens the WAL for append.
func (r *Runtime) recover(ctx context.Context) (*recovered, error) {
	rec := &recovered{entries: make(map[string]value.Value)}

	exists, err := snapshotExists(r.snapshotPath)
	if err != nil {
		return nil, &Error{Op: "stat snapshot", Path: r.snapshotPath, Err: err}
	}
	if exists {
		info, err := readSnapshot(ctx, r.snapshotPath)
		if err != nil {
			return nil, &Error{Op: "load snapshot", Path: r.snapshotPath, Err: err}
		}
		rec.entries = info.Entries
		rec.snapshotSeq = info.WALSeq
	}
	rec.lastSeq = rec.snapshotSeq

	scan, err := ReadWAL(r.walPath)
	if err != nil {
		return nil, err
	}

	validSize := int64(0)
	for _, wr := range scan.Records {
		if wr.Seq <= rec.snapshotSeq {
			// Already folded into the snapshot by a checkpoint that did not
			// get to reset the WAL.
			validSize = wr.End
			rec.pending++
			continue
		}
		if wr.Seq != rec.lastSeq+1 {
			r.logger.Warn("wal sequence gap, ignoring remaining records",
				"wal", r.walPath, "expected", rec.lastSeq+1, "found", wr.Seq, "offset", wr.Offset)
			break
		}
		applyRecord(rec.entries, wr)
		rec.lastSeq = wr.Seq
		rec.replayed++
		rec.pending++
		validSize = wr.End
	}

	if validSize < scan.FileSize {
		r.logger.Warn("discarding torn wal tail",
			"wal", r.walPath, "valid_bytes", validSize, "file_bytes", scan.FileSize, "reason", scan.TailErr)
	}

	w, err := openWALWriter(r.walPath, validSize, r.syncMode != SyncNone)
	if err != nil {
		return nil, &Error{Op: "open wal", Path: r.walPath, Err: err}
	}
	rec.wal = w
	return rec, nil
}

func applyRecord(entries map[string]value.Value, rec Record) {
	switch rec.Op {
	case OpSet:
		entries[rec.Key] = *rec.Value
	case OpDelete:
		delete(entries, rec.Key)
	}
}

// AppendSet durably logs a SET record. It implements tree.Journal.
func (r *Runtime) AppendSet(key string, v value.Value) error {
	return r.append(OpSet, key, &v)
}

// AppendDelete durably logs a DEL record. It implements tree.Journal.
func (r *Runtime) AppendDelete(key string) error {
	return r.append(OpDelete, key, nil)
}

func (r *Runtime) append(op Op, key string, v *value.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateOpen {
		return &Error{Op: "append", Path: r.walPath, Err: ErrNotOpen}
	}

	rec := Record{Seq: r.lastSeq + 1, Op: op, Key: key, Value: v}
	if err := r.wal.append(rec); err != nil {
		return &Error{Op: "append", Path: r.walPath, Err: err}
	}

	r.lastSeq = rec.Seq
	r.pending++
	r.logger.Debug("wal append", "op", op, "key", key, "seq", rec.Seq)
	return nil
}

// Checkpoint writes the current state of t to a new snapshot and empties
// the WAL. Mutations of t wait until it completes.
func (r *Runtime) Checkpoint(t *tree.Tree) error {
	return t.Freeze(func(entries map[string]value.Value) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.state != StateOpen {
			return &Error{Op: "checkpoint", Err: ErrNotOpen}
		}
		if err := r.checkpointLocked(entries); err != nil {
			return err
		}
		if err := r.wal.reset(); err != nil {
			return &Error{Op: "checkpoint", Path: r.walPath, Err: err}
		}
		r.pending = 0
		return nil
	})
}

func (r *Runtime) checkpointLocked(entries map[string]value.Value) error {
	start := r.now()
	if err := writeSnapshot(context.Background(), r.snapshotPath, entries, r.lastSeq, start); err != nil {
		return &Error{Op: "write snapshot", Path: r.snapshotPath, Err: err}
	}
	r.snapshotSeq = r.lastSeq

	r.logger.Info("checkpoint complete",
		"snapshot", r.snapshotPath,
		"entries", len(entries),
		"wal_seq", r.lastSeq,
		"duration", time.Since(start),
	)
	return nil
}

// Shutdown checkpoints t, removes the WAL and closes the runtime. If the
// snapshot cannot be written the runtime stays open and the WAL is kept.
// The tree stays bound, so later mutations fail with ErrNotOpen until the
// runtime is started again.
func (r *Runtime) Shutdown(t *tree.Tree) error {
	return t.Freeze(func(entries map[string]value.Value) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.state != StateOpen {
			return &Error{Op: "shutdown", Err: ErrNotOpen}
		}
		if err := r.checkpointLocked(entries); err != nil {
			return err
		}

		var errs []error
		if err := r.wal.close(); err != nil {
			errs = append(errs, fmt.Errorf("close wal: %w", err))
		}
		if err := os.Remove(r.walPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove wal: %w", err))
		}

		r.wal = nil
		r.pending = 0
		r.state = StateClosed

		if len(errs) > 0 {
			return &Error{Op: "shutdown", Path: r.walPath, Err: errors.Join(errs...)}
		}
		r.logger.Info("storage runtime closed", "snapshot", r.snapshotPath)
		return nil
	})
}

// Stats is a point-in-time view of a runtime.
type Stats struct {
	State          State
	LastSeq        uint64
	SnapshotSeq    uint64
	PendingRecords int
}

// Stats returns the runtime's current counters.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		State:          r.state,
		LastSeq:        r.lastSeq,
		SnapshotSeq:    r.snapshotSeq,
		PendingRecords: r.pending,
	}
}
