package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/leapstack-labs/configx/pkg/value"
)

// WAL frame layout:
//
//	[4 bytes] payload length, big endian
//	[8 bytes] xxhash64 of payload, big endian
//	[n bytes] payload: JSON-encoded Record
const (
	frameHeaderSize = 12
	maxPayloadSize  = 64 << 20
)

// Op is the kind of mutation a WAL record carries.
type Op string

// WAL operations.
const (
	OpSet    Op = "SET"
	OpDelete Op = "DEL"
)

// Record is one WAL entry. Value is set only for OpSet.
type Record struct {
	Seq   uint64       `json:"seq"`
	Op    Op           `json:"op"`
	Key   string       `json:"key"`
	Value *value.Value `json:"value,omitempty"`

	// Offset and End locate the frame in the file.
	Offset int64 `json:"-"`
	End    int64 `json:"-"`
}

func (r Record) validate() error {
	if r.Key == "" {
		return errors.New("empty key")
	}
	if !utf8.ValidString(r.Key) {
		return fmt.Errorf("key %q is not valid UTF-8", r.Key)
	}
	switch r.Op {
	case OpSet:
		if r.Value == nil {
			return errors.New("SET record without value")
		}
	case OpDelete:
	default:
		return fmt.Errorf("unknown op %q", r.Op)
	}
	return nil
}

// encodeFrame serializes rec into a checksummed frame.
func encodeFrame(rec Record) ([]byte, error) {
	if err := rec.validate(); err != nil {
		return nil, fmt.Errorf("encode wal record: %w", err)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode wal record: %w", err)
	}
	if len(payload) > maxPayloadSize {
		return nil, fmt.Errorf("wal record of %d bytes exceeds limit of %d", len(payload), maxPayloadSize)
	}

	frame := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint64(frame[4:12], xxhash.Sum64(payload))
	copy(frame[frameHeaderSize:], payload)
	return frame, nil
}

// WALScan is the result of reading a WAL file.
type WALScan struct {
	// Records holds every complete, valid record in file order.
	Records []Record
	// ValidSize is the byte length of the valid prefix.
	ValidSize int64
	// FileSize is the size of the file on disk.
	FileSize int64
	// TailErr explains why reading stopped before FileSize, if it did.
	TailErr error
}

// Torn reports whether the file holds bytes past its last valid record.
func (s *WALScan) Torn() bool {
	return s.ValidSize < s.FileSize
}

// ReadWAL reads the WAL at path. Reading stops at the first incomplete,
// corrupt or out-of-sequence frame; that condition is reported in TailErr
// rather than as an error. A missing file yields an empty scan.
func ReadWAL(path string) (*WALScan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the configured WAL
	if errors.Is(err, os.ErrNotExist) {
		return &WALScan{}, nil
	}
	if err != nil {
		return nil, &Error{Op: "read wal", Path: path, Err: err}
	}
	return scanWAL(data), nil
}

func scanWAL(data []byte) *WALScan {
	scan := &WALScan{FileSize: int64(len(data))}

	var off int64
	for off < int64(len(data)) {
		rest := data[off:]
		if len(rest) < frameHeaderSize {
			scan.TailErr = fmt.Errorf("partial frame header at offset %d", off)
			break
		}

		n := binary.BigEndian.Uint32(rest[0:4])
		sum := binary.BigEndian.Uint64(rest[4:12])
		if n > maxPayloadSize {
			scan.TailErr = fmt.Errorf("implausible frame length %d at offset %d", n, off)
			break
		}
		if int64(len(rest)-frameHeaderSize) < int64(n) {
			scan.TailErr = fmt.Errorf("partial frame payload at offset %d", off)
			break
		}

		payload := rest[frameHeaderSize : frameHeaderSize+int(n)]
		if xxhash.Sum64(payload) != sum {
			scan.TailErr = fmt.Errorf("checksum mismatch at offset %d", off)
			break
		}

		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			scan.TailErr = fmt.Errorf("undecodable record at offset %d: %w", off, err)
			break
		}
		if err := rec.validate(); err != nil {
			scan.TailErr = fmt.Errorf("invalid record at offset %d: %w", off, err)
			break
		}
		if len(scan.Records) > 0 {
			if prev := scan.Records[len(scan.Records)-1].Seq; rec.Seq != prev+1 {
				scan.TailErr = fmt.Errorf("sequence %d follows %d at offset %d", rec.Seq, prev, off)
				break
			}
		}

		rec.Offset = off
		rec.End = off + frameHeaderSize + int64(n)
		scan.Records = append(scan.Records, rec)
		off = rec.End
	}

	scan.ValidSize = off
	return scan
}

// walWriter appends frames to the WAL file.
type walWriter struct {
	f    *os.File
	path string
	size int64
	sync bool
}

// openWALWriter opens path for appending, first truncating it to size so
// that new frames never follow a torn tail.
func openWALWriter(path string, size int64, sync bool) (*walWriter, error) {
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // G304: path is the configured WAL
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}

	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate wal to %d: %w", size, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sync wal: %w", err)
	}
	if created {
		if err := syncDir(filepath.Dir(path)); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return &walWriter{f: f, path: path, size: size, sync: sync}, nil
}

// append writes one frame and, in sync mode, flushes it to stable storage.
// On failure the file is cut back to its previous size.
func (w *walWriter) append(rec Record) error {
	frame, err := encodeFrame(rec)
	if err != nil {
		return err
	}

	if _, err := w.f.Write(frame); err != nil {
		w.rollback()
		return fmt.Errorf("write wal frame: %w", err)
	}
	if w.sync {
		if err := w.f.Sync(); err != nil {
			w.rollback()
			return fmt.Errorf("sync wal: %w", err)
		}
	}

	w.size += int64(len(frame))
	return nil
}

func (w *walWriter) rollback() {
	_ = w.f.Truncate(w.size)
}

// reset empties the WAL after a checkpoint.
func (w *walWriter) reset() error {
	if err := w.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate wal: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync wal: %w", err)
	}
	w.size = 0
	return nil
}

func (w *walWriter) close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// syncDir flushes directory metadata so created and renamed files survive
// a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // G304: dir holds the configured store files
	if err != nil {
		return fmt.Errorf("open dir for sync: %w", err)
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
	return nil
}
