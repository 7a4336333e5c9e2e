package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/leapstack-labs/configx/pkg/value"

	// SQLite driver (pure Go)
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// snapshotFormatVersion is stored in snapshot_meta.format_version.
const snapshotFormatVersion = 1

// Snapshot metadata keys.
const (
	metaFormatVersion = "format_version"
	metaWALSeq        = "wal_seq"
	metaCreatedAt     = "created_at"
	metaEntryCount    = "entry_count"
)

// snapshotDSN returns a SQLite URI for path. The path is escaped so that
// '#', '?' and '%' in file names are not read as URI syntax.
func snapshotDSN(path, query string) string {
	u := url.URL{Scheme: "file", OmitHost: true, Path: filepath.ToSlash(path), RawQuery: query}
	return u.String()
}

// SnapshotInfo describes a loaded snapshot.
type SnapshotInfo struct {
	WALSeq    uint64
	CreatedAt time.Time
	Entries   map[string]value.Value
}

// migrateSnapshot applies the embedded schema to a snapshot database.
func migrateSnapshot(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// writeSnapshot serializes entries into a fresh SQLite file next to path and
// atomically renames it over path. The previous snapshot stays in place
// until the rename succeeds.
func writeSnapshot(ctx context.Context, path string, entries map[string]value.Value, walSeq uint64, now time.Time) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+uuid.NewString())

	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
			_ = os.Remove(tmp + "-journal")
		}
	}()

	if err := fillSnapshot(ctx, tmp, entries, walSeq, now); err != nil {
		return err
	}

	if err := syncFile(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install snapshot: %w", err)
	}
	return syncDir(dir)
}

func fillSnapshot(ctx context.Context, path string, entries map[string]value.Value, walSeq uint64, now time.Time) error {
	db, err := sql.Open("sqlite", snapshotDSN(path, "_pragma=journal_mode(DELETE)&_pragma=synchronous(FULL)"))
	if err != nil {
		return fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	if err := migrateSnapshot(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	meta := map[string]string{
		metaFormatVersion: strconv.Itoa(snapshotFormatVersion),
		metaWALSeq:        strconv.FormatUint(walSeq, 10),
		metaCreatedAt:     now.UTC().Format(time.RFC3339Nano),
		metaEntryCount:    strconv.Itoa(len(entries)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO snapshot_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert snapshot meta %s: %w", k, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (key, kind, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for key, v := range entries {
		data, err := value.Encode(v)
		if err != nil {
			return fmt.Errorf("encode entry %q: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, v.Kind().String(), string(data)); err != nil {
			return fmt.Errorf("insert entry %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return db.Close()
}

// readSnapshot loads the snapshot at path. Any structural problem is
// reported as ErrCorruptSnapshot.
func readSnapshot(ctx context.Context, path string) (*SnapshotInfo, error) {
	info, err := loadSnapshot(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return info, nil
}

func loadSnapshot(ctx context.Context, path string) (*SnapshotInfo, error) {
	db, err := sql.Open("sqlite", snapshotDSN(path, "mode=ro"))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var check string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&check); err != nil {
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if check != "ok" {
		return nil, fmt.Errorf("integrity check: %s", check)
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, err
	}
	if meta[metaFormatVersion] != strconv.Itoa(snapshotFormatVersion) {
		return nil, fmt.Errorf("unsupported snapshot format version %q", meta[metaFormatVersion])
	}

	info := &SnapshotInfo{Entries: make(map[string]value.Value)}
	if info.WALSeq, err = strconv.ParseUint(meta[metaWALSeq], 10, 64); err != nil {
		return nil, fmt.Errorf("parse %s: %w", metaWALSeq, err)
	}
	if info.CreatedAt, err = time.Parse(time.RFC3339Nano, meta[metaCreatedAt]); err != nil {
		return nil, fmt.Errorf("parse %s: %w", metaCreatedAt, err)
	}
	wantCount, err := strconv.Atoi(meta[metaEntryCount])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", metaEntryCount, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT key, kind, value FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key, kind, data string
		if err := rows.Scan(&key, &kind, &data); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		v, err := value.Decode([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("decode entry %q: %w", key, err)
		}
		if v.Kind().String() != kind {
			return nil, fmt.Errorf("entry %q: kind column %q disagrees with value %s", key, kind, v.Kind())
		}
		info.Entries[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	if len(info.Entries) != wantCount {
		return nil, fmt.Errorf("snapshot holds %d entries, metadata says %d", len(info.Entries), wantCount)
	}
	return info, nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM snapshot_meta`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan snapshot meta: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot meta: %w", err)
	}

	for _, k := range []string{metaFormatVersion, metaWALSeq, metaCreatedAt, metaEntryCount} {
		if _, ok := meta[k]; !ok {
			return nil, fmt.Errorf("snapshot meta missing %q", k)
		}
	}
	return meta, nil
}

// ReadSnapshot loads the snapshot file at path for inspection.
func ReadSnapshot(path string) (*SnapshotInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &Error{Op: "read snapshot", Path: path, Err: err}
	}
	info, err := readSnapshot(context.Background(), path)
	if err != nil {
		return nil, &Error{Op: "read snapshot", Path: path, Err: err}
	}
	return info, nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0) //nolint:gosec // G304: path is a snapshot we just wrote
	if err != nil {
		return fmt.Errorf("open snapshot for sync: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	return f.Close()
}

// snapshotExists reports whether a snapshot file is present at path.
func snapshotExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
