package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// sqliteStorage keeps every bucket in one WITHOUT ROWID table keyed by
// (bucket, key). SQLite compares BLOBs with memcmp, so key order matches
// Bolt's byte order.
type sqliteStorage struct {
	db   *sql.DB
	path string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS buckets (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS kv (
	bucket TEXT NOT NULL,
	k BLOB NOT NULL,
	v BLOB NOT NULL,
	PRIMARY KEY (bucket, k)
) WITHOUT ROWID;
`

func openSQLiteStorage(path string) (storage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection makes every transaction exclusive, which gives us
	// the same single-writer discipline Bolt has.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &sqliteStorage{db: db, path: path}, nil
}

func (s *sqliteStorage) Backend() Backend { return SQLite }

func (s *sqliteStorage) BeginTx(writable bool) (storageTx, error) {
	stx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &sqliteTx{stx: stx, writable: writable}, nil
}

func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// backup writes a compacted copy of the database via VACUUM INTO.
func (s *sqliteStorage) backup(w io.Writer) (int64, error) {
	f, err := os.CreateTemp("", "leavedesk-sqlite-backup-*.db")
	if err != nil {
		return 0, err
	}
	tmp := f.Name()
	f.Close()
	// VACUUM INTO refuses to overwrite an existing file.
	os.Remove(tmp)
	defer os.Remove(tmp)

	if _, err := s.db.Exec(`VACUUM INTO ?`, tmp); err != nil {
		return 0, fmt.Errorf("sqlite vacuum into: %w", err)
	}
	f, err = os.Open(tmp)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

type sqliteTx struct {
	stx      *sql.Tx
	writable bool
	closed   bool
}

func (tx *sqliteTx) Bucket(name string) (storageBucket, error) {
	var found string
	err := tx.stx.QueryRow(`SELECT name FROM buckets WHERE name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return sqliteBucket{tx: tx, name: name}, nil
}

func (tx *sqliteTx) CreateBucket(name string) (storageBucket, error) {
	if !tx.writable {
		return nil, fmt.Errorf("tx not writable")
	}
	if _, err := tx.stx.Exec(`INSERT OR IGNORE INTO buckets (name) VALUES (?)`, name); err != nil {
		return nil, err
	}
	return sqliteBucket{tx: tx, name: name}, nil
}

func (tx *sqliteTx) Commit() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	if !tx.writable {
		return tx.stx.Rollback()
	}
	return tx.stx.Commit()
}

func (tx *sqliteTx) Rollback() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	err := tx.stx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (tx *sqliteTx) Size() int64 {
	var pages, pageSize int64
	if err := tx.stx.QueryRow(`PRAGMA page_count`).Scan(&pages); err != nil {
		return 0
	}
	if err := tx.stx.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0
	}
	return pages * pageSize
}

type sqliteBucket struct {
	tx   *sqliteTx
	name string
}

func (b sqliteBucket) Get(key []byte) ([]byte, error) {
	var v []byte
	err := b.tx.stx.QueryRow(`SELECT v FROM kv WHERE bucket = ? AND k = ?`, b.name, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (b sqliteBucket) Put(key, value []byte) error {
	if !b.tx.writable {
		return fmt.Errorf("tx not writable")
	}
	_, err := b.tx.stx.Exec(`INSERT INTO kv (bucket, k, v) VALUES (?, ?, ?)
		ON CONFLICT (bucket, k) DO UPDATE SET v = excluded.v`, b.name, key, value)
	return err
}

func (b sqliteBucket) Delete(key []byte) error {
	if !b.tx.writable {
		return fmt.Errorf("tx not writable")
	}
	_, err := b.tx.stx.Exec(`DELETE FROM kv WHERE bucket = ? AND k = ?`, b.name, key)
	return err
}

func (b sqliteBucket) Cursor() storageCursor {
	return &sqliteCursor{b: b}
}

func (b sqliteBucket) KeyCount() (int, error) {
	var n int
	err := b.tx.stx.QueryRow(`SELECT COUNT(*) FROM kv WHERE bucket = ?`, b.name).Scan(&n)
	return n, err
}

// sqliteCursor re-queries for every step, so it never holds an open
// result set across calls.
type sqliteCursor struct {
	b   sqliteBucket
	cur []byte
}

func (c *sqliteCursor) query(q string, args ...any) ([]byte, []byte, error) {
	var k, v []byte
	err := c.b.tx.stx.QueryRow(q, args...).Scan(&k, &v)
	if errors.Is(err, sql.ErrNoRows) {
		c.cur = nil
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, err
	}
	if v == nil {
		v = []byte{}
	}
	c.cur = k
	return k, v, nil
}

func (c *sqliteCursor) First() ([]byte, []byte, error) {
	return c.query(`SELECT k, v FROM kv WHERE bucket = ? ORDER BY k LIMIT 1`, c.b.name)
}

func (c *sqliteCursor) Seek(seek []byte) ([]byte, []byte, error) {
	return c.query(`SELECT k, v FROM kv WHERE bucket = ? AND k >= ? ORDER BY k LIMIT 1`, c.b.name, seek)
}

func (c *sqliteCursor) Next() ([]byte, []byte, error) {
	if c.cur == nil {
		return nil, nil, nil
	}
	return c.query(`SELECT k, v FROM kv WHERE bucket = ? AND k > ? ORDER BY k LIMIT 1`, c.b.name, c.cur)
}
