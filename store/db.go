package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

// Backend selects the storage engine underneath a DB.
type Backend int

const (
	Bolt Backend = iota
	SQLite
	Memory
)

func (b Backend) String() string {
	switch b {
	case Bolt:
		return "bolt"
	case SQLite:
		return "sqlite"
	case Memory:
		return "memory"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend parses a backend name as accepted in configuration.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bolt", "bbolt":
		return Bolt, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "memory", "mem":
		return Memory, nil
	default:
		return 0, fmt.Errorf("unknown storage backend %q", s)
	}
}

// ErrBackupUnsupported is returned by DB.Backup for backends without a
// persistent file.
var ErrBackupUnsupported = errors.New("backup not supported by this backend")

type DB struct {
	st      storage
	schema  *Schema
	logger  *slog.Logger
	verbose bool

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
	lastSize   atomic.Int64
}

type Options struct {
	Backend   Backend
	Logger    *slog.Logger
	Verbose   bool
	IsTesting bool
	MmapSize  int
}

// Open opens (creating if needed) the database at path and prepares the
// buckets of every table and sequence in the schema. Path is ignored for
// the Memory backend.
func Open(path string, schema *Schema, opt Options) (*DB, error) {
	var st storage
	switch opt.Backend {
	case Bolt:
		bopt := *bbolt.DefaultOptions
		bopt.Timeout = 10 * time.Second
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
			bopt.InitialMmapSize = 1024 * 1024 * 5
		} else {
			bopt.InitialMmapSize = 1024 * 1024 * 64
			bopt.FreelistType = bbolt.FreelistMapType
		}
		if opt.MmapSize != 0 {
			bopt.InitialMmapSize = opt.MmapSize
		}
		bdb, err := bbolt.Open(path, 0666, &bopt)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		st = newBoltStorage(bdb)
	case SQLite:
		var err error
		st, err = openSQLiteStorage(path)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	case Memory:
		st = newMemStorage()
	default:
		return nil, fmt.Errorf("store: unsupported backend %v", opt.Backend)
	}
	return openStorage(st, schema, opt)
}

func openStorage(st storage, schema *Schema, opt Options) (*DB, error) {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	db := &DB{
		st:      st,
		schema:  schema,
		logger:  logger,
		verbose: opt.Verbose,
	}

	err := db.tx(true, false, func(tx *Tx) error {
		for _, name := range schema.bucketNames() {
			if _, err := tx.stx.CreateBucket(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("store: preparing schema: %w", err)
	}
	return db, nil
}

func (db *DB) Backend() Backend {
	return db.st.Backend()
}

func (db *DB) Schema() *Schema {
	return db.schema
}

// Size returns the database size observed by the last write transaction.
func (db *DB) Size() int64 {
	return db.lastSize.Load()
}

func (db *DB) Close() error {
	err := db.st.Close()
	if err != nil {
		return fmt.Errorf("store: closing: %w", err)
	}
	return nil
}

// Backup writes a consistent snapshot of the database file to w and returns
// the number of bytes written.
func (db *DB) Backup(w io.Writer) (int64, error) {
	type backupper interface {
		backup(w io.Writer) (int64, error)
	}
	b, ok := db.st.(backupper)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrBackupUnsupported, db.Backend())
	}
	n, err := b.backup(w)
	if err != nil {
		return n, fmt.Errorf("store: backup: %w", err)
	}
	return n, nil
}

func (db *DB) logf(format string, args ...any) {
	if db.verbose {
		db.logger.Debug(fmt.Sprintf(format, args...))
	}
}
