package store

// storage represents a key-value storage backend (Bolt, SQLite, in-memory).
type storage interface {
	// BeginTx starts a new transaction. At most one writable transaction
	// may be open at a time; BeginTx(true) blocks until the previous one ends.
	BeginTx(writable bool) (storageTx, error)
	// Backend reports which backend this is.
	Backend() Backend
	// Close closes the storage.
	Close() error
}

// storageTx represents a storage transaction.
type storageTx interface {
	// Bucket returns a bucket, or nil if the bucket doesn't exist.
	Bucket(name string) (storageBucket, error)

	// CreateBucket creates a bucket if it doesn't exist.
	CreateBucket(name string) (storageBucket, error)

	// Commit commits the transaction.
	Commit() error

	// Rollback aborts the transaction. It should be safe to call multiple times.
	Rollback() error

	// Size returns the database size in bytes (0 if unknown / not applicable).
	Size() int64
}

// storageBucket represents a bucket (sorted key-value collection).
//
// Byte slices returned by Get and by cursors are only valid until the end of
// the transaction.
type storageBucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(key []byte) ([]byte, error)

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// Cursor returns a cursor for ascending iteration.
	Cursor() storageCursor

	// KeyCount returns the number of keys in the bucket.
	KeyCount() (int, error)
}

// storageCursor iterates over a sorted bucket in ascending key order.
// A nil key means the cursor is exhausted.
type storageCursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte, err error)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte, err error)

	// Next moves to the next key-value pair.
	Next() (key, value []byte, err error)
}
