package store

import (
	"fmt"
	"runtime/debug"
)

// Tx is a store transaction. A Tx must not be used after the function it
// was passed to returns.
type Tx struct {
	db      *DB
	stx     storageTx
	written bool
}

func (tx *Tx) markWritten() {
	tx.written = true
}

func (tx *Tx) bucket(name string) (storageBucket, error) {
	b, err := tx.stx.Bucket(name)
	if err != nil {
		return nil, fmt.Errorf("bucket %s: %w", name, err)
	}
	if b == nil {
		return nil, fmt.Errorf("missing bucket %s", name)
	}
	return b, nil
}

// Tx runs f inside a transaction. A writable transaction is committed if f
// returns nil and rolled back otherwise. Write transactions are exclusive:
// a second writer waits for the first to finish. A panic inside f is
// recovered and returned as an error.
func (db *DB) Tx(writable bool, f func(tx *Tx) error) error {
	return db.tx(writable, true, f)
}

// tx runs f like Tx. Transactions the store runs for itself (schema setup,
// Stats) pass counted=false so ReadCount and WriteCount only reflect callers.
func (db *DB) tx(writable, counted bool, f func(tx *Tx) error) error {
	stx, err := db.st.BeginTx(writable)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	tx := &Tx{db: db, stx: stx}
	defer stx.Rollback()

	if counted && writable {
		db.WriteCount.Add(1)
	} else if counted {
		db.ReadCount.Add(1)
	}

	if err := safelyCall(f, tx); err != nil {
		return err
	}
	if !writable {
		return nil
	}
	db.lastSize.Store(stx.Size())
	if err := stx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (db *DB) Read(f func(tx *Tx) error) error {
	return db.Tx(false, f)
}

func (db *DB) Write(f func(tx *Tx) error) error {
	return db.Tx(true, f)
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}
