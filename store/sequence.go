package store

import "encoding/binary"

// Sequence is a durable monotonically increasing counter. A fresh database
// starts every sequence at 0.
type Sequence struct {
	name string
	key  []byte
}

func (seq *Sequence) Name() string {
	return seq.name
}

// Peek returns the value the next call to Next will return.
func (seq *Sequence) Peek(tx *Tx) (uint64, error) {
	b, err := tx.bucket(globalsBucket)
	if err != nil {
		return 0, err
	}
	raw, err := b.Get(seq.key)
	if err != nil {
		return 0, tableErrf(globalsBucket, seq.key, err, "get")
	}
	if raw == nil {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, tableErrf(globalsBucket, seq.key, dataErrf(raw, 0, nil, "invalid sequence value"), "decoding")
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Next returns the current value and persists value+1. It must be called in
// a write transaction; the increment commits or rolls back with it.
func (seq *Sequence) Next(tx *Tx) (uint64, error) {
	cur, err := seq.Peek(tx)
	if err != nil {
		return 0, err
	}
	b, err := tx.bucket(globalsBucket)
	if err != nil {
		return 0, err
	}
	if err := b.Put(seq.key, binary.BigEndian.AppendUint64(nil, cur+1)); err != nil {
		return 0, tableErrf(globalsBucket, seq.key, err, "put")
	}
	tx.markWritten()
	tx.db.logf("db: NEXTID %s => %d", seq.name, cur)
	return cur, nil
}
