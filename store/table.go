package store

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
)

// Table is a durable ordered map from uint64 keys to V records.
// Iteration is in ascending key order.
type Table[V any] struct {
	name      string
	schemaVer uint64
	maxSize   int
	valueEnc  encodingMethod
}

func (tbl *Table[V]) Name() string {
	return tbl.name
}

// MaxSize returns the maximum encoded size of a value, or 0 if unlimited.
func (tbl *Table[V]) MaxSize() int {
	return tbl.maxSize
}

// Entry is a key and its decoded record.
type Entry[V any] struct {
	Key uint64
	Row *V
}

func (tbl *Table[V]) encode(keyRaw []byte, row *V) ([]byte, error) {
	data, err := tbl.valueEnc.EncodeValue(nil, reflect.ValueOf(row))
	if err != nil {
		return nil, tableErrf(tbl.name, keyRaw, fmt.Errorf("%w: %w", ErrEncoding, err), "encoding")
	}
	raw := appendValue(make([]byte, 0, maxValueHeaderSize+len(data)), vfDefault, tbl.schemaVer, data)
	if tbl.maxSize > 0 && len(raw) > tbl.maxSize {
		return nil, tableErrf(tbl.name, keyRaw, ErrValueTooLarge, "encoded size %d exceeds limit %d", len(raw), tbl.maxSize)
	}
	return raw, nil
}

func (tbl *Table[V]) decode(tx *Tx, keyRaw, valueRaw []byte) (*V, error) {
	var vle value
	err := vle.decode(valueRaw)
	if err == nil && vle.SchemaVer > tbl.schemaVer {
		err = dataErrf(valueRaw, 0, nil, "schema version %d is newer than supported %d", vle.SchemaVer, tbl.schemaVer)
	}
	row := new(V)
	if err == nil {
		err = tbl.valueEnc.DecodeValue(vle.Data, reflect.ValueOf(row))
	}
	if err != nil {
		tx.db.logger.LogAttrs(context.Background(), slog.LevelWarn, "db: corrupted value", slog.String("table", tbl.name), hexAttr("key", keyRaw), slog.Any("err", err))
		return nil, tableErrf(tbl.name, keyRaw, err, "decoding")
	}
	return row, nil
}

// Get returns the record stored under k, or nil if there is none.
func (tbl *Table[V]) Get(tx *Tx, k uint64) (*V, error) {
	b, err := tx.bucket(tbl.name)
	if err != nil {
		return nil, err
	}
	keyRaw := EncodeKey(k)
	raw, err := b.Get(keyRaw)
	if err != nil {
		return nil, tableErrf(tbl.name, keyRaw, err, "get")
	}
	if raw == nil {
		tx.db.logf("db: GET.NOTFOUND %s/%d", tbl.name, k)
		return nil, nil
	}
	row, err := tbl.decode(tx, keyRaw, raw)
	if err != nil {
		return nil, err
	}
	tx.db.logf("db: GET %s/%d => %s", tbl.name, k, loggableRow(row))
	return row, nil
}

// Exists reports whether k is present, without decoding the record.
func (tbl *Table[V]) Exists(tx *Tx, k uint64) (bool, error) {
	b, err := tx.bucket(tbl.name)
	if err != nil {
		return false, err
	}
	raw, err := b.Get(EncodeKey(k))
	if err != nil {
		return false, tableErrf(tbl.name, EncodeKey(k), err, "exists")
	}
	return raw != nil, nil
}

// Put stores row under k and returns the previous record, if any.
// Nothing is written if row cannot be encoded within the size limit.
func (tbl *Table[V]) Put(tx *Tx, k uint64, row *V) (*V, error) {
	if row == nil {
		panic(fmt.Errorf("%s: nil row", tbl.name))
	}
	b, err := tx.bucket(tbl.name)
	if err != nil {
		return nil, err
	}
	keyRaw := EncodeKey(k)
	valueRaw, err := tbl.encode(keyRaw, row)
	if err != nil {
		return nil, err
	}

	var old *V
	oldRaw, err := b.Get(keyRaw)
	if err != nil {
		return nil, tableErrf(tbl.name, keyRaw, err, "get")
	}
	if oldRaw != nil {
		old, err = tbl.decode(tx, keyRaw, oldRaw)
		if err != nil {
			return nil, err
		}
	}

	if err := b.Put(keyRaw, valueRaw); err != nil {
		return nil, tableErrf(tbl.name, keyRaw, err, "put")
	}
	tx.markWritten()
	tx.db.logf("db: PUT %s/%d => %s", tbl.name, k, loggableRow(row))
	return old, nil
}

// Delete removes k and returns the removed record, or nil if k was absent.
func (tbl *Table[V]) Delete(tx *Tx, k uint64) (*V, error) {
	b, err := tx.bucket(tbl.name)
	if err != nil {
		return nil, err
	}
	keyRaw := EncodeKey(k)
	oldRaw, err := b.Get(keyRaw)
	if err != nil {
		return nil, tableErrf(tbl.name, keyRaw, err, "get")
	}
	if oldRaw == nil {
		tx.db.logf("db: DELETE.NOOP %s/%d", tbl.name, k)
		return nil, nil
	}
	old, err := tbl.decode(tx, keyRaw, oldRaw)
	if err != nil {
		return nil, err
	}
	if err := b.Delete(keyRaw); err != nil {
		return nil, tableErrf(tbl.name, keyRaw, err, "delete")
	}
	tx.markWritten()
	tx.db.logf("db: DELETE %s/%d", tbl.name, k)
	return old, nil
}

// Remove deletes k without decoding the stored record, so it also removes
// corrupted values. It reports whether k was present.
func (tbl *Table[V]) Remove(tx *Tx, k uint64) (bool, error) {
	b, err := tx.bucket(tbl.name)
	if err != nil {
		return false, err
	}
	keyRaw := EncodeKey(k)
	oldRaw, err := b.Get(keyRaw)
	if err != nil {
		return false, tableErrf(tbl.name, keyRaw, err, "get")
	}
	if oldRaw == nil {
		tx.db.logf("db: DELETE.NOOP %s/%d", tbl.name, k)
		return false, nil
	}
	if err := b.Delete(keyRaw); err != nil {
		return false, tableErrf(tbl.name, keyRaw, err, "delete")
	}
	tx.markWritten()
	tx.db.logf("db: DELETE %s/%d", tbl.name, k)
	return true, nil
}

// Walk calls f for every record in ascending key order. It stops at the
// first error, including the first undecodable record. Returning ErrStop
// from f ends the walk early without error.
func (tbl *Table[V]) Walk(tx *Tx, f func(k uint64, row *V) error) error {
	return tbl.WalkFrom(tx, 0, f)
}

// WalkFrom is like Walk but starts at the first key >= start.
func (tbl *Table[V]) WalkFrom(tx *Tx, start uint64, f func(k uint64, row *V) error) error {
	b, err := tx.bucket(tbl.name)
	if err != nil {
		return err
	}
	c := b.Cursor()
	var k, v []byte
	if start == 0 {
		k, v, err = c.First()
	} else {
		k, v, err = c.Seek(EncodeKey(start))
	}
	for ; k != nil && err == nil; k, v, err = c.Next() {
		key, err := DecodeKey(k)
		if err != nil {
			return tableErrf(tbl.name, k, err, "scan")
		}
		row, err := tbl.decode(tx, k, v)
		if err != nil {
			return err
		}
		if err := f(key, row); err == ErrStop {
			return nil
		} else if err != nil {
			return err
		}
	}
	if err != nil {
		return tableErrf(tbl.name, nil, err, "scan")
	}
	return nil
}

// All returns every record in ascending key order.
func (tbl *Table[V]) All(tx *Tx) ([]Entry[V], error) {
	var result []Entry[V]
	err := tbl.Walk(tx, func(k uint64, row *V) error {
		result = append(result, Entry[V]{k, row})
		return nil
	})
	if err != nil {
		return nil, err
	}
	tx.db.logf("db: SCAN %s => %d rows", tbl.name, len(result))
	return result, nil
}

// Count returns the number of records.
func (tbl *Table[V]) Count(tx *Tx) (int, error) {
	b, err := tx.bucket(tbl.name)
	if err != nil {
		return 0, err
	}
	return b.KeyCount()
}

// PutRaw stores raw bytes under k verbatim, bypassing encoding and the size
// limit. Intended for repair tooling and fault injection.
func (tbl *Table[V]) PutRaw(tx *Tx, k uint64, raw []byte) error {
	b, err := tx.bucket(tbl.name)
	if err != nil {
		return err
	}
	tx.markWritten()
	return b.Put(EncodeKey(k), raw)
}
