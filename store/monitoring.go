package store

import (
	"encoding/json"
)

type TableStats struct {
	Name string
	Rows int
}

type Stats struct {
	Backend Backend
	Size    int64
	Reads   uint64
	Writes  uint64
	Tables  []TableStats
}

// Stats reports row counts of every table along with transaction counters.
func (db *DB) Stats() (Stats, error) {
	result := Stats{
		Backend: db.Backend(),
		Reads:   db.ReadCount.Load(),
		Writes:  db.WriteCount.Load(),
	}
	err := db.tx(false, false, func(tx *Tx) error {
		result.Size = tx.stx.Size()
		for _, name := range db.schema.Tables() {
			b, err := tx.bucket(name)
			if err != nil {
				return err
			}
			n, err := b.KeyCount()
			if err != nil {
				return err
			}
			result.Tables = append(result.Tables, TableStats{Name: name, Rows: n})
		}
		return nil
	})
	return result, err
}

type loggable struct {
	v any
}

// loggableRow defers JSON rendering of a row until a log line is actually
// formatted.
func loggableRow(row any) loggable {
	return loggable{row}
}

func (l loggable) String() string {
	if l.v == nil {
		return "<none>"
	}
	raw, err := json.Marshal(l.v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(raw)
}
