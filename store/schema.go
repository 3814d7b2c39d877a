package store

import "fmt"

const globalsBucket = "globals"

// Schema lists the tables and sequences of a database. Define it once at
// package level and pass it to Open.
type Schema struct {
	tables    []string
	sequences []*Sequence
	names     map[string]bool
}

func NewSchema() *Schema {
	return &Schema{names: make(map[string]bool)}
}

func (scm *Schema) claim(kind, name string) {
	if scm.names == nil {
		scm.names = make(map[string]bool)
	}
	if name == "" || name == globalsBucket {
		panic(fmt.Errorf("invalid %s name %q", kind, name))
	}
	if scm.names[kind+":"+name] {
		panic(fmt.Errorf("duplicate %s %q", kind, name))
	}
	scm.names[kind+":"+name] = true
}

// Tables returns the bucket names of all tables.
func (scm *Schema) Tables() []string {
	return append([]string(nil), scm.tables...)
}

func (scm *Schema) bucketNames() []string {
	names := append([]string(nil), scm.tables...)
	return append(names, globalsBucket)
}

// AddTable declares a table of V records, stored in its own bucket.
// Encoded values larger than maxSize bytes are rejected; zero means no limit.
func AddTable[V any](scm *Schema, name string, schemaVer uint64, maxSize int) *Table[V] {
	scm.claim("table", name)
	if schemaVer == 0 || schemaVer > maxSchemaVersion {
		panic(fmt.Errorf("%s: invalid schema version %d", name, schemaVer))
	}
	scm.tables = append(scm.tables, name)
	return &Table[V]{
		name:      name,
		schemaVer: schemaVer,
		maxSize:   maxSize,
		valueEnc:  defaultValueEncoding,
	}
}

// AddSequence declares a durable counter stored in the globals bucket.
func AddSequence(scm *Schema, name string) *Sequence {
	scm.claim("sequence", name)
	seq := &Sequence{name: name, key: []byte(name)}
	scm.sequences = append(scm.sequences, seq)
	return seq
}
