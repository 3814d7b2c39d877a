package store

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type (
	User struct {
		Name  string `msgpack:"n"`
		Email string `msgpack:"e"`
		Age   uint32 `msgpack:"a"`
	}
)

var (
	basicSchema = NewSchema()
	usersTable  = AddTable[User](basicSchema, "users", 1, 128)
	postsTable  = AddTable[User](basicSchema, "posts", 1, 0)
	idSeq       = AddSequence(basicSchema, "ids")
)

var backends = []Backend{Bolt, SQLite, Memory}

func forEachBackend(t *testing.T, f func(t *testing.T, db *DB)) {
	for _, b := range backends {
		t.Run(b.String(), func(t *testing.T) {
			f(t, setup(t, basicSchema, b))
		})
	}
}

func TestDB(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		u1 := &User{Name: "foo", Email: "foo@example.com", Age: 30}
		u2 := &User{Name: "bar", Email: "bar@example.com", Age: 40}

		ensure(db.Write(func(tx *Tx) error {
			isnil(t, must(usersTable.Put(tx, 2, u2)))
			isnil(t, must(usersTable.Put(tx, 1, u1)))
			return nil
		}))

		ensure(db.Read(func(tx *Tx) error {
			deepEqual(t, must(usersTable.Get(tx, 1)), u1)
			deepEqual(t, must(usersTable.Get(tx, 2)), u2)
			isnil(t, must(usersTable.Get(tx, 3)))
			isnil(t, must(postsTable.Get(tx, 1)))
			deepEqual(t, must(usersTable.Count(tx)), 2)
			deepEqual(t, must(usersTable.Exists(tx, 1)), true)
			deepEqual(t, must(usersTable.Exists(tx, 3)), false)
			return nil
		}))

		ensure(db.Read(func(tx *Tx) error {
			deepEqual(t, must(usersTable.All(tx)), []Entry[User]{{1, u1}, {2, u2}})
			return nil
		}))

		u1b := &User{Name: "foo2", Email: "foo@example.com"}
		ensure(db.Write(func(tx *Tx) error {
			deepEqual(t, must(usersTable.Put(tx, 1, u1b)), u1)
			deepEqual(t, must(usersTable.Delete(tx, 2)), u2)
			isnil(t, must(usersTable.Delete(tx, 2)))
			return nil
		}))

		ensure(db.Read(func(tx *Tx) error {
			deepEqual(t, must(usersTable.All(tx)), []Entry[User]{{1, u1b}})
			return nil
		}))
	})
}

func TestDB_ascendingOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		keys := []uint64{300, 2, 1 << 40, 0, 256, 1}
		ensure(db.Write(func(tx *Tx) error {
			for _, k := range keys {
				must(postsTable.Put(tx, k, &User{Age: uint32(k % 1000)}))
			}
			return nil
		}))

		var got []uint64
		ensure(db.Read(func(tx *Tx) error {
			return postsTable.Walk(tx, func(k uint64, row *User) error {
				got = append(got, k)
				return nil
			})
		}))
		deepEqual(t, got, []uint64{0, 1, 2, 256, 300, 1 << 40})

		// walks are restartable and may stop early
		got = nil
		ensure(db.Read(func(tx *Tx) error {
			return postsTable.Walk(tx, func(k uint64, row *User) error {
				got = append(got, k)
				if len(got) == 2 {
					return ErrStop
				}
				return nil
			})
		}))
		deepEqual(t, got, []uint64{0, 1})

		got = nil
		ensure(db.Read(func(tx *Tx) error {
			return postsTable.WalkFrom(tx, 3, func(k uint64, row *User) error {
				got = append(got, k)
				return nil
			})
		}))
		deepEqual(t, got, []uint64{256, 300, 1 << 40})

		got = nil
		ensure(db.Read(func(tx *Tx) error {
			return postsTable.WalkFrom(tx, 1<<41, func(k uint64, row *User) error {
				got = append(got, k)
				return nil
			})
		}))
		deepEqual(t, len(got), 0)
	})
}

func TestDB_rollbackOnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		boom := errors.New("boom")
		err := db.Write(func(tx *Tx) error {
			must(usersTable.Put(tx, 1, &User{Name: "x"}))
			must(idSeq.Next(tx))
			return boom
		})
		if err != boom {
			t.Fatalf("Write = %v, wanted %v", err, boom)
		}
		ensure(db.Read(func(tx *Tx) error {
			isnil(t, must(usersTable.Get(tx, 1)))
			deepEqual(t, must(idSeq.Peek(tx)), uint64(0))
			return nil
		}))
	})
}

func TestDB_panicBecomesError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		err := db.Write(func(tx *Tx) error {
			must(usersTable.Put(tx, 1, &User{Name: "x"}))
			panic("kaboom")
		})
		if err == nil || !strings.Contains(err.Error(), "panic: kaboom") {
			t.Fatalf("Write = %v, wanted panic error", err)
		}
		ensure(db.Read(func(tx *Tx) error {
			isnil(t, must(usersTable.Get(tx, 1)))
			return nil
		}))

		// the writer lock must have been released
		ensure(db.Write(func(tx *Tx) error {
			_, err := usersTable.Put(tx, 1, &User{Name: "y"})
			return err
		}))
	})
}

func TestDB_valueTooLarge(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		err := db.Write(func(tx *Tx) error {
			_, err := usersTable.Put(tx, 7, &User{Name: strings.Repeat("x", 200)})
			return err
		})
		if !errors.Is(err, ErrValueTooLarge) || !errors.Is(err, ErrEncoding) {
			t.Fatalf("Put(oversized) = %v, wanted ErrValueTooLarge", err)
		}
		var te *TableError
		if !errors.As(err, &te) || te.Table != "users" {
			t.Fatalf("Put(oversized) = %T %v, wanted *TableError for users", err, err)
		}
		ensure(db.Read(func(tx *Tx) error {
			isnil(t, must(usersTable.Get(tx, 7)))
			return nil
		}))

		// unlimited table accepts the same row
		ensure(db.Write(func(tx *Tx) error {
			_, err := postsTable.Put(tx, 7, &User{Name: strings.Repeat("x", 200)})
			return err
		}))
	})
}

func TestDB_corruptedValue(t *testing.T) {
	cases := map[string][]byte{
		"garbage":          {0xff, 0xff, 0xff, 0xff, 0xff},
		"short":            {0x01},
		"bad msgpack":      appendValue(nil, vfDefault, 1, []byte{0xc1}),
		"truncated":        appendValue(nil, vfDefault, 1, []byte{0x83, 0xa1, 'n'}),
		"future schema":    appendValue(nil, vfDefault, 9, []byte{0x80}),
		"size mismatch":    append(appendValue(nil, vfDefault, 1, []byte{0x80}), 0x00),
		"trailing msgpack": appendValue(nil, vfDefault, 1, []byte{0x80, 0x80}),
	}
	forEachBackend(t, func(t *testing.T, db *DB) {
		for name, raw := range cases {
			t.Run(name, func(t *testing.T) {
				ensure(db.Write(func(tx *Tx) error {
					return usersTable.PutRaw(tx, 5, raw)
				}))
				err := db.Read(func(tx *Tx) error {
					row, err := usersTable.Get(tx, 5)
					if row != nil {
						t.Errorf("** got row %v for corrupted bytes, wanted nil", row)
					}
					return err
				})
				if !errors.Is(err, ErrCorrupted) {
					t.Fatalf("Get(corrupted) = %v, wanted ErrCorrupted", err)
				}
				var de *DataError
				if !errors.As(err, &de) {
					t.Fatalf("Get(corrupted) = %T, wanted *DataError inside", err)
				}

				err = db.Read(func(tx *Tx) error {
					_, err := usersTable.All(tx)
					return err
				})
				if !errors.Is(err, ErrCorrupted) {
					t.Fatalf("All(corrupted) = %v, wanted ErrCorrupted", err)
				}
			})
		}
	})
}

func TestTable_removeCorrupted(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		ensure(db.Write(func(tx *Tx) error {
			return usersTable.PutRaw(tx, 7, []byte{0xff, 0xff})
		}))
		ensure(db.Write(func(tx *Tx) error {
			deepEqual(t, must(usersTable.Remove(tx, 7)), true)
			deepEqual(t, must(usersTable.Remove(tx, 7)), false)
			return nil
		}))
		ensure(db.Read(func(tx *Tx) error {
			deepEqual(t, must(usersTable.Exists(tx, 7)), false)
			return nil
		}))
	})
}

func TestSequence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		var got []uint64
		for i := 0; i < 3; i++ {
			ensure(db.Write(func(tx *Tx) error {
				got = append(got, must(idSeq.Next(tx)))
				return nil
			}))
		}
		deepEqual(t, got, []uint64{0, 1, 2})
		ensure(db.Read(func(tx *Tx) error {
			deepEqual(t, must(idSeq.Peek(tx)), uint64(3))
			return nil
		}))
	})
}

func TestSequence_readOnlyTx(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		err := db.Read(func(tx *Tx) error {
			_, err := idSeq.Next(tx)
			return err
		})
		if err == nil {
			t.Fatalf("Next in read tx succeeded, wanted error")
		}
	})
}

func TestDB_reopen(t *testing.T) {
	for _, b := range []Backend{Bolt, SQLite} {
		t.Run(b.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reopen.db")
			db := must(Open(path, basicSchema, Options{Backend: b, IsTesting: true}))
			ensure(db.Write(func(tx *Tx) error {
				id := must(idSeq.Next(tx))
				_, err := usersTable.Put(tx, id, &User{Name: "persisted"})
				return err
			}))
			ensure(db.Close())

			db = must(Open(path, basicSchema, Options{Backend: b, IsTesting: true}))
			t.Cleanup(func() { db.Close() })
			ensure(db.Write(func(tx *Tx) error {
				deepEqual(t, must(usersTable.Get(tx, 0)), &User{Name: "persisted"})
				deepEqual(t, must(idSeq.Next(tx)), uint64(1))
				return nil
			}))
		})
	}
}

func TestDB_backup(t *testing.T) {
	for _, b := range []Backend{Bolt, SQLite} {
		t.Run(b.String(), func(t *testing.T) {
			db := setup(t, basicSchema, b)
			ensure(db.Write(func(tx *Tx) error {
				_, err := usersTable.Put(tx, 1, &User{Name: "backed up"})
				return err
			}))

			var buf bytes.Buffer
			n := must(db.Backup(&buf))
			if n == 0 || int64(buf.Len()) != n {
				t.Fatalf("Backup wrote %d bytes, buffer has %d", n, buf.Len())
			}

			path := filepath.Join(t.TempDir(), "restored.db")
			ensure(os.WriteFile(path, buf.Bytes(), 0o600))
			restored := must(Open(path, basicSchema, Options{Backend: b, IsTesting: true}))
			t.Cleanup(func() { restored.Close() })
			ensure(restored.Read(func(tx *Tx) error {
				deepEqual(t, must(usersTable.Get(tx, 1)), &User{Name: "backed up"})
				return nil
			}))
		})
	}

	db := setup(t, basicSchema, Memory)
	if _, err := db.Backup(&bytes.Buffer{}); !errors.Is(err, ErrBackupUnsupported) {
		t.Fatalf("Backup(memory) = %v, wanted ErrBackupUnsupported", err)
	}
}

func TestDB_stats(t *testing.T) {
	db := setup(t, basicSchema, Memory)
	ensure(db.Write(func(tx *Tx) error {
		must(usersTable.Put(tx, 1, &User{}))
		must(usersTable.Put(tx, 2, &User{}))
		return nil
	}))
	ensure(db.Read(func(tx *Tx) error { return nil }))
	st := must(db.Stats())
	deepEqual(t, st.Tables, []TableStats{{"users", 2}, {"posts", 0}})
	deepEqual(t, st.Backend, Memory)
	deepEqual(t, st.Writes, uint64(1))
	deepEqual(t, st.Reads, uint64(1))

	// Stats itself is not counted as a read
	st = must(db.Stats())
	deepEqual(t, st.Reads, uint64(1))
}

func TestSQLiteBucket_queryError(t *testing.T) {
	st := must(openSQLiteStorage(filepath.Join(t.TempDir(), "sq.db")))
	defer st.Close()
	stx := must(st.BeginTx(false))
	defer stx.Rollback()

	b, err := stx.Bucket("nope")
	ensure(err)
	if b != nil {
		t.Fatalf("Bucket(nope) = %v, wanted nil", b)
	}

	ensure(stx.(*sqliteTx).stx.Rollback())
	_, err = stx.Bucket("users")
	if !errors.Is(err, sql.ErrTxDone) {
		t.Fatalf("Bucket after rollback = %v, wanted sql.ErrTxDone", err)
	}
	_, err = (&Tx{stx: stx}).bucket("users")
	if err == nil || strings.Contains(err.Error(), "missing bucket") {
		t.Fatalf("bucket after rollback = %v, wanted the query error", err)
	}
}

func TestParseBackend(t *testing.T) {
	for s, e := range map[string]Backend{"": Bolt, "bolt": Bolt, "SQLite": SQLite, "memory": Memory} {
		deepEqual(t, must(ParseBackend(s)), e)
	}
	if _, err := ParseBackend("postgres"); err == nil {
		t.Fatalf("ParseBackend(postgres) succeeded, wanted error")
	}
}

func setup(t testing.TB, schema *Schema, backend Backend) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "db_test.db")
	t.Logf("DB: %s (%v)", path, backend)

	db := must(Open(path, schema, Options{
		Backend:   backend,
		IsTesting: true,
		Verbose:   true,
	}))
	t.Cleanup(func() { db.Close() })
	return db
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isnil[T any, P ~*T](t testing.TB, a P) {
	if a != nil {
		t.Helper()
		t.Errorf("** got &%v, wanted nil", *a)
	}
}
