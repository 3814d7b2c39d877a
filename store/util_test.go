package store

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeKey(t *testing.T) {
	deepEqual(t, EncodeKey(0x0102), []byte{0, 0, 0, 0, 0, 0, 1, 2})
	deepEqual(t, must(DecodeKey(EncodeKey(1<<63+5))), uint64(1<<63+5))
	if _, err := DecodeKey([]byte{1, 2}); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("DecodeKey(short) = %v, wanted ErrCorrupted", err)
	}
}

func TestHexHelpers(t *testing.T) {
	if got := hexstr(nil); got != "<nil>" {
		t.Fatalf("hexstr(nil) = %q, wanted <nil>", got)
	}
	if got := hexstr([]byte{}); got != "<empty>" {
		t.Fatalf("hexstr(empty) = %q, wanted <empty>", got)
	}
	if got := hexstr([]byte{0xAA, 0xBB}); got != "aabb" {
		t.Fatalf("hexstr = %q, wanted aabb", got)
	}
	a := hexAttr("k", []byte{0xAA})
	if a.Key != "k" || a.Value.Kind() != slog.KindString {
		t.Fatalf("hexAttr returned unexpected attr: %+v", a)
	}
}

func TestDataError_ErrorAndUnwrap(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		inner := errors.New("inner")
		err := dataErrf([]byte{0xAA, 0xBB}, 1, inner, "oops")
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("err = %T, wanted *DataError", err)
		}
		if !errors.Is(err, inner) || !errors.Is(err, ErrCorrupted) {
			t.Fatalf("errors.Is(err, inner/ErrCorrupted) = false, wanted true")
		}
		s := err.Error()
		if !strings.Contains(s, "oops") || !strings.Contains(s, "inner") || !strings.Contains(s, "(2)") {
			t.Fatalf("err.Error() = %q, wanted message with oops/inner/(2)", s)
		}
	})

	t.Run("large data includes prefix+suffix", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		err := dataErrf(data, 0, nil, "oops")
		s := err.Error()
		if !strings.Contains(s, "(200)") || !strings.Contains(s, "...") {
			t.Fatalf("err.Error() = %q, wanted message with (200) and ...", s)
		}
	})
}

func TestTableError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := tableErrf("users", []byte("k"), inner, "oops %d", 1)
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
	s := err.Error()
	if s != "users/6b: oops 1: inner" {
		t.Fatalf("err.Error() = %q, wanted %q", s, "users/6b: oops 1: inner")
	}

	s = (&TableError{Table: "T", Err: inner}).Error()
	if s != "T: inner" {
		t.Fatalf("TableError.Error() = %q, wanted %q", s, "T: inner")
	}
}

func TestValueHeader(t *testing.T) {
	raw := appendValue(nil, vfDefault, 3, []byte("hello"))
	deepEqual(t, raw, []byte{0x01, 0x03, 0x05, 'h', 'e', 'l', 'l', 'o'})

	var vle value
	ensure(vle.decode(raw))
	deepEqual(t, vle, value{Flags: vfVer1, SchemaVer: 3, Data: []byte("hello")})

	if err := vle.decode([]byte{0x02, 0x01, 0x00, 0x00}); err == nil {
		t.Fatalf("decode(unsupported flags) succeeded, wanted error")
	}
	if err := vle.decode([]byte{0x01, 0x00, 0x00, 0x00}); err == nil {
		t.Fatalf("decode(zero schema version) succeeded, wanted error")
	}
}

func TestEncoding_deterministic(t *testing.T) {
	type withMap struct {
		M map[string]string `msgpack:"m"`
	}
	a := withMap{M: map[string]string{"b": "2", "a": "1", "c": "3", "d": "4", "e": "5"}}
	first := must(MsgPack.EncodeValue(nil, reflect.ValueOf(&a)))
	for i := 0; i < 20; i++ {
		deepEqual(t, must(MsgPack.EncodeValue(nil, reflect.ValueOf(&a))), first)
	}

	var b withMap
	ensure(MsgPack.DecodeValue(first, reflect.ValueOf(&b)))
	deepEqual(t, b, a)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}
