package store

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

type encodingMethod int

const (
	MsgPack encodingMethod = iota

	defaultValueEncoding = MsgPack
)

// EncodeValue appends the encoding of objVal to buf. Struct fields are
// written in declaration order. Keys of map[string]string and
// map[string]interface{} are sorted; other map kinds are written in
// iteration order, so record types should avoid them.
func (enc encodingMethod) EncodeValue(buf []byte, objVal reflect.Value) ([]byte, error) {
	switch enc {
	case MsgPack:
		bb := bytesBuilder{buf}
		menc := msgpack.GetEncoder()
		menc.Reset(&bb)
		menc.SetSortMapKeys(true)
		err := menc.EncodeValue(objVal)
		msgpack.PutEncoder(menc)
		if err != nil {
			return buf, fmt.Errorf("failed to encode %v using MsgPack: %w", objVal.Type(), err)
		}
		return bb.Buf, nil
	default:
		panic("unsupported encoding")
	}
}

func (enc encodingMethod) DecodeValue(buf []byte, objPtrVal reflect.Value) error {
	switch enc {
	case MsgPack:
		var r bytes.Reader
		r.Reset(buf)
		dec := msgpack.GetDecoder()
		dec.Reset(&r)
		err := dec.DecodeValue(objPtrVal)
		msgpack.PutDecoder(dec)
		if err != nil {
			return dataErrf(buf, 0, err, "failed to decode msgpack into %v", objPtrVal.Type())
		}
		if r.Len() != 0 {
			return dataErrf(buf, len(buf)-r.Len(), nil, "%d trailing bytes after msgpack %v", r.Len(), objPtrVal.Type())
		}
		return nil
	default:
		panic("unsupported encoding")
	}
}

// bytesBuilder is an io.Writer appending to a caller-owned buffer.
type bytesBuilder struct {
	Buf []byte
}

func (bb *bytesBuilder) Write(p []byte) (int, error) {
	bb.Buf = append(bb.Buf, p...)
	return len(p), nil
}

func (bb *bytesBuilder) WriteByte(c byte) error {
	bb.Buf = append(bb.Buf, c)
	return nil
}

func (bb *bytesBuilder) WriteString(s string) (int, error) {
	bb.Buf = append(bb.Buf, s...)
	return len(s), nil
}
