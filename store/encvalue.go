package store

import (
	"encoding/binary"
)

type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfVerBit2
	vfVerBit3

	vfVerMask       = (vfVerBit0 | vfVerBit1 | vfVerBit2 | vfVerBit3)
	vfVer1          = vfVerBit0
	vfSupportedMask = vfVer1
	vfDefault       = vfVer1

	minValueSize       = 4
	maxValueHeaderSize = binary.MaxVarintLen64 * 3
	maxSchemaVersion   = 32768 // just a sanity value, can be increased
)

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

// value is a decoded table value: a uvarint header (flags, schema version,
// data size) followed by the encoded record.
type value struct {
	Flags     valueFlags
	SchemaVer uint64
	Data      []byte
}

func appendValue(buf []byte, flags valueFlags, schemaVer uint64, data []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(flags))
	buf = binary.AppendUvarint(buf, schemaVer)
	buf = binary.AppendUvarint(buf, uint64(len(data)))
	return append(buf, data...)
}

func (vle *value) decode(data []byte) error {
	orig := data
	if len(data) < minValueSize {
		return dataErrf(orig, 0, nil, "invalid value: at least %d bytes required", minValueSize)
	}

	v, n := binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: bad flags")
	}
	if (v&^uint64(vfSupportedMask)) != 0 || valueFlags(v).ver() != vfVer1 {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: unsupported flags %x", v)
	}
	vle.Flags, data = valueFlags(v), data[n:]

	v, n = binary.Uvarint(data)
	if n <= 0 || v == 0 || v > maxSchemaVersion {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: bad schema version")
	}
	vle.SchemaVer, data = v, data[n:]

	dataSize, n := binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: bad data size")
	}
	data = data[n:]

	if uint64(len(data)) != dataSize {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: got %d bytes of data, expected %d bytes", len(data), dataSize)
	}
	vle.Data = data
	return nil
}
