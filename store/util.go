package store

import (
	"encoding/binary"
	"encoding/hex"
	"log/slog"
)

// EncodeKey returns the 8-byte big-endian form of k, which sorts the same
// way as the number itself.
func EncodeKey(k uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), k)
}

// DecodeKey is the inverse of EncodeKey.
func DecodeKey(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, dataErrf(raw, 0, nil, "invalid key: expected 8 bytes")
	}
	return binary.BigEndian.Uint64(raw), nil
}

func hexstr(b []byte) string {
	if b == nil {
		return "<nil>"
	}
	if len(b) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(b)
}

func hexAttr(key string, b []byte) slog.Attr {
	return slog.String(key, hexstr(b))
}
