package journal

import (
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Record is a committed journal entry.
type Record struct {
	Segment   uint32
	ID        uint64
	Timestamp uint32
	Data      []byte
}

func (r Record) Time() time.Time {
	return time.Unix(int64(r.Timestamp), 0).UTC()
}

// Read calls f for every committed record in order. Reading stops silently
// at the first corrupted segment; errors returned by f are passed through.
func (j *Journal) Read(f func(rec Record) error) error {
	names, err := j.segmentNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		seq, _, firstRec, err := parseSegmentName(strings.TrimSuffix(strings.TrimPrefix(name, j.fileNamePrefix), j.fileNameSuffix))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(filepath.Join(j.dir, name))
		if err != nil {
			return err
		}
		err = j.scanSegment(data, seq, firstRec, f)
		if err == errCorruptedFile {
			j.logger.LogAttrs(j.context, slog.LevelWarn, "journal: stopping at corrupted segment", slog.String("jrnl", j.debugName), slog.String("file", name))
			return nil
		} else if err != nil {
			return err
		}
	}
	return nil
}

// All returns every committed record.
func (j *Journal) All() ([]Record, error) {
	var result []Record
	err := j.Read(func(rec Record) error {
		result = append(result, rec)
		return nil
	})
	return result, err
}

func (j *Journal) scanSegment(data []byte, seq uint32, firstRec uint64, f func(rec Record) error) error {
	if len(data) < segmentHeaderSize {
		return errCorruptedFile
	}
	var h segmentHeader
	if _, err := binary.Decode(data[:segmentHeaderSize], binary.LittleEndian, &h); err != nil {
		return errCorruptedFile
	}
	if h.Magic != magic {
		return errCorruptedFile
	}
	if h.Version != version0 {
		return ErrUnsupportedVersion
	}
	if h.SegmentOrdinal != seq {
		return errCorruptedFile
	}

	var hash xxhash.Digest
	hash.Reset()
	hash.Write(data[:segmentHeaderSize-8])
	if hash.Sum64() != h.Checksum {
		return errCorruptedFile
	}
	hash.Write(data[segmentHeaderSize-8 : segmentHeaderSize])

	var pending []Record
	ts := h.Timestamp
	rec := firstRec
	pos := segmentHeaderSize
	for pos < len(data) {
		if data[pos]&recordFlagCommit != 0 {
			if len(data)-pos < 8 {
				return errCorruptedFile
			}
			expected := commitTrailer(&hash)
			if string(expected[:]) != string(data[pos:pos+8]) {
				return errCorruptedFile
			}
			hash.Write(data[pos : pos+8])
			pos += 8
			for _, r := range pending {
				if err := f(r); err != nil {
					return err
				}
			}
			pending = pending[:0]
			continue
		}

		start := pos
		size, n := binary.Uvarint(data[pos:])
		if n <= 0 {
			return errCorruptedFile
		}
		pos += n
		size >>= recordFlagShift
		delta, n := binary.Uvarint(data[pos:])
		if n <= 0 || delta > 0xFFFF_FFFF {
			return errCorruptedFile
		}
		pos += n
		if size > maxRecordSize || size > uint64(len(data)-pos) {
			return errCorruptedFile
		}
		end := pos + int(size)
		hash.Write(data[start:end])

		ts += uint32(delta)
		pending = append(pending, Record{
			Segment:   seq,
			ID:        rec,
			Timestamp: ts,
			Data:      data[pos:end],
		})
		rec++
		pos = end
	}
	return nil
}
