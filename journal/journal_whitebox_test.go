package journal

import (
	"testing"
)

func TestParseName(t *testing.T) {
	seq, ts, id, err := parseSegmentName("123-20230101T000000-11223344aabbccdd")
	if err != nil {
		t.Fatal(err)
	}
	if e := uint32(123); seq != e {
		t.Errorf("seq = %v, expected %v", seq, e)
	}
	if e := uint32(1672531200); ts != e {
		t.Errorf("ts = %v, expected %v", ts, e)
	}
	if e := uint64(0x11223344aabbccdd); id != e {
		t.Errorf("id = %x, expected %x", id, e)
	}
}

func TestParseName_invalid(t *testing.T) {
	for _, name := range []string{
		"",
		"123",
		"abc-20230101T000000-1",
		"123-2023-1",
		"123-20230101T000000-zz",
		"123-20230101T000000-0",
	} {
		if _, _, _, err := parseSegmentName(name); err == nil {
			t.Errorf("parseSegmentName(%q) succeeded", name)
		}
	}
}

func TestFormatName(t *testing.T) {
	a := formatSegmentName("j", ".wal", 7, 1672531200, 42)
	if e := "j000000000007-20230101T000000-000000000000002a.wal"; a != e {
		t.Errorf("got %q, expected %q", a, e)
	}
}

func TestRecordHeader(t *testing.T) {
	h := appendRecordHeader(nil, 5, 1000)
	if h[0]&recordFlagCommit != 0 {
		t.Errorf("record header must not look like a commit: %x", h)
	}
	if e := "\x0a\xe8\x07"; string(h) != e {
		t.Errorf("header = %x, expected %x", h, e)
	}
}
