package wire

import (
	"testing"

	"github.com/mnohosten/laura-remotex/pkg/node"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	buf := node.NewBuffer(16)
	WriteFrame(buf, TagCommandComplete, []byte("INSERT 0 1\x00"))

	f, ok, err := ReadFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a complete frame")
	}
	if f.Tag != TagCommandComplete {
		t.Fatalf("tag = %q, want %q", f.Tag, TagCommandComplete)
	}
	cc, err := ParseCommandComplete(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if cc.Processed != 1 {
		t.Fatalf("Processed = %d, want 1", cc.Processed)
	}
}

func TestReadFrameIncomplete(t *testing.T) {
	buf := node.NewBuffer(16)
	WriteFrame(buf, TagReadyForQuery, []byte{'I'})
	full := append([]byte{}, buf.Bytes()...)
	buf2 := node.NewBuffer(16)
	// Feed only the first 3 bytes (less than the 5-byte header).
	_, _ = buf2.Write(full[:3])
	_, ok, err := ReadFrame(buf2)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected incomplete frame to report ok=false")
	}
}

func TestParseErrorResponse(t *testing.T) {
	payload := append([]byte{}, 'C')
	payload = append(payload, []byte("40001\x00")...)
	payload = append(payload, 'M')
	payload = append(payload, []byte("serialization failure\x00")...)
	payload = append(payload, 'D')
	payload = append(payload, []byte("could not serialize access\x00")...)
	payload = append(payload, 0)

	ef, err := ParseErrorResponse(payload)
	if err != nil {
		t.Fatal(err)
	}
	if ef.Code != "40001" || ef.Message != "serialization failure" {
		t.Fatalf("got %+v", ef)
	}
	if ef.Detail != "could not serialize access" {
		t.Fatalf("detail = %q", ef.Detail)
	}
}

func TestParseRowDescriptionAndDataRow(t *testing.T) {
	buf := node.NewBuffer(64)
	// One column "id".
	rd := []byte{0, 1}
	rd = append(rd, cstring("id")...)
	rd = append(rd, make([]byte, 18)...)
	WriteFrame(buf, TagRowDescription, rd)

	f, ok, err := ReadFrame(buf)
	if err != nil || !ok {
		t.Fatalf("ReadFrame: ok=%v err=%v", ok, err)
	}
	td, err := ParseRowDescription(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(td.Columns) != 1 || td.Columns[0] != "id" {
		t.Fatalf("columns = %v", td.Columns)
	}

	buf2 := node.NewBuffer(64)
	dr := []byte{0, 1, 0, 0, 0, 1, '7'}
	WriteFrame(buf2, TagDataRow, dr)
	f2, ok, err := ReadFrame(buf2)
	if err != nil || !ok {
		t.Fatalf("ReadFrame: ok=%v err=%v", ok, err)
	}
	row, err := ParseDataRow(f2.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(row.Values) != 1 || string(row.Values[0]) != "7" {
		t.Fatalf("row = %+v", row)
	}
}

func TestCopySpoolSmallStaysUncompressed(t *testing.T) {
	s := NewCopySpool(1024)
	_, _ = s.Write([]byte("hello"))
	if s.Spooled() {
		t.Fatal("small payload should not spool")
	}
	b, ok := s.Bytes()
	if !ok || string(b) != "hello" {
		t.Fatalf("Bytes() = %q, %v", b, ok)
	}
}

func TestCopySpoolLargeSpools(t *testing.T) {
	s := NewCopySpool(8)
	_, _ = s.Write(make([]byte, 1024))
	if !s.Spooled() {
		t.Fatal("large payload should spool")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	_, ok := s.CompressedBytes()
	if !ok {
		t.Fatal("expected compressed bytes")
	}
	if s.RawSize() != 1024 {
		t.Fatalf("RawSize = %d, want 1024", s.RawSize())
	}
}
