package poolclient

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, MsgSet, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	mt, payload, err := readFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if mt != MsgSet {
		t.Fatalf("type = %q, want %q", mt, MsgSet)
	}
	if string(payload) != "hello" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestU32ArrayRoundTrip(t *testing.T) {
	b := putU32Array(nil, []uint32{1, 2, 3})
	got, rest, err := getU32Array(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected trailing bytes: %v", rest)
	}
	want := []uint32{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	b := putString(nil, "mydb")
	got, rest, err := getString(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != "mydb" || len(rest) != 0 {
		t.Fatalf("got %q, rest %v", got, rest)
	}
}
