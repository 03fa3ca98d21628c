package node

import "testing"

func TestBufferWriteConsumeInvariant(t *testing.T) {
	b := NewBuffer(4)
	if !b.Invariant() {
		t.Fatalf("fresh buffer violates invariant")
	}

	b.Write([]byte("hello world, this is longer than 4 bytes"))
	if !b.Invariant() {
		t.Fatalf("buffer violates invariant after grow")
	}
	if b.Len() != len("hello world, this is longer than 4 bytes") {
		t.Fatalf("Len() = %d, want %d", b.Len(), len("hello world, this is longer than 4 bytes"))
	}

	if err := b.Advance(6); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if string(b.Unread()) != "world, this is longer than 4 bytes" {
		t.Fatalf("Unread() = %q", b.Unread())
	}

	b.Consume()
	if !b.Invariant() {
		t.Fatalf("buffer violates invariant after Consume")
	}
	if string(b.Bytes()) != "world, this is longer than 4 bytes" {
		t.Fatalf("Bytes() after consume = %q", b.Bytes())
	}
}

func TestBufferAdvancePastEndRejected(t *testing.T) {
	b := NewBuffer(8)
	b.Write([]byte("abc"))
	if err := b.Advance(10); err == nil {
		t.Fatalf("expected error advancing past end")
	}
}

func TestHandleOwnershipSingleOwner(t *testing.T) {
	h := NewHandle(ID{Role: RoleData, Num: 1}, NoopCancelToken{})
	o1 := fakeOwner(1)
	o2 := fakeOwner(2)

	if err := h.Attach(o1); err != nil {
		t.Fatalf("Attach o1: %v", err)
	}
	if err := h.Attach(o1); err != nil {
		t.Fatalf("re-Attach o1 should be a no-op: %v", err)
	}
	if err := h.Attach(o2); err == nil {
		t.Fatalf("expected ownership conflict attaching o2 while o1 owns")
	}

	h.Detach()
	if err := h.Attach(o2); err != nil {
		t.Fatalf("Attach o2 after Detach: %v", err)
	}
	if h.Owner().OwnerID() != o2.OwnerID() {
		t.Fatalf("Owner() = %v, want o2", h.Owner())
	}
}

type fakeOwner uintptr

func (f fakeOwner) OwnerID() uintptr { return uintptr(f) }
