//go:build linux

package poller

import (
	"os"
	"testing"
	"time"
)

func TestEpollPollerReportsReadable(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Add(Interest{Fd: int(r.Fd()), Readable: true}); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}

	events, err := p.Wait(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || !events[0].Readable || events[0].Fd != int(r.Fd()) {
		t.Fatalf("events = %+v", events)
	}
}
