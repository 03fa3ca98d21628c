// Package poller is the readiness primitive behind the session's
// cooperative single-threaded multiplexing model (SPEC_FULL.md §5):
// one task drives all of a session's backend handles over non-blocking
// sockets, waiting on whichever subset has bytes to read or room to
// write rather than blocking on any one of them.
package poller

import "time"

// Event reports a fd's readiness.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
}

// Interest is what a caller wants to be notified about for one fd.
type Interest struct {
	Fd       int
	Readable bool
	Writable bool
}

// Poller multiplexes readiness across a set of non-blocking file
// descriptors. The concrete implementation is epoll on Linux
// (poller_linux.go) and a poll(2)-based fallback elsewhere
// (poller_other.go) — both built on golang.org/x/sys/unix.
type Poller interface {
	Add(i Interest) error
	Modify(i Interest) error
	Remove(fd int) error
	Wait(timeout time.Duration) ([]Event, error)
	Close() error
}
