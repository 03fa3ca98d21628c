//go:build !linux

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller is the portable fallback readiness primitive for
// platforms other than Linux: golang.org/x/sys/unix.Poll wraps
// poll(2), which every Unix this module targets implements, so it
// stands in for kqueue's event queue at the fd counts a session
// actually reaches (one fd per backend handle) without pulling in a
// second, kqueue-specific code path.
type pollPoller struct {
	interests map[int]Interest
}

// New returns the poll-backed Poller.
func New() (Poller, error) {
	return &pollPoller{interests: make(map[int]Interest)}, nil
}

func (p *pollPoller) Add(i Interest) error {
	p.interests[i.Fd] = i
	return nil
}

func (p *pollPoller) Modify(i Interest) error {
	p.interests[i.Fd] = i
	return nil
}

func (p *pollPoller) Remove(fd int) error {
	delete(p.interests, fd)
	return nil
}

func (p *pollPoller) Wait(timeout time.Duration) ([]Event, error) {
	fds := make([]unix.PollFd, 0, len(p.interests))
	order := make([]int, 0, len(p.interests))
	for fd, i := range p.interests {
		var events int16
		if i.Readable {
			events |= unix.POLLIN
		}
		if i.Writable {
			events |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
		order = append(order, fd)
	}

	ms := int(timeout.Milliseconds())
	if timeout < 0 {
		ms = -1
	}

	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("poller: poll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	events := make([]Event, 0, n)
	for idx, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		events = append(events, Event{
			Fd:       order[idx],
			Readable: pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0,
			Writable: pfd.Revents&unix.POLLOUT != 0,
		})
	}
	return events, nil
}

func (p *pollPoller) Close() error { return nil }
