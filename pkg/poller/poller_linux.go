//go:build linux

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	epfd int
}

// New returns the epoll-backed Poller.
func New() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("poller: epoll_create1: %w", err)
	}
	return &epollPoller{epfd: fd}, nil
}

func toEpollEvents(i Interest) uint32 {
	var ev uint32
	if i.Readable {
		ev |= unix.EPOLLIN
	}
	if i.Writable {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) Add(i Interest) error {
	ev := unix.EpollEvent{Fd: int32(i.Fd), Events: toEpollEvents(i)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, i.Fd, &ev); err != nil {
		return fmt.Errorf("poller: epoll_ctl add fd %d: %w", i.Fd, err)
	}
	return nil
}

func (p *epollPoller) Modify(i Interest) error {
	ev := unix.EpollEvent{Fd: int32(i.Fd), Events: toEpollEvents(i)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, i.Fd, &ev); err != nil {
		return fmt.Errorf("poller: epoll_ctl mod fd %d: %w", i.Fd, err)
	}
	return nil
}

func (p *epollPoller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("poller: epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Wait(timeout time.Duration) ([]Event, error) {
	ms := int(timeout.Milliseconds())
	if timeout < 0 {
		ms = -1
	}
	raw := make([]unix.EpollEvent, 64)
	n, err := unix.EpollWait(p.epfd, raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("poller: epoll_wait: %w", err)
	}
	events := make([]Event, 0, n)
	for _, e := range raw[:n] {
		events = append(events, Event{
			Fd:       int(e.Fd),
			Readable: e.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: e.Events&unix.EPOLLOUT != 0,
		})
	}
	return events, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
