//go:build linux

package reactor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// linuxReactor is the Linux backend: keyed by descriptor alone (the
// kernel tracks read/write interest per registration via epoll event
// flags), level-triggered by default.
type linuxReactor struct {
	Reactor

	epfd int

	mu       sync.RWMutex // guards handlers; readers = dispatch loop, writers = Register/Unregister
	handlers map[int]map[Filter]binding
}

// New constructs a Reactor backed by epoll.
func New(logger *slog.Logger) (Instance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}

	lr := &linuxReactor{epfd: epfd, handlers: make(map[int]map[Filter]binding)}
	lr.Reactor.logger = logger
	lr.Reactor.poll = lr.poll
	lr.Reactor.closeKernel = func() error { return unix.Close(lr.epfd) }
	return lr, nil
}

func epollEventsFor(filters map[Filter]binding) uint32 {
	var ev uint32
	if _, ok := filters[FilterRead]; ok {
		ev |= unix.EPOLLIN
	}
	if _, ok := filters[FilterWrite]; ok {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Register adds fd+filter to the interest set, replacing any prior
// binding for the same (fd, filter).
func (lr *linuxReactor) Register(fd int, filter Filter, userData interface{}, cb Handler) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	filters, existed := lr.handlers[fd]
	if !existed {
		filters = make(map[Filter]binding)
		lr.handlers[fd] = filters
	}
	filters[filter] = binding{userData: userData, callback: cb}

	ev := unix.EpollEvent{Events: epollEventsFor(filters), Fd: int32(fd)}
	op := unix.EPOLL_CTL_MOD
	if !existed {
		op = unix.EPOLL_CTL_ADD
	}
	if err := unix.EpollCtl(lr.epfd, op, fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl: %w", err)
	}
	return nil
}

// Unregister removes filter's interest for fd; idempotent on an unknown
// key.
func (lr *linuxReactor) Unregister(fd int, filter Filter) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	filters, ok := lr.handlers[fd]
	if !ok {
		return nil
	}
	delete(filters, filter)

	if len(filters) == 0 {
		delete(lr.handlers, fd)
		_ = unix.EpollCtl(lr.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		return nil
	}

	ev := unix.EpollEvent{Events: epollEventsFor(filters), Fd: int32(fd)}
	if err := unix.EpollCtl(lr.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl: %w", err)
	}
	return nil
}

// poll runs one epoll_wait + dispatch pass.
func (lr *linuxReactor) poll(timeout time.Duration) error {
	var events [maxEventsPerWait]unix.EpollEvent
	n, err := unix.EpollWait(lr.epfd, events[:], int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		if err == unix.EAGAIN {
			// EAGAIN from epoll_wait itself delivers no events; it is
			// treated as "nothing ready yet", like a timeout.
			return nil
		}
		return err
	}

	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		flags := events[i].Events

		lr.mu.RLock()
		filters := lr.handlers[fd]
		var readBinding, writeBinding binding
		var hasRead, hasWrite bool
		if filters != nil {
			readBinding, hasRead = filters[FilterRead]
			writeBinding, hasWrite = filters[FilterWrite]
		}
		lr.mu.RUnlock()

		readable := flags&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0
		writable := flags&unix.EPOLLOUT != 0

		if readable && hasRead {
			readBinding.callback(lr, Event{FD: fd, Filter: FilterRead}, readBinding.userData)
		}
		if writable && hasWrite {
			writeBinding.callback(lr, Event{FD: fd, Filter: FilterWrite}, writeBinding.userData)
		}
	}
	return nil
}
