//go:build darwin || freebsd || netbsd || openbsd

package reactor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// bsdKey is the BSD backend's registration key: kqueue treats read and
// write interest as independently registered filters on the same
// descriptor, so (descriptor, filter) is the natural key,
// unlike Linux's single-registration-per-descriptor model.
type bsdKey struct {
	fd int
	filter Filter
}

// bsdReactor is the BSD/Darwin backend, backed by kqueue.
type bsdReactor struct {
	Reactor

	kq int

	mu sync.RWMutex // guards handlers; readers = dispatch loop, writers = Register/Unregister
	handlers map[bsdKey]binding
}

// New constructs a Reactor backed by kqueue.
func New(logger *slog.Logger) (Instance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("reactor: kqueue: %w", err)
	}
	unix.CloseOnExec(kq)

	br := &bsdReactor{kq: kq, handlers: make(map[bsdKey]binding)}
	br.Reactor.logger = logger
	br.Reactor.poll = br.poll
	br.Reactor.closeKernel = func() error { return unix.Close(br.kq) }
	return br, nil
}

func kqueueFilter(f Filter) int16 {
	if f == FilterWrite {
		return unix.EVFILT_WRITE
	}
	return unix.EVFILT_READ
}

// Register adds (fd, filter) to the kqueue interest set via a single
// kevent change call with a short control timeout, replacing any prior
// binding for the same key.
func (br *bsdReactor) Register(fd int, filter Filter, userData interface{}, cb Handler) error {
	br.mu.Lock()
	br.handlers[bsdKey{fd, filter}] = binding{userData: userData, callback: cb}
	br.mu.Unlock()

	change := unix.Kevent_t{
		Ident: uint64(fd),
		Filter: kqueueFilter(filter),
		Flags: unix.EV_ADD | unix.EV_ENABLE,
	}
	ts := unix.NsecToTimespec(int64(pollTimeout))
	if _, err := unix.Kevent(br.kq, []unix.Kevent_t{change}, nil, &ts); err != nil {
		return fmt.Errorf("reactor: kevent add: %w", err)
	}
	return nil
}

// Unregister removes (fd, filter); idempotent on an unknown key.
func (br *bsdReactor) Unregister(fd int, filter Filter) error {
	br.mu.Lock()
	_, existed := br.handlers[bsdKey{fd, filter}]
	delete(br.handlers, bsdKey{fd, filter})
	br.mu.Unlock()

	if !existed {
		return nil
	}

	change := unix.Kevent_t{
		Ident: uint64(fd),
		Filter: kqueueFilter(filter),
		Flags: unix.EV_DELETE,
	}
	ts := unix.NsecToTimespec(int64(pollTimeout))
	if _, err := unix.Kevent(br.kq, []unix.Kevent_t{change}, nil, &ts); err != nil {
		// The descriptor may already be closed (e.g. connection torn
		// down before we got to unregister); that's not fatal.
		return nil
	}
	return nil
}

// poll runs one kevent wait + dispatch pass.
func (br *bsdReactor) poll(timeout time.Duration) error {
	var events [maxEventsPerWait]unix.Kevent_t
	ts := unix.NsecToTimespec(int64(timeout))

	n, err := unix.Kevent(br.kq, nil, events[:], &ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}

	for i := 0; i < n; i++ {
		ev := events[i]
		fd := int(ev.Ident)
		var filter Filter
		switch ev.Filter {
		case unix.EVFILT_READ:
			filter = FilterRead
		case unix.EVFILT_WRITE:
			filter = FilterWrite
		default:
			continue
		}

		br.mu.RLock()
		b, ok := br.handlers[bsdKey{fd, filter}]
		br.mu.RUnlock()
		if !ok {
			continue
		}

		b.callback(br, Event{
			FD: fd,
			Filter: filter,
			Available: int(ev.Data),
			EOF: ev.Flags&unix.EV_EOF != 0,
		}, b.userData)
	}
	return nil
}
