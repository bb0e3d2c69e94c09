// Package reactor implements a readiness-driven event dispatcher over a
// per-OS kernel notification mechanism: epoll on Linux, kqueue on
// BSD/Darwin. Handler callbacks registered against a
// descriptor run on the reactor's single dispatch thread.
package reactor

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aledsdavies/corelib/internal/invariant"
)

// Filter selects which readiness condition a registration cares about.
// Both backends support read and write independently; the BSD backend
// keys registrations by (descriptor, filter) since kqueue treats read and
// write interest as separate filter registrations, while the Linux
// backend folds both into one epoll registration per descriptor.
type Filter int

const (
	FilterRead Filter = iota
	FilterWrite
)

// Event is the readiness payload delivered to a Handler: which
// descriptor became ready, for which filter, and (on the BSD backend)
// how many bytes the kernel reports as available to read without
// blocking — 0/unused on Linux, where EOF is instead signaled by a
// zero-length read.
type Event struct {
	FD        int
	Filter    Filter
	Available int
	EOF       bool
}

// Handle is passed to every Handler invocation and permits re-entrant
// registration from inside a callback.
type Handle interface {
	Register(fd int, filter Filter, userData interface{}, cb Handler) error
	Unregister(fd int, filter Filter) error
}

// Instance is a running reactor: the OS-independent surface the TCP
// server (and everything else) programs against. Register/Unregister
// come from Handle; Spawn/Join are the lifecycle methods common to both
// backends (embedded from Reactor). New (defined per-OS build file)
// returns one of these.
type Instance interface {
	Handle
	Spawn()
	Join()
	Close() error
}

// Handler is invoked by the dispatch loop when its descriptor becomes
// ready. It must not block: the whole reactor is serialized behind this
// call.
type Handler func(h Handle, ev Event, userData interface{})

// binding is the kernel-independent half of an (fd,filter) -> callback
// mapping entry; backends embed this alongside whatever OS-specific key
// type they need.
type binding struct {
	userData interface{}
	callback Handler
}

// Reactor is the lifecycle both backends share by embedding it: Spawn,
// Join, Close. Register/Unregister and the concrete kernel plumbing
// (reactor_linux.go's epoll instance, reactor_bsd.go's kqueue instance)
// lives in the OS-specific file; this type only needs a logger and the
// spawn/shutdown state machine, both shared verbatim by both backends.
type Reactor struct {
	logger *slog.Logger

	mu      sync.Mutex // guards spawned/done below; separate from the handler map's rwmutex
	spawned bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdown atomic.Bool

	// poll is provided by the OS-specific constructor and does one
	// bounded-timeout wait + dispatch pass.
	poll func(timeout time.Duration) error
	// closeKernel releases the OS-specific kernel descriptor.
	closeKernel func() error
}

// pollTimeout bounds how long a single kernel wait blocks, so Join's
// shutdown flag is observed promptly.
const pollTimeout = 4 * time.Millisecond

// maxEventsPerWait bounds a single kernel wait call.
const maxEventsPerWait = 1024

// Spawn launches the dispatch thread. Calling Spawn twice without an
// intervening Join panics via the invariant package.
func (r *Reactor) Spawn() {
	r.mu.Lock()
	defer r.mu.Unlock()

	invariant.Precondition(!r.spawned, "reactor: Spawn called twice without an intervening Join")
	r.spawned = true
	r.shutdown.Store(false)
	r.done = make(chan struct{})

	r.wg.Add(1)
	go r.dispatchLoop()
}

// Join signals shutdown and blocks until the dispatch thread has
// returned. It is a no-op when the reactor was never spawned, and
// idempotent with respect to that no-op case.
func (r *Reactor) Join() {
	r.mu.Lock()
	if !r.spawned {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.shutdown.Store(true)
	r.wg.Wait()

	r.mu.Lock()
	r.spawned = false
	r.mu.Unlock()
}

// Close releases the underlying kernel descriptor (epoll/kqueue fd).
// Call it after Join, once the reactor will never be Spawn'd again.
func (r *Reactor) Close() error {
	if r.closeKernel == nil {
		return nil
	}
	return r.closeKernel()
}

func (r *Reactor) dispatchLoop() {
	defer r.wg.Done()
	for !r.shutdown.Load() {
		if err := r.poll(pollTimeout); err != nil {
			r.logger.Error("reactor: fatal kernel error, dispatch thread exiting", "error", err)
			panic(err)
		}
	}
}
