// Package debugsnap captures a point-in-time view of server state for
// offline diagnosis: open connection count and an internal event-count
// ring, written as a single CBOR document.
package debugsnap

import (
	"encoding/binary"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/aledsdavies/corelib/pkg/buffer"
)

// ConnSnapshot is one open connection's identity at capture time.
type ConnSnapshot struct {
	FD int `cbor:"fd"`
}

// RingSnapshot is the occupancy of the event-count ring at capture time.
type RingSnapshot struct {
	Capacity int `cbor:"capacity"`
	Len int `cbor:"len"`
	Events []int `cbor:"events"`
}

// Snapshot is the full document WriteCBOR encodes.
type Snapshot struct {
	TakenAtUnixNano int64 `cbor:"taken_at_unix_nano"`
	OpenConnections int `cbor:"open_connections"`
	Connections []ConnSnapshot `cbor:"connections"`
	EventRing RingSnapshot `cbor:"event_ring"`
}

// serverAccessor is the server's read-only surface debugsnap needs;
// satisfied by *tcpserver.Server without importing it (avoiding an import
// cycle, since tcpserver has no reason to know about debugsnap).
type serverAccessor interface {
	ConnectionCount() int
	ConnectionFDs() []int
}

// Capture walks srv's connection table and the supplied event ring,
// building a Snapshot. takenAtUnixNano is passed in by the caller rather
// than read from the clock here, keeping this package free of direct
// time.Now() calls so callers control what "now" means in tests.
func Capture(srv serverAccessor, ring *buffer.RingBuffer[int], takenAtUnixNano int64) Snapshot {
	fds := srv.ConnectionFDs()
	conns := make([]ConnSnapshot, len(fds))
	for i, fd := range fds {
		conns[i] = ConnSnapshot{FD: fd}
	}

	events := make([]int, 0, ring.Len())
	for i := 0; i < ring.Len(); i++ {
		v, ok, err := ring.Get(i)
		if err != nil || !ok {
			break
		}
		events = append(events, v)
	}

	return Snapshot{
		TakenAtUnixNano: takenAtUnixNano,
		OpenConnections: srv.ConnectionCount(),
		Connections: conns,
		EventRing: RingSnapshot{
			Capacity: ring.Cap(),
			Len: ring.Len(),
			Events: events,
		},
	}
}

// WriteCBOR marshals s with cbor.Marshal and writes it to w as a
// length-prefixed (big-endian uint32) document, so a reader can locate
// the boundary of one snapshot inside a longer-lived file or stream.
func WriteCBOR(w io.Writer, s Snapshot) error {
	body, err := cbor.Marshal(s)
	if err != nil {
		return err
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}
