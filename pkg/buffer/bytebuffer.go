// Package buffer implements the two streaming containers the TCP server
// builds connections around: ByteBuffer, an append-while-draining FIFO of
// bytes, and RingBuffer, a fixed-capacity circular queue.
package buffer

import "encoding/binary"

// ByteBuffer is a growable FIFO of bytes that can be appended to while it
// is being drained, without ever invalidating a slice already handed back
// by GetSlice. Writes land in pending; reads consume from
// current. When current is exhausted, a swap promotes pending to current
// and empties pending.
type ByteBuffer struct {
	current    []byte
	readOffset int
	pending    []byte
}

// NewByteBuffer returns an empty ByteBuffer.
func NewByteBuffer() *ByteBuffer {
	return &ByteBuffer{}
}

// Append extends the buffer with b. It never invalidates a slice returned
// by an earlier GetSlice, since appends only ever touch pending.
func (b *ByteBuffer) Append(data []byte) {
	b.pending = append(b.pending, data...)
}

// Len returns the number of unread bytes currently buffered.
func (b *ByteBuffer) Len() int {
	return (len(b.current) - b.readOffset) + len(b.pending)
}

// IsEmpty reports whether there are zero unread bytes.
func (b *ByteBuffer) IsEmpty() bool {
	return b.Len() == 0
}

// maybeSwap promotes pending into current when current has been fully
// consumed. This is the "append-while-draining" trick: it
// runs lazily, right before a read needs more bytes than current alone
// can supply.
func (b *ByteBuffer) maybeSwap() {
	if b.readOffset == len(b.current) {
		b.current = b.pending
		b.pending = nil
		b.readOffset = 0
	}
}

// Read copies up to len(dst) unread bytes into dst, consuming them,
// possibly straddling the current/pending swap boundary. It returns the
// number of bytes copied, which is 0 only when the buffer is empty.
func (b *ByteBuffer) Read(dst []byte) int {
	total := 0
	for total < len(dst) {
		b.maybeSwap()
		avail := len(b.current) - b.readOffset
		if avail == 0 {
			break
		}
		n := copy(dst[total:], b.current[b.readOffset:])
		b.readOffset += n
		total += n
	}
	return total
}

// GetSlice returns a borrowed view into the next contiguous unread span
// of at most max bytes and consumes (advances past) those bytes, or
// returns ok=false when the buffer is empty. The returned slice may be
// shorter than max even when more data exists, because it never crosses
// the current/pending swap boundary — callers that need more
// must call GetSlice again.
func (b *ByteBuffer) GetSlice(max int) (slice []byte, ok bool) {
	b.maybeSwap()
	avail := len(b.current) - b.readOffset
	if avail == 0 {
		return nil, false
	}
	n := avail
	if n > max {
		n = max
	}
	slice = b.current[b.readOffset : b.readOffset+n]
	b.readOffset += n
	return slice, true
}

// Peek copies up to max unread bytes into a freshly allocated slice
// without consuming them, merging across the current/pending swap
// boundary if needed (unlike GetSlice, which stops at that boundary).
// Callers that decide to consume what they peeked must follow up with
// Discard.
func (b *ByteBuffer) Peek(max int) []byte {
	b.maybeSwap()
	out := make([]byte, 0, max)
	readOffset, pendingStart := b.readOffset, 0
	for len(out) < max {
		avail := len(b.current) - readOffset
		if avail == 0 {
			if pendingStart >= len(b.pending) {
				break
			}
			take := len(b.pending) - pendingStart
			if take > max-len(out) {
				take = max - len(out)
			}
			out = append(out, b.pending[pendingStart:pendingStart+take]...)
			pendingStart += take
			continue
		}
		take := avail
		if take > max-len(out) {
			take = max - len(out)
		}
		out = append(out, b.current[readOffset:readOffset+take]...)
		readOffset += take
	}
	return out
}

// Discard consumes the first n unread bytes without copying them
// anywhere, typically after a Peek decided how much to consume.
func (b *ByteBuffer) Discard(n int) {
	for n > 0 {
		b.maybeSwap()
		avail := len(b.current) - b.readOffset
		if avail == 0 {
			return
		}
		take := avail
		if take > n {
			take = n
		}
		b.readOffset += take
		n -= take
	}
}

// straddle copies n bytes starting at the current read position into a
// caller-supplied scratch buffer, even if that span crosses the
// current/pending swap boundary, without creating any borrowed slice
// that outlives the call.
func (b *ByteBuffer) straddle(scratch []byte) bool {
	n := len(scratch)
	if b.Len() < n {
		return false
	}
	got := 0
	for got < n {
		b.maybeSwap()
		avail := len(b.current) - b.readOffset
		take := n - got
		if take > avail {
			take = avail
		}
		copy(scratch[got:got+take], b.current[b.readOffset:b.readOffset+take])
		b.readOffset += take
		got += take
	}
	return true
}

// GetU8 reads one unsigned byte, or ok=false if the buffer is empty.
func (b *ByteBuffer) GetU8() (v uint8, ok bool) {
	var scratch [1]byte
	if !b.straddle(scratch[:]) {
		return 0, false
	}
	return scratch[0], true
}

// GetI8 reads one signed byte, or ok=false if the buffer is empty.
func (b *ByteBuffer) GetI8() (v int8, ok bool) {
	u, ok := b.GetU8()
	return int8(u), ok
}

// GetU16BE reads a big-endian uint16, or ok=false if fewer than 2 bytes remain.
func (b *ByteBuffer) GetU16BE() (v uint16, ok bool) {
	var scratch [2]byte
	if !b.straddle(scratch[:]) {
		return 0, false
	}
	return binary.BigEndian.Uint16(scratch[:]), true
}

// GetU16LE reads a little-endian uint16, or ok=false if fewer than 2 bytes remain.
func (b *ByteBuffer) GetU16LE() (v uint16, ok bool) {
	var scratch [2]byte
	if !b.straddle(scratch[:]) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(scratch[:]), true
}

// GetU32BE reads a big-endian uint32, or ok=false if fewer than 4 bytes remain.
func (b *ByteBuffer) GetU32BE() (v uint32, ok bool) {
	var scratch [4]byte
	if !b.straddle(scratch[:]) {
		return 0, false
	}
	return binary.BigEndian.Uint32(scratch[:]), true
}

// GetU32LE reads a little-endian uint32, or ok=false if fewer than 4 bytes remain.
func (b *ByteBuffer) GetU32LE() (v uint32, ok bool) {
	var scratch [4]byte
	if !b.straddle(scratch[:]) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(scratch[:]), true
}

// GetU64BE reads a big-endian uint64, or ok=false if fewer than 8 bytes remain.
func (b *ByteBuffer) GetU64BE() (v uint64, ok bool) {
	var scratch [8]byte
	if !b.straddle(scratch[:]) {
		return 0, false
	}
	return binary.BigEndian.Uint64(scratch[:]), true
}

// GetU64LE reads a little-endian uint64, or ok=false if fewer than 8 bytes remain.
func (b *ByteBuffer) GetU64LE() (v uint64, ok bool) {
	var scratch [8]byte
	if !b.straddle(scratch[:]) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(scratch[:]), true
}
