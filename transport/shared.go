package transport

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// HeaderSize is the byte size of the shared-ring header: four 64-bit
// machine words (write cursor, read cursor, underrun counter, overrun
// counter) laid out flat ahead of the contiguous float32 payload. The
// layout is stable so a ring can be attached from another thread of
// control, or another process, over the same memory.
const HeaderSize = 32

// ringHeader overlays the first HeaderSize bytes of the backing buffer.
// Cursors are kept modulo the payload capacity; counters only ever grow.
type ringHeader struct {
	write     atomic.Uint64
	read      atomic.Uint64
	underruns atomic.Uint64
	overruns  atomic.Uint64
}

// SharedRing is a lock-free single-producer single-consumer float32 ring
// over a flat byte buffer. Exactly one goroutine may call Write and
// exactly one may call Read; cursor updates use atomic load/store so
// neither side ever observes a torn value or takes a lock.
//
// Shortfalls on either side are policy events, not errors: a reader that
// asks for more than is available gets the shortfall zero-filled and the
// underrun counter bumped once; a writer that offers more than fits has
// the excess dropped and the overrun counter bumped once. Neither side
// ever blocks.
type SharedRing struct {
	raw  []byte
	hdr  *ringHeader
	data []float32
}

// NewSharedRing allocates a backing buffer for a ring of the given
// capacity in samples (clamped to a minimum of 2). A ring of capacity n
// holds at most n-1 unread samples; one slot stays reserved so full and
// empty are distinguishable from the cursors alone.
func NewSharedRing(capacity int) *SharedRing {
	if capacity < 2 {
		capacity = 2
	}
	buf := make([]byte, HeaderSize+capacity*4)
	r, err := AttachSharedRing(buf)
	if err != nil {
		// cannot happen for a buffer we sized ourselves
		panic(err)
	}
	return r
}

// AttachSharedRing overlays a SharedRing on an existing buffer, e.g. one
// shared with another process. The buffer must be 8-byte aligned, start
// with a HeaderSize header, and carry a payload of at least 2 samples.
// Header contents are preserved: attaching does not reset cursors or
// counters.
func AttachSharedRing(buf []byte) (*SharedRing, error) {
	if len(buf) < HeaderSize+2*4 {
		return nil, fmt.Errorf("transport: buffer too small for shared ring: %d bytes", len(buf))
	}
	if (len(buf)-HeaderSize)%4 != 0 {
		return nil, fmt.Errorf("transport: payload size %d is not a whole number of samples", len(buf)-HeaderSize)
	}
	p := unsafe.Pointer(&buf[0])
	if uintptr(p)%8 != 0 {
		return nil, fmt.Errorf("transport: buffer is not 8-byte aligned")
	}
	capacity := (len(buf) - HeaderSize) / 4
	return &SharedRing{
		raw:  buf,
		hdr:  (*ringHeader)(p),
		data: unsafe.Slice((*float32)(unsafe.Pointer(&buf[HeaderSize])), capacity),
	}, nil
}

// Bytes returns the backing buffer (header plus payload), suitable for
// handing to another thread of control that will attach its own view.
func (r *SharedRing) Bytes() []byte { return r.raw }

// Capacity returns the payload size in samples, including the reserved
// slot.
func (r *SharedRing) Capacity() int { return len(r.data) }

// Readable returns the number of unread samples at the moment of the
// call. Only the consumer may act on it; the producer should use Writable.
func (r *SharedRing) Readable() int {
	w := int(r.hdr.write.Load())
	rd := int(r.hdr.read.Load())
	return (w - rd + len(r.data)) % len(r.data)
}

// Writable returns the number of samples the producer can write without
// dropping.
func (r *SharedRing) Writable() int {
	return len(r.data) - 1 - r.Readable()
}

// Underruns returns the cumulative count of reads that came up short.
func (r *SharedRing) Underruns() uint64 { return r.hdr.underruns.Load() }

// Overruns returns the cumulative count of writes that were truncated.
func (r *SharedRing) Overruns() uint64 { return r.hdr.overruns.Load() }

// Write copies as much of src as currently fits and returns the number of
// samples written. If src does not fit entirely, the excess is dropped
// (newest data loses, unread data is never overwritten) and the overrun
// counter is incremented exactly once. Producer side only; never blocks.
func (r *SharedRing) Write(src []float32) int {
	capacity := len(r.data)
	w := int(r.hdr.write.Load())
	rd := int(r.hdr.read.Load())
	writable := capacity - 1 - (w-rd+capacity)%capacity

	n := len(src)
	if n > writable {
		n = writable
		r.hdr.overruns.Add(1)
	}

	first := capacity - w
	if first > n {
		first = n
	}
	copy(r.data[w:w+first], src[:first])
	copy(r.data[:n-first], src[first:n])

	r.hdr.write.Store(uint64((w + n) % capacity))
	return n
}

// Read copies up to len(dst) unread samples into dst, zero-fills any
// shortfall with silence and returns the number of real samples copied.
// A short read increments the underrun counter exactly once. Consumer
// side only; never blocks waiting for the producer.
func (r *SharedRing) Read(dst []float32) int {
	capacity := len(r.data)
	w := int(r.hdr.write.Load())
	rd := int(r.hdr.read.Load())
	readable := (w - rd + capacity) % capacity

	n := len(dst)
	if n > readable {
		n = readable
		r.hdr.underruns.Add(1)
	}

	first := capacity - rd
	if first > n {
		first = n
	}
	copy(dst[:first], r.data[rd:rd+first])
	copy(dst[first:n], r.data[:n-first])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}

	r.hdr.read.Store(uint64((rd + n) % capacity))
	return n
}

// Reset discards unread data and zeroes both counters. Not safe while
// another thread is actively reading or writing.
func (r *SharedRing) Reset() {
	r.hdr.write.Store(0)
	r.hdr.read.Store(0)
	r.hdr.underruns.Store(0)
	r.hdr.overruns.Store(0)
}
