// Package transport provides the lock-free sample transport primitives
// between a render thread and an output callback: a plain single-threaded
// ring buffer for synchronous bounce rendering, a shared-memory ring with
// atomic cursors for the two-thread case, and a double buffer for
// whole-block handoff.
package transport

// RingBuffer is a fixed-capacity circular float32 buffer for the
// single-threaded / cooperative case (offline bounce rendering). One slot
// is permanently reserved so a full buffer is distinguishable from an
// empty one: Readable()+Writable()+1 == Capacity() at all times.
//
// Not safe for concurrent use; see SharedRing for the two-thread case.
type RingBuffer struct {
	data  []float32
	write int
	read  int
}

// NewRingBuffer allocates a ring of the given capacity in samples.
// Capacities below 2 are clamped; a ring of capacity n holds at most n-1
// unread samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 2 {
		capacity = 2
	}
	return &RingBuffer{data: make([]float32, capacity)}
}

// Capacity returns the allocated size in samples, including the reserved
// slot.
func (r *RingBuffer) Capacity() int { return len(r.data) }

// Readable returns the number of unread samples.
func (r *RingBuffer) Readable() int {
	return (r.write - r.read + len(r.data)) % len(r.data)
}

// Writable returns the number of samples that can be written without
// overwriting unread data.
func (r *RingBuffer) Writable() int {
	return len(r.data) - 1 - r.Readable()
}

// Write copies as much of src as fits and returns the number of samples
// written. It never overwrites unread data.
func (r *RingBuffer) Write(src []float32) int {
	n := len(src)
	if w := r.Writable(); n > w {
		n = w
	}
	for i := 0; i < n; i++ {
		r.data[(r.write+i)%len(r.data)] = src[i]
	}
	r.write = (r.write + n) % len(r.data)
	return n
}

// Read copies up to len(dst) unread samples into dst and returns the
// number of samples read. It does not touch dst past the returned count.
func (r *RingBuffer) Read(dst []float32) int {
	n := len(dst)
	if a := r.Readable(); n > a {
		n = a
	}
	for i := 0; i < n; i++ {
		dst[i] = r.data[(r.read+i)%len(r.data)]
	}
	r.read = (r.read + n) % len(r.data)
	return n
}

// Reset discards all unread data.
func (r *RingBuffer) Reset() {
	r.write = 0
	r.read = 0
}
