package transport

import "sync/atomic"

// DoubleBuffer hands whole fixed-size blocks from a producer to a
// consumer: the producer fills the back buffer and publishes it with a
// single atomic flip, the consumer always reads a complete, consistent
// front buffer. Useful where block boundaries matter more than latency,
// e.g. visualization taps off the render thread.
type DoubleBuffer struct {
	bufs  [2][]float32
	front atomic.Uint32
}

// NewDoubleBuffer allocates two blocks of the given size in samples
// (clamped to a minimum of 1).
func NewDoubleBuffer(size int) *DoubleBuffer {
	if size < 1 {
		size = 1
	}
	return &DoubleBuffer{bufs: [2][]float32{
		make([]float32, size),
		make([]float32, size),
	}}
}

// Size returns the block size in samples.
func (d *DoubleBuffer) Size() int { return len(d.bufs[0]) }

// Back returns the buffer the producer may freely write. It stays valid
// until the next Publish.
func (d *DoubleBuffer) Back() []float32 {
	return d.bufs[1-d.front.Load()]
}

// Publish atomically makes the back buffer the new front. Producer side
// only.
func (d *DoubleBuffer) Publish() {
	d.front.Store(1 - d.front.Load())
}

// Front returns the most recently published block. The consumer must
// finish with it before the producer publishes again; with one producer
// and one consumer alternating per block this holds by construction.
func (d *DoubleBuffer) Front() []float32 {
	return d.bufs[d.front.Load()]
}
