package transport

import "testing"

func TestRingBufferConservation(t *testing.T) {
	r := NewRingBuffer(64)
	written, read := 0, 0

	src := make([]float32, 17)
	dst := make([]float32, 13)
	for i := range src {
		src[i] = float32(i)
	}

	for step := 0; step < 200; step++ {
		written += r.Write(src)
		read += r.Read(dst[:1+step%len(dst)])
		if got := r.Readable(); got != written-read {
			t.Fatalf("step %d: readable = %d, want written-read = %d", step, got, written-read)
		}
		if r.Readable()+r.Writable()+1 != r.Capacity() {
			t.Fatalf("step %d: reserved-slot invariant broken: %d + %d + 1 != %d",
				step, r.Readable(), r.Writable(), r.Capacity())
		}
	}
}

func TestRingBufferNeverOverwritesUnread(t *testing.T) {
	r := NewRingBuffer(8)
	src := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	n := r.Write(src)
	if n != 7 {
		t.Fatalf("write accepted %d samples into capacity-8 ring, want 7", n)
	}

	dst := make([]float32, 7)
	if got := r.Read(dst); got != 7 {
		t.Fatalf("read returned %d, want 7", got)
	}
	for i, v := range dst {
		if v != float32(i+1) {
			t.Fatalf("sample %d = %f, want %d", i, v, i+1)
		}
	}
}

func TestRingBufferDataSurvivesWrapAround(t *testing.T) {
	r := NewRingBuffer(8)
	buf := make([]float32, 5)
	next := float32(0)
	expect := float32(0)

	for round := 0; round < 20; round++ {
		for i := range buf {
			buf[i] = next
			next++
		}
		if n := r.Write(buf); n != len(buf) {
			t.Fatalf("round %d: short write %d", round, n)
		}
		got := r.Read(buf)
		for i := 0; i < got; i++ {
			if buf[i] != expect {
				t.Fatalf("round %d: sample %d = %f, want %f", round, i, buf[i], expect)
			}
			expect++
		}
	}
}

func TestRingBufferReset(t *testing.T) {
	r := NewRingBuffer(16)
	r.Write(make([]float32, 10))
	r.Reset()
	if r.Readable() != 0 {
		t.Fatalf("readable after reset = %d", r.Readable())
	}
	if r.Writable() != r.Capacity()-1 {
		t.Fatalf("writable after reset = %d, want %d", r.Writable(), r.Capacity()-1)
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	r := NewRingBuffer(0)
	if r.Capacity() < 2 {
		t.Fatalf("capacity = %d, want >= 2", r.Capacity())
	}
}
