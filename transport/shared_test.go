package transport

import (
	"sync"
	"testing"
)

func TestSharedRingOverrunDropsNewestAndCountsOnce(t *testing.T) {
	r := NewSharedRing(1024)
	src := make([]float32, 2000)
	for i := range src {
		src[i] = float32(i)
	}

	n := r.Write(src)
	if n > 1023 {
		t.Fatalf("write returned %d, want <= 1023", n)
	}
	if n != 1023 {
		t.Fatalf("write into empty ring returned %d, want 1023", n)
	}
	if got := r.Overruns(); got != 1 {
		t.Fatalf("overruns = %d, want exactly 1", got)
	}

	// the accepted prefix must be intact, the excess dropped
	dst := make([]float32, 1023)
	r.Read(dst)
	for i, v := range dst {
		if v != float32(i) {
			t.Fatalf("sample %d = %f, want %d", i, v, i)
		}
	}
}

func TestSharedRingUnderrunZeroFillsAndCountsOnce(t *testing.T) {
	r := NewSharedRing(256)
	r.Write([]float32{1, 2, 3})

	dst := make([]float32, 10)
	for i := range dst {
		dst[i] = -99
	}
	n := r.Read(dst)
	if n != 3 {
		t.Fatalf("read returned %d, want 3", n)
	}
	if dst[0] != 1 || dst[1] != 2 || dst[2] != 3 {
		t.Fatalf("real samples corrupted: %v", dst[:3])
	}
	for i := 3; i < len(dst); i++ {
		if dst[i] != 0 {
			t.Fatalf("shortfall at %d = %f, want silence", i, dst[i])
		}
	}
	if got := r.Underruns(); got != 1 {
		t.Fatalf("underruns = %d, want exactly 1", got)
	}
}

func TestSharedRingExactReadDoesNotCountUnderrun(t *testing.T) {
	r := NewSharedRing(256)
	r.Write(make([]float32, 100))
	r.Read(make([]float32, 100))
	if r.Underruns() != 0 {
		t.Fatalf("exact read counted as underrun")
	}
	if r.Overruns() != 0 {
		t.Fatalf("fitting write counted as overrun")
	}
}

func TestSharedRingConservation(t *testing.T) {
	r := NewSharedRing(64)
	written, read := 0, 0
	src := make([]float32, 13)
	dst := make([]float32, 11)

	for step := 0; step < 500; step++ {
		written += r.Write(src)
		read += r.Read(dst[:1+step%len(dst)])
		if got := r.Readable(); got != written-read {
			t.Fatalf("step %d: readable = %d, want %d", step, got, written-read)
		}
		if r.Readable()+r.Writable()+1 != r.Capacity() {
			t.Fatalf("step %d: reserved-slot invariant broken", step)
		}
	}
}

func TestSharedRingAttachSharesState(t *testing.T) {
	producer := NewSharedRing(128)
	consumer, err := AttachSharedRing(producer.Bytes())
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	src := []float32{1, 2, 3, 4, 5}
	producer.Write(src)
	dst := make([]float32, 5)
	if n := consumer.Read(dst); n != 5 {
		t.Fatalf("attached reader got %d samples, want 5", n)
	}
	for i, v := range dst {
		if v != src[i] {
			t.Fatalf("sample %d = %f, want %f", i, v, src[i])
		}
	}
	// cursor movement must be visible on the original view
	if producer.Readable() != 0 {
		t.Fatalf("producer view readable = %d after attached read", producer.Readable())
	}
}

func TestSharedRingAttachValidatesBuffer(t *testing.T) {
	if _, err := AttachSharedRing(make([]byte, HeaderSize)); err == nil {
		t.Fatalf("attach accepted header-only buffer")
	}
	if _, err := AttachSharedRing(make([]byte, HeaderSize+10)); err == nil {
		t.Fatalf("attach accepted ragged payload size")
	}
	if _, err := AttachSharedRing(make([]byte, HeaderSize+4*64)); err != nil {
		t.Fatalf("attach rejected valid buffer: %v", err)
	}
}

func TestSharedRingSingleProducerSingleConsumer(t *testing.T) {
	const total = 200000
	r := NewSharedRing(997) // deliberately not a power of two

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		src := make([]float32, 64)
		sent := 0
		for sent < total {
			n := len(src)
			if sent+n > total {
				n = total - sent
			}
			for i := 0; i < n; i++ {
				src[i] = float32(sent + i)
			}
			wrote := 0
			for wrote < n {
				k := r.Write(src[wrote:n])
				wrote += k
			}
			sent += n
		}
	}()

	var mismatch int64 = -1
	go func() {
		defer wg.Done()
		dst := make([]float32, 48)
		expect := 0
		for expect < total {
			want := len(dst)
			if expect+want > total {
				want = total - expect
			}
			n := r.Read(dst[:want])
			for i := 0; i < n; i++ {
				if dst[i] != float32(expect) {
					mismatch = int64(expect)
					return
				}
				expect++
			}
		}
	}()

	wg.Wait()
	if mismatch >= 0 {
		t.Fatalf("sample stream corrupted at offset %d", mismatch)
	}
}
