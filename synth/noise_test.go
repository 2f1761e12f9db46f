package synth

import "testing"

func TestNoiseRegisterNeverReachesZeroState(t *testing.T) {
	for _, width := range []int{15, 23} {
		n := NewNoiseRegister(width, 1, NoiseOutputBit)
		for i := 0; i < 1_000_000; i++ {
			n.Step()
			if n.State() == 0 {
				t.Fatalf("width %d: register hit the all-zero fixed point at step %d", width, i)
			}
		}
	}
}

func TestNoiseRegisterRejectsZeroSeed(t *testing.T) {
	n := NewNoiseRegister(15, 0, NoiseOutputBit)
	if n.State() == 0 {
		t.Fatalf("zero seed was not replaced")
	}
	n.Seed(0)
	if n.State() == 0 {
		t.Fatalf("reseeding with zero was not replaced")
	}
}

func TestNoiseRegisterWidthClamp(t *testing.T) {
	if w := NewNoiseRegister(7, 1, NoiseOutputBit).Width(); w != 15 {
		t.Fatalf("width 7 clamped to %d, want 15", w)
	}
	if w := NewNoiseRegister(23, 1, NoiseOutputBit).Width(); w != 23 {
		t.Fatalf("width 23 became %d", w)
	}
}

func TestNoiseRegisterSeedMasksToWidth(t *testing.T) {
	n := NewNoiseRegister(15, 0xFFFFFFFF, NoiseOutputBit)
	if n.State() >= 1<<15 {
		t.Fatalf("seed not masked to register width: %#x", n.State())
	}
}

func TestNoiseOutputBitIsTwoLevel(t *testing.T) {
	n := NewNoiseRegister(15, 0x1234, NoiseOutputBit)
	sawHigh, sawLow := false, false
	for i := 0; i < 10000; i++ {
		v := n.Step()
		switch v {
		case 1.0:
			sawHigh = true
		case -1.0:
			sawLow = true
		default:
			t.Fatalf("bit output produced %f, want +/-1", v)
		}
	}
	if !sawHigh || !sawLow {
		t.Fatalf("bit output degenerate: high=%v low=%v", sawHigh, sawLow)
	}
}

func TestNoiseOutputWindowStaysInRange(t *testing.T) {
	n := NewNoiseRegister(23, 0x55AA, NoiseOutputWindow)
	for i := 0; i < 10000; i++ {
		v := n.Step()
		if v < -1.0 || v > 1.0 {
			t.Fatalf("window output out of range: %f", v)
		}
	}
}

func TestNoiseRegisterIsDeterministicPerSeed(t *testing.T) {
	a := NewNoiseRegister(15, 0x7ABC, NoiseOutputBit)
	b := NewNoiseRegister(15, 0x7ABC, NoiseOutputBit)
	for i := 0; i < 5000; i++ {
		if a.Step() != b.Step() {
			t.Fatalf("same seed diverged at step %d", i)
		}
	}
}
