package synth

import (
	"math"
	"testing"
)

func fourOpConfig(algorithm int) FMConfig {
	ops := make([]OperatorConfig, 4)
	for i := range ops {
		ops[i] = defaultOperatorConfig()
	}
	return FMConfig{Algorithm: algorithm, Operators: ops}
}

func TestOperatorGraphCarrierCountPerAlgorithm(t *testing.T) {
	cases := []struct {
		algorithm int
		carriers  int
	}{
		{AlgSerial, 1},
		{AlgParallel, 1},
		{AlgDualSerial, 2},
		{AlgAdditive, 4},
	}
	for _, tc := range cases {
		g := NewOperatorGraph(48000, 220, fourOpConfig(tc.algorithm))
		if g.CarrierCount() != tc.carriers {
			t.Fatalf("algorithm %d: carriers = %d, want %d",
				tc.algorithm, g.CarrierCount(), tc.carriers)
		}
	}
}

func TestOperatorGraphClampsOperatorCount(t *testing.T) {
	cfg := FMConfig{Algorithm: AlgSerial, Operators: []OperatorConfig{defaultOperatorConfig()}}
	g := NewOperatorGraph(48000, 220, cfg)
	if g.OperatorCount() != 2 {
		t.Fatalf("1 configured operator became %d, want 2", g.OperatorCount())
	}
	cfg.Operators = make([]OperatorConfig, 7)
	for i := range cfg.Operators {
		cfg.Operators[i] = defaultOperatorConfig()
	}
	g = NewOperatorGraph(48000, 220, cfg)
	if g.OperatorCount() != 4 {
		t.Fatalf("7 configured operators became %d, want 4", g.OperatorCount())
	}
}

func TestOperatorGraphModulatorsFeedLowerIndices(t *testing.T) {
	for _, alg := range []int{AlgSerial, AlgParallel, AlgDualSerial, AlgAdditive} {
		g := NewOperatorGraph(48000, 220, fourOpConfig(alg))
		for i := range g.ops {
			if target := g.ops[i].target; target >= i {
				t.Fatalf("algorithm %d: operator %d targets %d, breaking DAG order", alg, i, target)
			}
		}
	}
}

func TestOperatorGraphOutputStaysFinite(t *testing.T) {
	cfg := fourOpConfig(AlgSerial)
	for i := range cfg.Operators {
		cfg.Operators[i].Feedback = 1.5
		cfg.Operators[i].ModDepth = 6
	}
	g := NewOperatorGraph(48000, 880, cfg)
	for i := 0; i < 48000; i++ {
		v := g.Process()
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite sample at %d", i)
		}
	}
}

func TestOperatorGraphAdditiveMatchesOscillatorSum(t *testing.T) {
	// with no modulation each carrier is an independent enveloped
	// oscillator; the mix is their average
	cfg := fourOpConfig(AlgAdditive)
	for i := range cfg.Operators {
		cfg.Operators[i].Feedback = 0
		cfg.Operators[i].Attack = 0.001
		cfg.Operators[i].Sustain = 1.0
	}
	g := NewOperatorGraph(48000, 100, cfg)
	for i := 0; i < 4800; i++ {
		g.Process()
	}
	// all envelopes in sustain at full level: mix amplitude stays bounded
	// by the average operator level
	var peak float32
	for i := 0; i < 4800; i++ {
		v := g.Process()
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	if peak > 0.85 {
		t.Fatalf("additive mix exceeds averaged level bound: %f", peak)
	}
	if peak < 0.1 {
		t.Fatalf("additive mix nearly silent: %f", peak)
	}
}

func TestOperatorGraphSerialModulationChangesSpectrum(t *testing.T) {
	plain := fourOpConfig(AlgAdditive)
	modulated := fourOpConfig(AlgSerial)
	for i := range modulated.Operators {
		modulated.Operators[i].ModDepth = 3
	}

	render := func(cfg FMConfig) []float32 {
		g := NewOperatorGraph(48000, 220, cfg)
		out := make([]float32, 9600)
		for i := range out {
			out[i] = g.Process()
		}
		return out
	}

	a := highFreqRatio(render(plain))
	b := highFreqRatio(render(modulated))
	if a == b {
		t.Fatalf("modulation had no spectral effect")
	}
}

func TestOperatorGraphFinishesAfterRelease(t *testing.T) {
	cfg := fourOpConfig(AlgDualSerial)
	for i := range cfg.Operators {
		cfg.Operators[i].Release = 0.02
	}
	g := NewOperatorGraph(48000, 330, cfg)
	for i := 0; i < 4800; i++ {
		g.Process()
	}
	g.ReleaseAll()
	for i := 0; i < 48000 && !g.Finished(); i++ {
		g.Process()
	}
	if !g.Finished() {
		t.Fatalf("graph never finished after release")
	}
	if v := g.Process(); v != 0 {
		t.Fatalf("finished graph emits %f, want 0", v)
	}
}

func TestEvalWaveShapes(t *testing.T) {
	if v := evalWave(WaveSquare, 0.25); v != 1.0 {
		t.Fatalf("square at 0.25 = %f, want 1", v)
	}
	if v := evalWave(WaveSquare, 0.75); v != -1.0 {
		t.Fatalf("square at 0.75 = %f, want -1", v)
	}
	if v := evalWave(WaveSaw, 0.5); v != 0.0 {
		t.Fatalf("saw at 0.5 = %f, want 0", v)
	}
	if v := evalWave(WaveTriangle, 0.5); math.Abs(float64(v)+1.0) > 1e-6 {
		t.Fatalf("triangle at 0.5 = %f, want -1", v)
	}
	if v := evalWave(WaveTriangle, 0); math.Abs(float64(v)-1.0) > 1e-6 {
		t.Fatalf("triangle at 0 = %f, want 1", v)
	}
	// phase wraps: 1.25 and 0.25 must agree for every waveform
	for _, w := range []Waveform{WaveSine, WaveTriangle, WaveSquare, WaveSaw} {
		if a, b := evalWave(w, 0.25), evalWave(w, 1.25); math.Abs(float64(a-b)) > 1e-5 {
			t.Fatalf("waveform %d phase wrap mismatch: %f vs %f", w, a, b)
		}
	}
}
