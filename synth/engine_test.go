package synth

import (
	"math"
	"testing"
)

func newTestEngine(kind KernelKind) *Engine {
	p := NewDefaultParams()
	p.Kernel = kind
	return NewEngine(48000, p)
}

func TestEngineNeverExceedsPolyphonyCeiling(t *testing.T) {
	eng := newTestEngine(KernelString)
	for n := 0; n < 64; n++ {
		eng.NoteOn(30+n, 100, 0)
		if eng.ActiveVoices() > eng.MaxPolyphony() {
			t.Fatalf("active voices %d exceeds ceiling %d after note %d",
				eng.ActiveVoices(), eng.MaxPolyphony(), n)
		}
	}
}

func TestEngineStealsOldestVoice(t *testing.T) {
	eng := newTestEngine(KernelString)
	// 17 notes against a ceiling of 16: the very first must be evicted.
	for n := 0; n < 17; n++ {
		eng.NoteOn(40+n, 100, 0)
	}
	if eng.ActiveVoices() != 16 {
		t.Fatalf("active voices = %d, want 16", eng.ActiveVoices())
	}
	notes := activeNotes(eng)
	if notes[40] {
		t.Fatalf("oldest voice (note 40) still active after steal")
	}
	for n := 41; n < 57; n++ {
		if !notes[n] {
			t.Fatalf("note %d missing after steal", n)
		}
	}
}

func TestEngineNoteOffForAbsentVoiceIsNoOp(t *testing.T) {
	eng := newTestEngine(KernelString)
	eng.NoteOn(60, 100, 0)
	eng.NoteOff(61, 0)
	eng.NoteOff(60, 5) // wrong channel
	if eng.ActiveVoices() != 1 {
		t.Fatalf("active voices = %d, want 1", eng.ActiveVoices())
	}
}

func TestEngineRetriggerReplacesSameKey(t *testing.T) {
	eng := newTestEngine(KernelString)
	eng.NoteOn(60, 100, 0)
	eng.NoteOn(60, 100, 0)
	if eng.ActiveVoices() != 1 {
		t.Fatalf("retrigger duplicated the voice: %d active", eng.ActiveVoices())
	}
}

func TestEngineAllNotesOffSilencesSynchronously(t *testing.T) {
	eng := newTestEngine(KernelString)
	for n := 0; n < 8; n++ {
		eng.NoteOn(48+n, 110, 0)
	}
	eng.Process(256)
	eng.AllNotesOff()
	if eng.ActiveVoices() != 0 {
		t.Fatalf("voices remain after AllNotesOff: %d", eng.ActiveVoices())
	}
	block := eng.Process(256)
	for i, s := range block {
		if s != 0 {
			t.Fatalf("residual sample %f at %d after AllNotesOff", s, i)
		}
	}
}

func TestEngineReleasedVoiceIsSweptAfterEnvelopeEnds(t *testing.T) {
	p := NewDefaultParams()
	p.Kernel = KernelNoise
	p.Envelope.Release = 0.02
	eng := NewEngine(48000, p)

	eng.NoteOn(60, 100, 0)
	eng.Process(128)
	eng.NoteOff(60, 0)

	// 0.02 s release at 48 kHz is under 8 blocks of 128
	for i := 0; i < 32 && eng.ActiveVoices() > 0; i++ {
		eng.Process(128)
	}
	if eng.ActiveVoices() != 0 {
		t.Fatalf("released voice never swept")
	}
}

func TestEngineProducesFiniteAudioForAllKernels(t *testing.T) {
	for _, kind := range []KernelKind{KernelString, KernelModal, KernelNoise, KernelFM} {
		eng := newTestEngine(kind)
		eng.NoteOn(69, 100, 0)
		var energy float64
		for b := 0; b < 40; b++ {
			block := eng.Process(128)
			for i, s := range block {
				if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
					t.Fatalf("kernel %v: non-finite sample at block %d index %d", kind, b, i)
				}
				energy += float64(s) * float64(s)
			}
		}
		if energy == 0 {
			t.Fatalf("kernel %v produced silence", kind)
		}
	}
}

func TestEnginePerChannelKernelSelection(t *testing.T) {
	p := NewDefaultParams()
	p.Kernel = KernelString
	p.PerChannel[9] = KernelNoise
	eng := NewEngine(48000, p)

	eng.NoteOn(60, 100, 0)
	eng.NoteOn(60, 100, 9)
	kinds := map[KernelKind]bool{}
	for _, v := range eng.order {
		kinds[v.Kind()] = true
	}
	if !kinds[KernelString] || !kinds[KernelNoise] {
		t.Fatalf("per-channel kernel mapping not honored: %v", kinds)
	}
}

func TestEngineOutputGainParameter(t *testing.T) {
	eng := newTestEngine(KernelNoise)
	eng.NoteOn(60, 127, 0)
	eng.Process(4800) // past the attack
	ref := blockEnergy(eng.Process(128))

	eng.SetParam(ParamOutputGain, 0)
	block := eng.Process(128)
	for i, s := range block {
		if s != 0 {
			t.Fatalf("gain 0 leaked sample %f at %d", s, i)
		}
	}
	if ref == 0 {
		t.Fatalf("reference block was silent")
	}
}

func TestEngineUnknownParamIgnored(t *testing.T) {
	eng := newTestEngine(KernelString)
	if eng.Params().Set("no.such.param", 1.0) {
		t.Fatalf("unknown parameter accepted")
	}
}

func TestEngineParamClampedToDescriptorRange(t *testing.T) {
	eng := newTestEngine(KernelString)
	eng.SetParam(ParamEnvSustain, 4.2)
	v, ok := eng.Params().Get(ParamEnvSustain)
	if !ok || v != 1.0 {
		t.Fatalf("sustain not clamped: %f", v)
	}
}

func activeNotes(eng *Engine) map[int]bool {
	notes := make(map[int]bool)
	for _, v := range eng.order {
		notes[v.Note()] = true
	}
	return notes
}

func blockEnergy(block []float32) float64 {
	var sum float64
	for _, s := range block {
		sum += float64(s) * float64(s)
	}
	return sum
}
