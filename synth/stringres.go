package synth

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// StringResonator is a Karplus-Strong plucked-string model: a circular
// delay line whose length sets the pitch, re-circulated through an
// averaging tap and a one-pole damping filter.
type StringResonator struct {
	sampleRate float32
	f0         float32

	buffer   []float32
	writePos int

	feedback  float32 // loop gain, 0.9..0.9999 (sustain)
	damping   float32 // one-pole coefficient, 0.1..0.9 (brightness)
	loopState float32
}

// NewStringResonator allocates a delay line of round(sampleRate/f0) samples.
// Frequencies that would produce a buffer shorter than two samples are
// clamped rather than rejected.
func NewStringResonator(sampleRate int, f0 float32) *StringResonator {
	s := &StringResonator{
		sampleRate: float32(sampleRate),
		feedback:   0.996,
		damping:    0.5,
	}
	s.Resize(f0)
	return s
}

// Resize reallocates the delay line for a new fundamental. Pitch is purely a
// function of buffer length, so a frequency change mid-voice must reallocate
// rather than resample.
func (s *StringResonator) Resize(f0 float32) {
	if f0 < 1.0 {
		f0 = 1.0
	}
	n := int(math.Round(float64(s.sampleRate / f0)))
	if n < 2 {
		n = 2
	}
	s.f0 = f0
	s.buffer = make([]float32, n)
	s.writePos = 0
	s.loopState = 0
}

// SetFeedback sets the loop gain (sustain), clamped to [0.9, 0.9999].
func (s *StringResonator) SetFeedback(gain float32) {
	s.feedback = clampFloat32(gain, 0.9, 0.9999)
}

// SetDamping sets the one-pole smoothing coefficient (brightness),
// clamped to [0.1, 0.9]. Higher values darken the decay faster.
func (s *StringResonator) SetDamping(coeff float32) {
	s.damping = clampFloat32(coeff, 0.1, 0.9)
}

// Fundamental returns the frequency the delay line was sized for.
func (s *StringResonator) Fundamental() float32 { return s.f0 }

// Len returns the delay line length in samples.
func (s *StringResonator) Len() int { return len(s.buffer) }

// Pluck clears the delay line, writes the excitation waveform starting at
// pickPosition (fraction of the string length) and resets the cursors.
func (s *StringResonator) Pluck(excitation []float32, pickPosition float32) {
	for i := range s.buffer {
		s.buffer[i] = 0
	}
	s.writePos = 0
	s.loopState = 0

	pickPosition = clampFloat32(pickPosition, 0, 0.99)
	start := int(pickPosition * float32(len(s.buffer)))
	for i, x := range excitation {
		pos := (start + i) % len(s.buffer)
		s.buffer[pos] += x
	}
}

// Process advances the string one sample and returns the output observed at
// pickupPosition (fraction of the string length away from the write cursor).
// The averaging of two adjacent taps plus the one-pole filter is what gives
// the characteristic harmonic decay.
func (s *StringResonator) Process(pickupPosition float32) float32 {
	n := len(s.buffer)
	cur := s.buffer[s.writePos]
	next := s.buffer[(s.writePos+1)%n]

	avg := 0.5 * (cur + next) * s.feedback
	lp := (1.0-s.damping)*avg + s.damping*s.loopState
	lp = float32(dspcore.FlushDenormals(float64(lp)))
	s.loopState = lp

	s.buffer[s.writePos] = lp
	s.writePos = (s.writePos + 1) % n

	pickupPosition = clampFloat32(pickupPosition, 0, 0.99)
	tap := (s.writePos + int(pickupPosition*float32(n))) % n
	return s.buffer[tap]
}

// stringKernel wraps a StringResonator behind the Kernel interface, owning
// the excitation noise burst generated at pluck time.
type stringKernel struct {
	res    *StringResonator
	pickup float32
}

func newStringKernel(sampleRate int, f0 float32, cfg StringConfig, velocity float32, rng randSource) *stringKernel {
	k := &stringKernel{
		res:    NewStringResonator(sampleRate, f0),
		pickup: clampFloat32(cfg.PickupPosition, 0, 0.99),
	}
	k.res.SetFeedback(cfg.Feedback)
	k.res.SetDamping(cfg.Damping)

	// Classic Karplus-Strong excitation: a velocity-scaled noise burst the
	// length of the delay line.
	burst := make([]float32, k.res.Len())
	for i := range burst {
		burst[i] = (rng.Float32()*2.0 - 1.0) * velocity
	}
	k.res.Pluck(burst, cfg.PickPosition)
	return k
}

func (k *stringKernel) Render(dst []float32) {
	for i := range dst {
		dst[i] = k.res.Process(k.pickup)
	}
}

func (k *stringKernel) Release() {}

func (k *stringKernel) Silent() bool { return false }

// SetDamping forwards smoothed tone-parameter updates to the resonator.
func (k *stringKernel) SetDamping(coeff float32) {
	k.res.SetDamping(coeff)
}
