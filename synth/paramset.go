package synth

import (
	"math"
	"sync/atomic"
)

// ParamDesc documents one runtime-adjustable parameter: its bounds, default
// and whether changes are slewed onto already-sounding voices instead of
// stepping.
type ParamDesc struct {
	Name     string
	Min      float64
	Max      float64
	Default  float64
	Smoothed bool
}

// Parameter keys registered by every engine.
const (
	ParamEnvAttack      = "env.attack"
	ParamEnvDecay       = "env.decay"
	ParamEnvSustain     = "env.sustain"
	ParamEnvRelease     = "env.release"
	ParamStringFeedback = "string.feedback"
	ParamStringDamping  = "string.damping"
	ParamModalHardness  = "modal.hardness"
	ParamFMAlgorithm    = "fm.algorithm"
	ParamDetune         = "detune"
	ParamOutputGain     = "gain"
)

type paramSlot struct {
	desc ParamDesc
	bits atomic.Uint64
}

// ParamSet is a lock-free string-keyed parameter store shared between the
// UI/control thread (Set) and the render thread (value reads). Values are
// float64 bits in an atomic word, so neither side ever blocks or observes a
// torn value.
type ParamSet struct {
	slots map[string]*paramSlot
	names []string
}

func newParamSet() *ParamSet {
	return &ParamSet{slots: make(map[string]*paramSlot)}
}

func (s *ParamSet) register(d ParamDesc) {
	slot := &paramSlot{desc: d}
	slot.bits.Store(math.Float64bits(clampF64(d.Default, d.Min, d.Max)))
	s.slots[d.Name] = slot
	s.names = append(s.names, d.Name)
}

// Set updates a parameter, clamping to its documented range. Unknown keys
// are ignored and reported false: control sources are racy by nature and
// must never be able to disturb the audio path.
func (s *ParamSet) Set(name string, value float64) bool {
	slot, ok := s.slots[name]
	if !ok {
		return false
	}
	slot.bits.Store(math.Float64bits(clampF64(value, slot.desc.Min, slot.desc.Max)))
	return true
}

// Get returns the current value of a parameter.
func (s *ParamSet) Get(name string) (float64, bool) {
	slot, ok := s.slots[name]
	if !ok {
		return 0, false
	}
	return math.Float64frombits(slot.bits.Load()), true
}

// Descriptors returns the registered parameter descriptors in registration
// order.
func (s *ParamSet) Descriptors() []ParamDesc {
	out := make([]ParamDesc, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.slots[name].desc)
	}
	return out
}

func (s *ParamSet) value(name string) float64 {
	if v, ok := s.Get(name); ok {
		return v
	}
	return 0
}

// engineParamSet registers the descriptor table for one engine, seeded from
// its construction-time Params.
func engineParamSet(p *Params) *ParamSet {
	s := newParamSet()
	s.register(ParamDesc{Name: ParamEnvAttack, Min: minEnvTime, Max: 15, Default: float64(p.Envelope.Attack)})
	s.register(ParamDesc{Name: ParamEnvDecay, Min: minEnvTime, Max: 15, Default: float64(p.Envelope.Decay)})
	s.register(ParamDesc{Name: ParamEnvSustain, Min: 0, Max: 1, Default: float64(p.Envelope.Sustain)})
	s.register(ParamDesc{Name: ParamEnvRelease, Min: minEnvTime, Max: 15, Default: float64(p.Envelope.Release)})
	s.register(ParamDesc{Name: ParamStringFeedback, Min: 0.9, Max: 0.9999, Default: float64(p.String.Feedback)})
	s.register(ParamDesc{Name: ParamStringDamping, Min: 0.1, Max: 0.9, Default: float64(p.String.Damping), Smoothed: true})
	s.register(ParamDesc{Name: ParamModalHardness, Min: 0, Max: 1, Default: float64(p.Modal.Hardness)})
	s.register(ParamDesc{Name: ParamFMAlgorithm, Min: AlgSerial, Max: AlgAdditive, Default: float64(p.FM.Algorithm)})
	s.register(ParamDesc{Name: ParamDetune, Min: -100, Max: 100, Default: 0, Smoothed: true})
	s.register(ParamDesc{Name: ParamOutputGain, Min: 0, Max: 2, Default: float64(p.OutputGain)})
	return s
}

func clampF64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// paramSmoother slews a smoothed parameter toward its target across render
// blocks with a one-pole ramp, so cutoff/detune style changes never step on
// sounding voices.
type paramSmoother struct {
	current float64
	tau     float64 // seconds
}

func (ps *paramSmoother) advance(target float64, frames int, sampleRate int) float64 {
	if ps.tau <= 0 {
		ps.current = target
		return ps.current
	}
	dt := float64(frames) / float64(sampleRate)
	coeff := 1.0 - math.Exp(-dt/ps.tau)
	ps.current += (target - ps.current) * coeff
	if math.Abs(ps.current-target) < 1e-9 {
		ps.current = target
	}
	return ps.current
}
