package synth

import "math"

// EnvelopeStage identifies the current segment of the ADSR state machine.
type EnvelopeStage int

const (
	StageAttack EnvelopeStage = iota
	StageDecay
	StageSustain
	StageRelease
	StageOff
)

// EnvelopeCurve selects the ramp shape of the decay and release segments.
// Attack is always a linear ramp to full scale; decay and release are either
// linear or exponential toward a -60 dB floor, depending on which kernel
// drives the envelope.
type EnvelopeCurve int

const (
	CurveLinear EnvelopeCurve = iota
	CurveExponential
)

// envFloor is the residual ratio treated as "reached the target" for
// exponential segments.
const envFloor = 0.001

// minEnvTime keeps segment rate computations away from division by zero.
const minEnvTime = 0.001

// Envelope is a per-voice ADSR amplitude generator advanced once per sample.
type Envelope struct {
	sampleRate float32

	attack  float32 // seconds
	decay   float32 // seconds
	sustain float32 // 0..1 ratio
	release float32 // seconds

	curve EnvelopeCurve
	stage EnvelopeStage
	value float32

	stageSamples   int
	attackSamples  int
	decaySamples   int
	releaseSamples int

	shape        float32 // exponential segment state, decays 1 -> envFloor
	decayCoeff   float32
	releaseCoeff float32
	releaseFrom  float32
}

// NewEnvelope creates an envelope in the Attack stage. Segment times are
// clamped to a 1 ms minimum and sustain to [0,1].
func NewEnvelope(sampleRate int, attack, decay, sustain, release float32, curve EnvelopeCurve) *Envelope {
	e := &Envelope{
		sampleRate: float32(sampleRate),
		attack:     maxf(attack, minEnvTime),
		decay:      maxf(decay, minEnvTime),
		sustain:    clampFloat32(sustain, 0, 1),
		release:    maxf(release, minEnvTime),
		curve:      curve,
		stage:      StageAttack,
	}
	e.attackSamples = maxInt(1, int(math.Ceil(float64(e.attack*e.sampleRate))))
	e.decaySamples = maxInt(1, int(math.Ceil(float64(e.decay*e.sampleRate))))
	e.releaseSamples = maxInt(1, int(math.Ceil(float64(e.release*e.sampleRate))))
	e.decayCoeff = segmentCoeff(e.decaySamples)
	e.releaseCoeff = segmentCoeff(e.releaseSamples)
	return e
}

// segmentCoeff returns the per-sample multiplier that brings a unit value
// down to envFloor over n samples.
func segmentCoeff(n int) float32 {
	return float32(math.Exp(math.Log(envFloor) / float64(n)))
}

// Stage returns the current stage.
func (e *Envelope) Stage() EnvelopeStage { return e.stage }

// Value returns the most recently produced output without advancing.
func (e *Envelope) Value() float32 { return e.value }

// Next advances the state machine one sample and returns the new output.
func (e *Envelope) Next() float32 {
	switch e.stage {
	case StageAttack:
		e.stageSamples++
		e.value = float32(e.stageSamples) / float32(e.attackSamples)
		if e.stageSamples >= e.attackSamples {
			e.value = 1.0
			e.enterDecay()
		}
	case StageDecay:
		e.stageSamples++
		if e.curve == CurveExponential {
			e.shape *= e.decayCoeff
			e.value = e.sustain + (1.0-e.sustain)*(e.shape-envFloor)/(1.0-envFloor)
			if e.shape <= envFloor {
				e.value = e.sustain
				e.stage = StageSustain
			}
		} else {
			e.value = 1.0 - (1.0-e.sustain)*float32(e.stageSamples)/float32(e.decaySamples)
			if e.stageSamples >= e.decaySamples {
				e.value = e.sustain
				e.stage = StageSustain
			}
		}
	case StageSustain:
		e.value = e.sustain
	case StageRelease:
		e.stageSamples++
		if e.curve == CurveExponential {
			e.shape *= e.releaseCoeff
			e.value = e.releaseFrom * (e.shape - envFloor) / (1.0 - envFloor)
			if e.shape <= envFloor {
				e.value = 0
				e.stage = StageOff
			}
		} else {
			e.value = e.releaseFrom * (1.0 - float32(e.stageSamples)/float32(e.releaseSamples))
			if e.stageSamples >= e.releaseSamples {
				e.value = 0
				e.stage = StageOff
			}
		}
		if e.value < 0 {
			e.value = 0
		}
	case StageOff:
		e.value = 0
	}
	return e.value
}

func (e *Envelope) enterDecay() {
	e.stage = StageDecay
	e.stageSamples = 0
	e.shape = 1.0
	if e.sustain >= 1.0 {
		e.stage = StageSustain
	}
}

// Release moves the envelope into the Release stage from wherever it is.
// Calling it on an envelope already in Release or Off has no effect.
func (e *Envelope) Release() {
	if e.stage == StageRelease || e.stage == StageOff {
		return
	}
	e.stage = StageRelease
	e.stageSamples = 0
	e.shape = 1.0
	e.releaseFrom = e.value
}

// Kill silences the envelope immediately, bypassing the release ramp.
func (e *Envelope) Kill() {
	e.stage = StageOff
	e.value = 0
}

// Off reports whether the envelope reached its terminal stage.
func (e *Envelope) Off() bool { return e.stage == StageOff }
