package synth

import "math/rand"

// voiceKey identifies a voice by note number and MIDI channel. Keys are
// unique: retriggering a sounding key replaces its voice.
type voiceKey struct {
	note    int
	channel int
}

// tone/detune hooks kernels may implement to receive smoothed parameter
// updates on sounding voices.
type toneControl interface {
	SetDamping(coeff float32)
}

type detuneControl interface {
	SetDetune(ratio float32)
}

// Engine is the per-instrument voice lifecycle manager: allocation,
// polyphony limiting, oldest-first stealing, release and block rendering.
// All methods must be called from a single thread of control; the engine
// itself never blocks, locks or allocates in the per-sample path.
type Engine struct {
	sampleRate   int
	maxPolyphony int
	maxBlock     int
	params       *Params

	voices map[voiceKey]*Voice
	order  []*Voice // insertion order, keeps block summation deterministic
	stamp  uint64

	mix []float32
	rng *rand.Rand

	set          *ParamSet
	toneSmooth   paramSmoother
	detuneSmooth paramSmoother
}

// NewEngine creates an engine. All buffers the render path touches are
// sized here; Process never allocates.
func NewEngine(sampleRate int, params *Params) *Engine {
	if params == nil {
		params = NewDefaultParams()
	}
	maxPoly := params.MaxPolyphony
	if maxPoly < 1 {
		maxPoly = 16
	}
	maxBlock := params.MaxBlock
	if maxBlock < 32 {
		maxBlock = 512
	}
	seed := params.Seed
	if seed == 0 {
		seed = 1
	}
	e := &Engine{
		sampleRate:   sampleRate,
		maxPolyphony: maxPoly,
		maxBlock:     maxBlock,
		params:       params,
		voices:       make(map[voiceKey]*Voice, maxPoly),
		order:        make([]*Voice, 0, maxPoly),
		mix:          make([]float32, maxBlock),
		rng:          rand.New(rand.NewSource(seed)),
		set:          engineParamSet(params),
	}
	e.toneSmooth = paramSmoother{current: float64(params.String.Damping), tau: 0.02}
	e.detuneSmooth = paramSmoother{current: 0, tau: 0.02}
	return e
}

// SampleRate returns the engine sample rate in Hz.
func (e *Engine) SampleRate() int { return e.sampleRate }

// MaxPolyphony returns the voice ceiling.
func (e *Engine) MaxPolyphony() int { return e.maxPolyphony }

// ActiveVoices returns the number of currently sounding voices.
func (e *Engine) ActiveVoices() int { return len(e.order) }

// Params returns the runtime parameter set. Safe to use from a control
// thread while the engine renders.
func (e *Engine) Params() *ParamSet { return e.set }

// SetParam updates a runtime parameter by key. Unknown keys are silently
// ignored.
func (e *Engine) SetParam(name string, value float64) {
	e.set.Set(name, value)
}

// NoteOn triggers a new voice. Out-of-range arguments are clamped. At the
// polyphony ceiling the voice with the smallest trigger stamp is evicted
// first (a hard cut, not a graceful release). Never fails, never blocks.
func (e *Engine) NoteOn(note, velocity, channel int) {
	note = clampInt(note, 0, 127)
	channel = clampInt(channel, 0, 15)
	velocity = clampInt(velocity, 0, 127)

	key := voiceKey{note: note, channel: channel}
	if old, ok := e.voices[key]; ok {
		e.remove(old)
	}
	for len(e.order) >= e.maxPolyphony {
		e.evictOldest()
	}

	p := e.effectiveParams()
	e.stamp++
	v := newVoice(e.sampleRate, note, channel, float32(velocity)/127.0, e.stamp, &p, e.maxBlock, e.rng)
	e.voices[key] = v
	e.order = append(e.order, v)
}

// NoteOff releases a voice. A note-off with no matching voice is a no-op:
// MIDI sources are racy and must never disturb rendering. The voice stays
// in the map until its envelope (or modal decay) finishes.
func (e *Engine) NoteOff(note, channel int) {
	key := voiceKey{note: clampInt(note, 0, 127), channel: clampInt(channel, 0, 15)}
	if v, ok := e.voices[key]; ok {
		v.release()
	}
}

// AllNotesOff force-silences every voice and clears the map. Synchronous:
// no residual samples from silenced voices reach the next block.
func (e *Engine) AllNotesOff() {
	for _, v := range e.order {
		v.kill()
	}
	e.order = e.order[:0]
	for k := range e.voices {
		delete(e.voices, k)
	}
	for i := range e.mix {
		e.mix[i] = 0
	}
}

// Process renders one mono block of up to the configured maximum size and
// returns a slice of the engine-owned mix buffer, valid until the next
// call. Voices whose envelope reached Off (or whose modal bank decayed
// below the floor) are swept after the block.
func (e *Engine) Process(frames int) []float32 {
	frames = clampInt(frames, 1, e.maxBlock)
	out := e.mix[:frames]
	for i := range out {
		out[i] = 0
	}

	e.applySmoothedParams(frames)

	for _, v := range e.order {
		v.renderInto(out)
	}

	gain := float32(e.set.value(ParamOutputGain))
	if gain != 1.0 {
		for i := range out {
			out[i] *= gain
		}
	}

	e.sweep()
	return out
}

// applySmoothedParams slews the smoothed parameter subset toward their
// targets and pushes the values into sounding voices; everything else only
// takes effect on newly-triggered voices.
func (e *Engine) applySmoothedParams(frames int) {
	tone := float32(e.toneSmooth.advance(e.set.value(ParamStringDamping), frames, e.sampleRate))
	detune := float32(e.detuneSmooth.advance(e.set.value(ParamDetune), frames, e.sampleRate))
	detuneRatio := centsToRatio(detune)

	for _, v := range e.order {
		if tc, ok := v.kernel.(toneControl); ok {
			tc.SetDamping(tone)
		}
		if dc, ok := v.kernel.(detuneControl); ok {
			dc.SetDetune(detuneRatio)
		}
	}
}

// effectiveParams snapshots construction params overlaid with the current
// runtime parameter values. The snapshot freezes a new voice's topology and
// envelope times at trigger time.
func (e *Engine) effectiveParams() Params {
	p := *e.params
	p.Envelope.Attack = float32(e.set.value(ParamEnvAttack))
	p.Envelope.Decay = float32(e.set.value(ParamEnvDecay))
	p.Envelope.Sustain = float32(e.set.value(ParamEnvSustain))
	p.Envelope.Release = float32(e.set.value(ParamEnvRelease))
	p.String.Feedback = float32(e.set.value(ParamStringFeedback))
	p.String.Damping = float32(e.toneSmooth.current)
	p.Modal.Hardness = float32(e.set.value(ParamModalHardness))
	p.FM.Algorithm = int(e.set.value(ParamFMAlgorithm))
	return p
}

func (e *Engine) evictOldest() {
	if len(e.order) == 0 {
		return
	}
	oldest := e.order[0]
	for _, v := range e.order[1:] {
		if v.stamp < oldest.stamp {
			oldest = v
		}
	}
	oldest.kill()
	e.remove(oldest)
}

func (e *Engine) remove(v *Voice) {
	delete(e.voices, voiceKey{note: v.note, channel: v.channel})
	for i, o := range e.order {
		if o == v {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

func (e *Engine) sweep() {
	for i := 0; i < len(e.order); {
		if e.order[i].done() {
			e.remove(e.order[i])
			continue
		}
		i++
	}
}
