package synth

// Voice is one sounding note: a kernel plus (for most kernels) an ADSR
// envelope. Voices are exclusively owned by their Engine; nothing else ever
// holds a reference, and only the render step mutates them.
type Voice struct {
	note     int
	channel  int
	velocity float32 // normalized 0..1
	stamp    uint64  // engine-monotonic trigger order, used for stealing
	kind     KernelKind

	kernel   Kernel
	env      *Envelope // nil for modal voices
	released bool

	scratch []float32 // pre-sized at construction; no per-block allocation
}

func newVoice(sampleRate int, note, channel int, velocity float32, stamp uint64, p *Params, maxBlock int, rng randSource) *Voice {
	kind := p.kernelForChannel(channel)
	v := &Voice{
		note:     note,
		channel:  channel,
		velocity: velocity,
		stamp:    stamp,
		kind:     kind,
		kernel:   newKernel(sampleRate, kind, note, velocity, p, rng),
		scratch:  make([]float32, maxBlock),
	}
	if kind != KernelModal {
		curve := CurveLinear
		if kind == KernelFM {
			curve = CurveExponential
		}
		v.env = NewEnvelope(sampleRate, p.Envelope.Attack, p.Envelope.Decay, p.Envelope.Sustain, p.Envelope.Release, curve)
	}
	return v
}

// Note returns the MIDI note number.
func (v *Voice) Note() int { return v.note }

// Channel returns the MIDI channel.
func (v *Voice) Channel() int { return v.channel }

// Kind returns the kernel kind frozen at trigger time.
func (v *Voice) Kind() KernelKind { return v.kind }

// Released reports whether note-off has been seen.
func (v *Voice) Released() bool { return v.released }

// release transitions the envelope to Release and notifies the kernel.
func (v *Voice) release() {
	if v.released {
		return
	}
	v.released = true
	if v.env != nil {
		v.env.Release()
	}
	v.kernel.Release()
}

// kill silences the voice immediately, bypassing the release ramp.
func (v *Voice) kill() {
	if v.env != nil {
		v.env.Kill()
	}
}

// done reports whether the voice can be swept after a block.
func (v *Voice) done() bool {
	if v.env != nil && v.env.Off() {
		return true
	}
	return v.kernel.Silent()
}

// renderInto accumulates one block into mix. Velocity scales voices without
// an ADSR (modal banks bake velocity into the strike amplitudes already, so
// only the envelope product applies here).
func (v *Voice) renderInto(mix []float32) {
	n := len(mix)
	buf := v.scratch[:n]
	v.kernel.Render(buf)

	if v.env == nil {
		for i := 0; i < n; i++ {
			mix[i] += buf[i]
		}
		return
	}
	for i := 0; i < n; i++ {
		g := v.env.Next()
		if g == 0 && v.env.Off() {
			return
		}
		mix[i] += buf[i] * g * v.velocity
	}
}
