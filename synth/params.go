package synth

// Params holds all engine configuration. A Params value is plain immutable
// data passed in at construction; presets are built by the caller (or the
// preset package) and never mutated by the engine.
type Params struct {
	MaxPolyphony int
	MaxBlock     int
	Seed         int64

	// Kernel selects the default kernel kind; PerChannel overrides it for
	// individual MIDI channels.
	Kernel     KernelKind
	PerChannel map[int]KernelKind

	OutputGain float32

	Envelope EnvelopeConfig
	String   StringConfig
	Modal    ModalConfig
	Noise    NoiseConfig
	FM       FMConfig
}

// EnvelopeConfig is the ADSR applied by the voice layer to string, noise
// and FM voices. Modal voices carry no ADSR; their decay is the envelope.
type EnvelopeConfig struct {
	Attack  float32 // seconds
	Decay   float32 // seconds
	Sustain float32 // 0..1
	Release float32 // seconds
}

// StringConfig configures the Karplus-Strong kernel.
type StringConfig struct {
	Feedback       float32 // loop gain (sustain), 0.9..0.9999
	Damping        float32 // one-pole coefficient (brightness), 0.1..0.9
	PickPosition   float32 // excitation write position, fraction of length
	PickupPosition float32 // output tap position, fraction of length
}

// ModalConfig configures the modal percussion kernel.
type ModalConfig struct {
	Family         string  // "string", "bar", "bell", "membrane"
	Hardness       float32 // 0..1, tilts spectrum and shortens decay
	StrikePosition float32 // 0..1
}

// NoiseConfig configures the LFSR noise kernel.
type NoiseConfig struct {
	Width  int // 15 or 23
	Seed   uint32
	Output NoiseOutput
}

// OperatorConfig configures one FM operator.
type OperatorConfig struct {
	Wave     Waveform
	Level    float32 // carrier mix level, 0..1
	Ratio    float32 // frequency multiple of the voice fundamental
	ModDepth float32 // depth of the outgoing modulation connection
	Feedback float32 // self-feedback, previous-sample phase offset
	Attack   float32
	Decay    float32
	Sustain  float32
	Release  float32
}

// FMConfig configures the FM kernel: 2 or 4 operators wired by one of the
// four fixed algorithms.
type FMConfig struct {
	Algorithm int
	Operators []OperatorConfig
}

func defaultOperatorConfig() OperatorConfig {
	return OperatorConfig{
		Wave:     WaveSine,
		Level:    0.8,
		Ratio:    1.0,
		ModDepth: 1.5,
		Feedback: 0.0,
		Attack:   0.005,
		Decay:    0.4,
		Sustain:  0.5,
		Release:  0.25,
	}
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		MaxPolyphony: 16,
		MaxBlock:     512,
		Seed:         1,
		Kernel:       KernelString,
		PerChannel:   make(map[int]KernelKind),
		OutputGain:   1.0,
		Envelope: EnvelopeConfig{
			Attack:  0.005,
			Decay:   0.12,
			Sustain: 0.7,
			Release: 0.25,
		},
		String: StringConfig{
			Feedback:       0.996,
			Damping:        0.5,
			PickPosition:   0.2,
			PickupPosition: 0.85,
		},
		Modal: ModalConfig{
			Family:         "bar",
			Hardness:       0.6,
			StrikePosition: 0.26,
		},
		Noise: NoiseConfig{
			Width:  15,
			Seed:   0x1FFF,
			Output: NoiseOutputBit,
		},
		FM: FMConfig{
			Algorithm: AlgSerial,
			Operators: []OperatorConfig{
				{Wave: WaveSine, Level: 0.9, Ratio: 1.0, ModDepth: 1.5, Attack: 0.004, Decay: 0.5, Sustain: 0.6, Release: 0.3},
				{Wave: WaveSine, Level: 0.7, Ratio: 2.0, ModDepth: 1.5, Feedback: 0.2, Attack: 0.002, Decay: 0.3, Sustain: 0.3, Release: 0.2},
			},
		},
	}
}

// kernelForChannel resolves the kernel kind for a MIDI channel.
func (p *Params) kernelForChannel(channel int) KernelKind {
	if p.PerChannel != nil {
		if k, ok := p.PerChannel[channel]; ok {
			return k
		}
	}
	return p.Kernel
}
