package synth

// KernelKind enumerates the closed set of per-voice DSP kernels. The set is
// fixed at compile time; dispatch goes through the small Kernel interface
// below rather than an open plugin mechanism.
type KernelKind int

const (
	KernelString KernelKind = iota
	KernelModal
	KernelNoise
	KernelFM
)

// KernelKindByName maps preset strings to kernel kinds, defaulting to the
// plucked string.
func KernelKindByName(name string) KernelKind {
	switch name {
	case "modal":
		return KernelModal
	case "noise":
		return KernelNoise
	case "fm":
		return KernelFM
	default:
		return KernelString
	}
}

func (k KernelKind) String() string {
	switch k {
	case KernelModal:
		return "modal"
	case KernelNoise:
		return "noise"
	case KernelFM:
		return "fm"
	default:
		return "string"
	}
}

// Kernel is the per-sample synthesis capability behind a voice. Render
// overwrites dst with raw (pre-envelope) samples; Release reacts to
// note-off where the kernel has internal shaping of its own; Silent reports
// kernels that terminate themselves (the modal bank, finished FM graphs).
type Kernel interface {
	Render(dst []float32)
	Release()
	Silent() bool
}

// randSource is the non-blocking pseudo-random source kernels draw from at
// trigger time (pluck decorrelation, excitation noise). Satisfied by
// math/rand.Rand; seeded once at engine construction so the audio path
// never touches a blocking entropy source.
type randSource interface {
	Float32() float32
}

// newKernel builds the kernel for a voice from the engine configuration.
// The returned kernel's topology and tables are frozen for the voice's
// lifetime.
func newKernel(sampleRate int, kind KernelKind, note int, velocity float32, p *Params, rng randSource) Kernel {
	f0 := midiNoteToFreq(note)
	switch kind {
	case KernelModal:
		return newModalKernel(sampleRate, f0, p.Modal, velocity, rng)
	case KernelNoise:
		return newNoiseKernel(p.Noise.Width, p.Noise.Seed, p.Noise.Output)
	case KernelFM:
		return newFMKernel(sampleRate, f0, p.FM)
	default:
		return newStringKernel(sampleRate, f0, p.String, velocity, rng)
	}
}
