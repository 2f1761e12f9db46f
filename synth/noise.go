package synth

// NoiseOutput selects how register state maps to an output sample.
type NoiseOutput int

const (
	// NoiseOutputBit emits the low register bit as a two-level signal.
	NoiseOutputBit NoiseOutput = iota
	// NoiseOutputWindow emits the low 8 register bits mapped to [-1,1].
	NoiseOutputWindow
)

// defaultNoiseSeed replaces caller-supplied zero seeds; an all-zero register
// is a fixed point of the feedback function and would stay silent forever.
const defaultNoiseSeed = 0x1FFF

// NoiseRegister is a linear-feedback shift register advanced one bit per
// sample. Width and tap positions follow classic sound-chip noise channels:
// 15 bits with taps 0/1 or 23 bits with taps 0/5.
type NoiseRegister struct {
	reg    uint32
	seed   uint32
	width  uint
	tap0   uint
	tap1   uint
	output NoiseOutput
}

// NewNoiseRegister creates a register of the given width (15 or 23 bits,
// anything else is clamped to 15) with the width's canonical tap pair.
// A zero seed is replaced with a nonzero default.
func NewNoiseRegister(width int, seed uint32, output NoiseOutput) *NoiseRegister {
	n := &NoiseRegister{output: output}
	switch width {
	case 23:
		n.width = 23
		n.tap0 = 0
		n.tap1 = 5
	default:
		n.width = 15
		n.tap0 = 0
		n.tap1 = 1
	}
	n.Seed(seed)
	return n
}

// Seed resets the register. Zero is replaced with a nonzero default so the
// register can never enter its all-zero fixed point.
func (n *NoiseRegister) Seed(seed uint32) {
	mask := uint32(1<<n.width) - 1
	seed &= mask
	if seed == 0 {
		seed = defaultNoiseSeed & mask
	}
	n.reg = seed
	n.seed = seed
}

// State returns the raw register contents.
func (n *NoiseRegister) State() uint32 { return n.reg }

// Width returns the register width in bits.
func (n *NoiseRegister) Width() int { return int(n.width) }

// Step advances the register one bit and returns the new output sample.
func (n *NoiseRegister) Step() float32 {
	feedback := ((n.reg >> n.tap0) ^ (n.reg >> n.tap1)) & 1
	n.reg = (n.reg >> 1) | (feedback << (n.width - 1))

	if n.output == NoiseOutputWindow {
		window := n.reg & 0xFF
		return float32(window)/127.5 - 1.0
	}
	if n.reg&1 == 1 {
		return 1.0
	}
	return -1.0
}

// noiseKernel adapts a NoiseRegister to the Kernel interface. Amplitude
// shaping is entirely the voice envelope's job; Silent always reports false.
type noiseKernel struct {
	reg *NoiseRegister
}

func newNoiseKernel(width int, seed uint32, output NoiseOutput) *noiseKernel {
	return &noiseKernel{reg: NewNoiseRegister(width, seed, output)}
}

func (k *noiseKernel) Render(dst []float32) {
	for i := range dst {
		dst[i] = k.reg.Step()
	}
}

func (k *noiseKernel) Release() {}

func (k *noiseKernel) Silent() bool { return false }
