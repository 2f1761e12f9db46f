package synth

import (
	"math"

	"github.com/cwbudde/algo-approx"
	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"
)

// modalSilenceFloor is the summed-amplitude threshold below which a modal
// voice is eligible for removal.
const modalSilenceFloor = 1e-4

// releaseDecayScale multiplies every partial's decay rate on note-off. The
// modal decay itself is the instrument's envelope; release just hurries it.
const releaseDecayScale = 3.0

// ModalFamily describes one instrument family: the frequency ratios of its
// partials relative to the fundamental, their relative gains, and their
// nominal decay times in seconds.
type ModalFamily struct {
	Name       string
	Ratios     []float32
	Gains      []float32
	DecayTimes []float32
}

// Built-in modal families. Ratio tables follow standard modal measurements:
// a stiff string stays harmonic, bars and bells are strongly inharmonic.
var (
	FamilyString = ModalFamily{
		Name:       "string",
		Ratios:     []float32{1, 2, 3, 4, 5, 6, 7, 8},
		Gains:      []float32{1, 0.62, 0.45, 0.33, 0.24, 0.18, 0.12, 0.08},
		DecayTimes: []float32{2.4, 1.7, 1.2, 0.9, 0.7, 0.5, 0.35, 0.25},
	}
	FamilyBar = ModalFamily{
		Name:       "bar",
		Ratios:     []float32{1, 3.932, 9.538, 16.688, 24.566},
		Gains:      []float32{1, 0.5, 0.26, 0.14, 0.07},
		DecayTimes: []float32{1.6, 0.9, 0.45, 0.25, 0.12},
	}
	FamilyBell = ModalFamily{
		Name:       "bell",
		Ratios:     []float32{0.5, 1, 1.188, 1.53, 2, 2.662, 3.011, 4.166},
		Gains:      []float32{0.8, 1, 0.6, 0.5, 0.4, 0.25, 0.2, 0.12},
		DecayTimes: []float32{5.0, 3.6, 2.8, 2.0, 1.4, 1.0, 0.7, 0.45},
	}
	FamilyMembrane = ModalFamily{
		Name:       "membrane",
		Ratios:     []float32{1, 1.594, 2.136, 2.296, 2.653, 2.918},
		Gains:      []float32{1, 0.55, 0.32, 0.28, 0.18, 0.12},
		DecayTimes: []float32{0.7, 0.45, 0.3, 0.26, 0.18, 0.14},
	}
)

// FamilyPlate is computed from the Dirichlet eigenspectrum of a clamped
// 1-D finite-difference Laplacian rather than a measurement table; the
// grid dispersion compresses the upper partials slightly, which reads as
// a thin stiff plate.
var FamilyPlate = eigenmodeFamily("plate", 8)

// eigenmodeFamily derives partial ratios from the Dirichlet eigenvalues
// of a discrete Laplacian: mode frequencies scale with sqrt(lambda).
// Gains and decay times fall off with mode number the way the measured
// tables do.
func eigenmodeFamily(name string, modes int) ModalFamily {
	const n = 64
	const h = 1.0 / 64.0
	eig := pdefd.Eigenvalues(n, h, pdepoisson.Dirichlet)
	if modes > len(eig) {
		modes = len(eig)
	}
	base := math.Sqrt(eig[0])
	f := ModalFamily{
		Name:       name,
		Ratios:     make([]float32, modes),
		Gains:      make([]float32, modes),
		DecayTimes: make([]float32, modes),
	}
	for m := 0; m < modes; m++ {
		f.Ratios[m] = float32(math.Sqrt(eig[m]) / base)
		f.Gains[m] = float32(1.0 / (1.0 + 0.7*float64(m)))
		f.DecayTimes[m] = float32(2.0 / (1.0 + 0.9*float64(m)))
	}
	return f
}

// ModalFamilyByName returns a built-in family, defaulting to FamilyBar for
// unknown names.
func ModalFamilyByName(name string) ModalFamily {
	switch name {
	case "string":
		return FamilyString
	case "bell":
		return FamilyBell
	case "membrane":
		return FamilyMembrane
	case "plate":
		return FamilyPlate
	default:
		return FamilyBar
	}
}

type modalPartial struct {
	phase     float32 // 0..1, wraps
	phaseInc  float32
	amplitude float32
	decayRate float32 // nepers per second
	ampCoeff  float32 // per-sample multiplier, exp(-decayRate/sr)
}

// ModalBank synthesizes a struck resonant object as a bank of exponentially
// decaying sinusoidal partials.
type ModalBank struct {
	sampleRate float32
	f0         float32
	family     ModalFamily
	partials   []modalPartial
	released   bool
}

// NewModalBank creates a silent bank for the given fundamental; partials
// above 95% of Nyquist are skipped. Call Strike to excite it.
func NewModalBank(sampleRate int, f0 float32, family ModalFamily) *ModalBank {
	b := &ModalBank{
		sampleRate: float32(sampleRate),
		f0:         f0,
		family:     family,
	}
	nyquist := 0.475 * b.sampleRate
	b.partials = make([]modalPartial, 0, len(family.Ratios))
	for m := range family.Ratios {
		freq := f0 * family.Ratios[m]
		if freq >= nyquist {
			continue
		}
		b.partials = append(b.partials, modalPartial{
			phaseInc: freq / b.sampleRate,
		})
	}
	return b
}

// Strike excites the bank. hardness (0..1) tilts energy toward high partials
// and shortens decays; position (0..1) weights each partial by the mode
// shape |sin((m+1)*position*pi)| so strikes near a node excite that partial
// weakly. Phases are randomized to decorrelate the attack.
func (b *ModalBank) Strike(velocity, hardness, position float32, rng randSource) {
	velocity = clampFloat32(velocity, 0, 1)
	hardness = clampFloat32(hardness, 0.01, 1)
	position = clampFloat32(position, 0.01, 0.99)
	b.released = false

	for m := range b.partials {
		p := &b.partials[m]
		p.phase = rng.Float32()

		shape := float32(math.Abs(math.Sin(float64(m+1) * float64(position) * math.Pi)))
		hard := float32(math.Pow(float64(hardness), float64(m)*0.5))
		p.amplitude = velocity * b.family.Gains[m] * hard * shape

		// Harder strikes decay faster across the board.
		decayTime := b.family.DecayTimes[m] / (0.5 + hardness)
		if decayTime < 0.01 {
			decayTime = 0.01
		}
		p.decayRate = float32(math.Log(1000.0)) / decayTime
		p.ampCoeff = approx.FastExp(-p.decayRate / b.sampleRate)
	}
}

// Release accelerates every partial's decay instead of applying a separate
// amplitude envelope.
func (b *ModalBank) Release() {
	if b.released {
		return
	}
	b.released = true
	for m := range b.partials {
		p := &b.partials[m]
		p.decayRate *= releaseDecayScale
		p.ampCoeff = approx.FastExp(-p.decayRate / b.sampleRate)
	}
}

// Process advances the bank one sample.
func (b *ModalBank) Process() float32 {
	var sample float32
	for m := range b.partials {
		p := &b.partials[m]
		if p.amplitude < modalSilenceFloor {
			p.amplitude = 0
			continue
		}
		sample += float32(math.Sin(2.0*math.Pi*float64(p.phase))) * p.amplitude
		p.phase += p.phaseInc
		if p.phase >= 1.0 {
			p.phase -= 1.0
		}
		p.amplitude *= p.ampCoeff
	}
	return sample
}

// TotalAmplitude sums the current partial amplitudes.
func (b *ModalBank) TotalAmplitude() float32 {
	var sum float32
	for m := range b.partials {
		sum += b.partials[m].amplitude
	}
	return sum
}

// Silent reports whether the bank has decayed below the removal floor.
func (b *ModalBank) Silent() bool {
	return b.TotalAmplitude() < modalSilenceFloor
}

// modalKernel adapts a ModalBank to the Kernel interface. Modal voices carry
// no ADSR; their decay is the envelope.
type modalKernel struct {
	bank *ModalBank
}

func newModalKernel(sampleRate int, f0 float32, cfg ModalConfig, velocity float32, rng randSource) *modalKernel {
	bank := NewModalBank(sampleRate, f0, ModalFamilyByName(cfg.Family))
	bank.Strike(velocity, cfg.Hardness, cfg.StrikePosition, rng)
	return &modalKernel{bank: bank}
}

func (k *modalKernel) Render(dst []float32) {
	for i := range dst {
		dst[i] = k.bank.Process()
	}
}

func (k *modalKernel) Release() { k.bank.Release() }

func (k *modalKernel) Silent() bool { return k.bank.Silent() }
