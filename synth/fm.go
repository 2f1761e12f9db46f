package synth

import "math"

// Waveform selects an operator's analytic oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSquare
	WaveSaw
)

// WaveformByName maps preset strings to waveforms, defaulting to sine.
func WaveformByName(name string) Waveform {
	switch name {
	case "triangle":
		return WaveTriangle
	case "square":
		return WaveSquare
	case "saw":
		return WaveSaw
	default:
		return WaveSine
	}
}

// FM algorithms: fixed routings of operator outputs into either another
// operator's frequency input or the mix bus.
const (
	// AlgSerial chains every operator into the next; the last in the chain
	// is the only carrier.
	AlgSerial = 0
	// AlgParallel feeds every modulator into a single shared carrier.
	AlgParallel = 1
	// AlgDualSerial splits four operators into two independent two-operator
	// chains with two carriers.
	AlgDualSerial = 2
	// AlgAdditive routes every operator straight to the mix bus.
	AlgAdditive = 3
)

// fmOperator is one oscillator+envelope node in the graph. target is the
// index of the operator it modulates, or -1 for the mix bus; targets are
// always lower indices so evaluating from the highest index down respects
// the DAG within a single sample.
type fmOperator struct {
	wave     Waveform
	level    float32
	ratio    float32
	depth    float32 // modulation depth of the outgoing connection
	feedback float32 // self-feedback, applied from the previous sample
	target   int

	env      *Envelope
	phase    float32
	phaseInc float32
	baseInc  float32 // phase increment before detune
	prev     float32 // previous sample's raw output
}

// OperatorGraph is a small fixed network of FM operators. The topology is
// frozen when the graph is built; algorithm changes only affect voices
// triggered afterwards.
type OperatorGraph struct {
	sampleRate float32
	ops        []fmOperator
	modIn      []float32
	algorithm  int
	carriers   int
}

// NewOperatorGraph builds a graph of 2 or 4 operators (other counts are
// clamped) wired per the algorithm. f0 is the voice fundamental; each
// operator runs at f0 times its frequency ratio.
func NewOperatorGraph(sampleRate int, f0 float32, cfg FMConfig) *OperatorGraph {
	count := 2
	if len(cfg.Operators) >= 4 {
		count = 4
	}
	g := &OperatorGraph{
		sampleRate: float32(sampleRate),
		ops:        make([]fmOperator, count),
		modIn:      make([]float32, count),
		algorithm:  clampInt(cfg.Algorithm, AlgSerial, AlgAdditive),
	}

	for i := 0; i < count; i++ {
		oc := operatorConfigAt(cfg, i)
		op := &g.ops[i]
		op.wave = oc.Wave
		op.level = clampFloat32(oc.Level, 0, 1)
		op.ratio = oc.Ratio
		if op.ratio <= 0 {
			op.ratio = 1
		}
		op.depth = clampFloat32(oc.ModDepth, 0, 8)
		op.feedback = clampFloat32(oc.Feedback, 0, 2)
		op.target = -1
		op.env = NewEnvelope(sampleRate, oc.Attack, oc.Decay, oc.Sustain, oc.Release, CurveExponential)
		op.baseInc = f0 * op.ratio / g.sampleRate
		op.phaseInc = op.baseInc
	}

	g.wire()
	return g
}

func operatorConfigAt(cfg FMConfig, i int) OperatorConfig {
	if i < len(cfg.Operators) {
		return cfg.Operators[i]
	}
	return defaultOperatorConfig()
}

// wire applies the algorithm's routing table. Modulator targets are always
// lower-indexed operators, so there are no true cycles; self-feedback is a
// one-sample delay, not same-sample recursion.
func (g *OperatorGraph) wire() {
	n := len(g.ops)
	for i := range g.ops {
		g.ops[i].target = -1
	}
	switch g.algorithm {
	case AlgSerial:
		for i := n - 1; i > 0; i-- {
			g.ops[i].target = i - 1
		}
	case AlgParallel:
		for i := n - 1; i > 0; i-- {
			g.ops[i].target = 0
		}
	case AlgDualSerial:
		if n == 4 {
			g.ops[3].target = 2
			g.ops[1].target = 0
		} else {
			g.ops[1].target = 0
		}
	case AlgAdditive:
		// all carriers
	}
	g.carriers = 0
	for i := range g.ops {
		if g.ops[i].target == -1 {
			g.carriers++
		}
	}
}

// Algorithm returns the routing in effect for this graph.
func (g *OperatorGraph) Algorithm() int { return g.algorithm }

// OperatorCount returns the number of operators in the graph.
func (g *OperatorGraph) OperatorCount() int { return len(g.ops) }

// CarrierCount returns how many operators feed the mix bus directly.
func (g *OperatorGraph) CarrierCount() int { return g.carriers }

// Process evaluates one sample. Operators run from the highest index down
// so every modulator is computed before the carrier it feeds.
func (g *OperatorGraph) Process() float32 {
	for i := range g.modIn {
		g.modIn[i] = 0
	}

	var mix float32
	for i := len(g.ops) - 1; i >= 0; i-- {
		op := &g.ops[i]
		phase := op.phase + g.modIn[i] + op.feedback*op.prev
		raw := evalWave(op.wave, phase)
		out := raw * op.env.Next() * op.level
		op.prev = raw

		if op.target >= 0 {
			g.modIn[op.target] += out * op.depth
		} else {
			mix += out
		}

		op.phase += op.phaseInc
		if op.phase >= 1.0 {
			op.phase -= 1.0
		}
	}
	if g.carriers > 1 {
		mix /= float32(g.carriers)
	}
	return mix
}

// SetDetune scales every operator's frequency by the given ratio. Ratios
// at or below zero are ignored.
func (g *OperatorGraph) SetDetune(ratio float32) {
	if ratio <= 0 {
		return
	}
	for i := range g.ops {
		g.ops[i].phaseInc = g.ops[i].baseInc * ratio
	}
}

// ReleaseAll moves every operator envelope into Release.
func (g *OperatorGraph) ReleaseAll() {
	for i := range g.ops {
		g.ops[i].env.Release()
	}
}

// Finished reports whether every operator envelope reached Off.
func (g *OperatorGraph) Finished() bool {
	for i := range g.ops {
		if !g.ops[i].env.Off() {
			return false
		}
	}
	return true
}

// evalWave evaluates an analytic waveform at a phase in cycles. The phase
// may exceed [0,1) when modulated; only its fractional part matters.
func evalWave(w Waveform, phase float32) float32 {
	p := phase - float32(math.Floor(float64(phase)))
	switch w {
	case WaveTriangle:
		return 2.0*float32(math.Abs(float64(2.0*p-1.0))) - 1.0
	case WaveSquare:
		if p < 0.5 {
			return 1.0
		}
		return -1.0
	case WaveSaw:
		return 2.0*p - 1.0
	default:
		return float32(math.Sin(2.0 * math.Pi * float64(p)))
	}
}

// fmKernel adapts an OperatorGraph to the Kernel interface.
type fmKernel struct {
	graph *OperatorGraph
}

func newFMKernel(sampleRate int, f0 float32, cfg FMConfig) *fmKernel {
	return &fmKernel{graph: NewOperatorGraph(sampleRate, f0, cfg)}
}

func (k *fmKernel) Render(dst []float32) {
	for i := range dst {
		dst[i] = k.graph.Process()
	}
}

func (k *fmKernel) Release() { k.graph.ReleaseAll() }

// SetDetune forwards smoothed detune updates to the graph.
func (k *fmKernel) SetDetune(ratio float32) { k.graph.SetDetune(ratio) }

func (k *fmKernel) Silent() bool { return k.graph.Finished() }
