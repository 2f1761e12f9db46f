// synth-fit tunes kernel parameters against a reference recording: it
// renders candidate notes, scores them with the analysis metrics and
// searches the knob space with a mayfly optimizer.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-synth/analysis"
	"github.com/cwbudde/algo-synth/internal/fitcommon"
	"github.com/cwbudde/algo-synth/synth"
)

type knobDef struct {
	Name string
	Min  float64
	Max  float64
}

func main() {
	refPath := flag.String("reference", "", "Reference WAV file (required)")
	note := flag.Int("note", 69, "MIDI note number matching the reference")
	velocity := flag.Int("velocity", 100, "MIDI velocity (0-127)")
	kernel := flag.String("kernel", "modal", "Kernel to fit: string, modal, fm")
	sampleRate := flag.Int("sample-rate", 48000, "Working sample rate in Hz")
	variant := flag.String("variant", "desma", "Mayfly variant: ma, desma, olce, eobbma, gsasma, mpma, aoblmoa")
	pop := flag.Int("pop", 12, "Mayfly population size")
	iters := flag.Int("iters", 40, "Mayfly iterations")
	seed := flag.Int64("seed", 1, "Optimizer random seed")
	releaseAfter := flag.Float64("release-after", 0.5, "Seconds before NoteOff in candidate renders")
	output := flag.String("output", "fitted.json", "Output preset JSON path")
	flag.Parse()

	if *refPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: synth-fit -reference ref.wav [flags]")
		os.Exit(1)
	}

	ref, refRate, err := fitcommon.ReadWAVMono(*refPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading reference: %v\n", err)
		os.Exit(1)
	}
	ref, err = fitcommon.ResampleIfNeeded(ref, refRate, *sampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resampling reference: %v\n", err)
		os.Exit(1)
	}

	kind := synth.KernelKindByName(*kernel)
	defs := knobDefs(kind)

	refSeconds := float64(len(ref)) / float64(*sampleRate)
	renderFrames := int(math.Min(refSeconds+1.0, 8.0) * float64(*sampleRate))

	evals := 0
	best := make([]float64, len(defs))
	for i := range best {
		best[i] = 0.5
	}
	bestScore := math.Inf(1)
	objective := func(vals []float64) float64 {
		evals++
		params := applyKnobs(kind, defs, vals)
		cand := renderCandidate(params, *sampleRate, *note, *velocity, *releaseAfter, renderFrames)
		m := analysis.Compare(ref, fitcommon.MonoTo64(cand), *sampleRate)
		if m.Score < bestScore {
			bestScore = m.Score
			copy(best, vals)
		}
		return m.Score
	}

	cfg, err := newMayflyConfig(*variant, *pop, len(defs), *iters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.ObjectiveFunc = objective
	cfg.Rand = rand.New(rand.NewSource(*seed))

	fmt.Printf("Fitting %s kernel (%d knobs) against %s (%.2fs at %d Hz), variant=%s pop=%d iters=%d\n",
		kind, len(defs), *refPath, refSeconds, *sampleRate, *variant, *pop, *iters)

	start := time.Now()
	if err := runMayfly(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Optimization failed: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	bestParams := applyKnobs(kind, defs, best)
	cand := renderCandidate(bestParams, *sampleRate, *note, *velocity, *releaseAfter, renderFrames)
	m := analysis.Compare(ref, fitcommon.MonoTo64(cand), *sampleRate)

	fmt.Printf("Best score %.4f (similarity %.4f) after %d evals in %s\n",
		m.Score, m.Similarity, evals, elapsed.Round(time.Millisecond))
	for i, d := range defs {
		fmt.Printf("  %-22s %.5g\n", d.Name, denorm(best[i], d))
	}

	if err := writePreset(*output, kind, defs, best); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing preset: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *output)
}

// knobDefs returns the searchable knob space per kernel. Bounds match the
// constructor clamps so every candidate is renderable.
func knobDefs(kind synth.KernelKind) []knobDef {
	switch kind {
	case synth.KernelModal:
		return []knobDef{
			{Name: "modal.hardness", Min: 0.05, Max: 1.0},
			{Name: "modal.strike_position", Min: 0.05, Max: 0.95},
			{Name: "output_gain", Min: 0.2, Max: 2.0},
		}
	case synth.KernelFM:
		return []knobDef{
			{Name: "envelope.attack", Min: 0.001, Max: 0.2},
			{Name: "envelope.decay", Min: 0.02, Max: 2.0},
			{Name: "envelope.sustain", Min: 0.0, Max: 1.0},
			{Name: "envelope.release", Min: 0.02, Max: 2.0},
			{Name: "output_gain", Min: 0.2, Max: 2.0},
		}
	default:
		return []knobDef{
			{Name: "string.feedback", Min: 0.9, Max: 0.9999},
			{Name: "string.damping", Min: 0.1, Max: 0.9},
			{Name: "string.pick_position", Min: 0.05, Max: 0.95},
			{Name: "string.pickup_position", Min: 0.05, Max: 0.95},
			{Name: "output_gain", Min: 0.2, Max: 2.0},
		}
	}
}

func denorm(v float64, d knobDef) float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return d.Min + v*(d.Max-d.Min)
}

func applyKnobs(kind synth.KernelKind, defs []knobDef, vals []float64) *synth.Params {
	p := synth.NewDefaultParams()
	p.Kernel = kind
	for i, d := range defs {
		v := denorm(vals[i], d)
		switch d.Name {
		case "modal.hardness":
			p.Modal.Hardness = float32(v)
		case "modal.strike_position":
			p.Modal.StrikePosition = float32(v)
		case "string.feedback":
			p.String.Feedback = float32(v)
		case "string.damping":
			p.String.Damping = float32(v)
		case "string.pick_position":
			p.String.PickPosition = float32(v)
		case "string.pickup_position":
			p.String.PickupPosition = float32(v)
		case "envelope.attack":
			p.Envelope.Attack = float32(v)
		case "envelope.decay":
			p.Envelope.Decay = float32(v)
		case "envelope.sustain":
			p.Envelope.Sustain = float32(v)
		case "envelope.release":
			p.Envelope.Release = float32(v)
		case "output_gain":
			p.OutputGain = float32(v)
		}
	}
	return p
}

func renderCandidate(params *synth.Params, sampleRate, note, velocity int, releaseAfter float64, totalFrames int) []float32 {
	eng := synth.NewEngine(sampleRate, params)
	eng.NoteOn(note, velocity, 0)

	const blockSize = 128
	releaseAtFrame := int(releaseAfter * float64(sampleRate))
	out := make([]float32, 0, totalFrames)
	released := false
	for rendered := 0; rendered < totalFrames; {
		n := blockSize
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}
		if !released && rendered >= releaseAtFrame {
			eng.NoteOff(note, 0)
			released = true
		}
		out = append(out, eng.Process(n)...)
		rendered += n
	}
	return out
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	nm := int(math.Round(0.05 * float64(pop)))
	if nm < 1 {
		nm = 1
	}
	cfg.NM = nm
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	_, err = mayfly.Optimize(cfg)
	return err
}

// writePreset emits the fitted knobs as a preset file loadable by the
// render and play commands.
func writePreset(path string, kind synth.KernelKind, defs []knobDef, vals []float64) error {
	doc := map[string]any{"kernel": kind.String()}
	section := func(name string) map[string]any {
		if m, ok := doc[name].(map[string]any); ok {
			return m
		}
		m := map[string]any{}
		doc[name] = m
		return m
	}
	for i, d := range defs {
		v := denorm(vals[i], d)
		switch d.Name {
		case "modal.hardness":
			section("modal")["hardness"] = v
		case "modal.strike_position":
			section("modal")["strike_position"] = v
		case "string.feedback":
			section("string")["feedback"] = v
		case "string.damping":
			section("string")["damping"] = v
		case "string.pick_position":
			section("string")["pick_position"] = v
		case "string.pickup_position":
			section("string")["pickup_position"] = v
		case "envelope.attack":
			section("envelope")["attack"] = v
		case "envelope.decay":
			section("envelope")["decay"] = v
		case "envelope.sustain":
			section("envelope")["sustain"] = v
		case "envelope.release":
			section("envelope")["release"] = v
		case "output_gain":
			doc["output_gain"] = v
		}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
