package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-synth/synth"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadJSONAppliesOverrides(t *testing.T) {
	path := writePreset(t, `{
  "kernel": "modal",
  "output_gain": 0.9,
  "max_polyphony": 8,
  "per_channel": {"9": "noise"},
  "envelope": {"attack": 0.02, "sustain": 0.4},
  "modal": {"family": "bell", "hardness": 0.8},
  "string": {"feedback": 0.995},
  "noise": {"width": 23, "output": "window"}
}`)

	p, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if p.Kernel != synth.KernelModal {
		t.Fatalf("kernel = %v, want modal", p.Kernel)
	}
	if p.OutputGain != 0.9 || p.MaxPolyphony != 8 {
		t.Fatalf("globals mismatch: gain=%f poly=%d", p.OutputGain, p.MaxPolyphony)
	}
	if p.PerChannel[9] != synth.KernelNoise {
		t.Fatalf("per_channel mapping missing: %v", p.PerChannel)
	}
	if p.Envelope.Attack != 0.02 || p.Envelope.Sustain != 0.4 {
		t.Fatalf("envelope mismatch: %+v", p.Envelope)
	}
	// absent fields keep defaults
	if p.Envelope.Decay != 0.12 {
		t.Fatalf("absent decay overwritten: %f", p.Envelope.Decay)
	}
	if p.Modal.Family != "bell" || p.Modal.Hardness != 0.8 {
		t.Fatalf("modal mismatch: %+v", p.Modal)
	}
	if p.String.Feedback != 0.995 {
		t.Fatalf("string feedback mismatch: %f", p.String.Feedback)
	}
	if p.Noise.Width != 23 || p.Noise.Output != synth.NoiseOutputWindow {
		t.Fatalf("noise mismatch: %+v", p.Noise)
	}
}

func TestLoadJSONAppliesFMOperators(t *testing.T) {
	path := writePreset(t, `{
  "kernel": "fm",
  "fm": {
    "algorithm": 2,
    "operators": [
      {"wave": "sine", "level": 0.9, "ratio": 1, "mod_depth": 1.2, "attack": 0.004, "decay": 0.5, "sustain": 0.6, "release": 0.3},
      {"wave": "saw", "level": 0.5, "ratio": 2, "mod_depth": 2.0, "feedback": 0.3, "attack": 0.002, "decay": 0.2, "sustain": 0.3, "release": 0.2}
    ]
  }
}`)

	p, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if p.FM.Algorithm != 2 || len(p.FM.Operators) != 2 {
		t.Fatalf("fm mismatch: %+v", p.FM)
	}
	if p.FM.Operators[1].Wave != synth.WaveSaw || p.FM.Operators[1].Feedback != 0.3 {
		t.Fatalf("operator 1 mismatch: %+v", p.FM.Operators[1])
	}
}

func TestLoadJSONRejectsInvalidChannelKey(t *testing.T) {
	path := writePreset(t, `{"per_channel": {"x": "noise"}}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for invalid channel key")
	}
	path = writePreset(t, `{"per_channel": {"16": "noise"}}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for out-of-range channel")
	}
}

func TestLoadJSONRejectsInvalidRanges(t *testing.T) {
	cases := []string{
		`{"string": {"feedback": 0.5}}`,
		`{"string": {"damping": 0.95}}`,
		`{"envelope": {"sustain": 1.5}}`,
		`{"noise": {"width": 17}}`,
		`{"noise": {"output": "chaos"}}`,
		`{"fm": {"algorithm": 9}}`,
		`{"fm": {"operators": [{"wave": "sine", "level": 0.5, "ratio": 1}, {"wave": "sine", "level": 0.5, "ratio": 1}, {"wave": "sine", "level": 0.5, "ratio": 1}]}}`,
		`{"max_polyphony": 0}`,
		`{"output_gain": -1}`,
	}
	for _, content := range cases {
		path := writePreset(t, content)
		if _, err := LoadJSON(path); err == nil {
			t.Fatalf("expected error for %s", content)
		}
	}
}

func TestApplyFileNilIsNoOp(t *testing.T) {
	p := synth.NewDefaultParams()
	if err := ApplyFile(p, nil); err != nil {
		t.Fatalf("nil file: %v", err)
	}
	if err := ApplyFile(nil, &File{}); err == nil {
		t.Fatalf("expected error for nil params")
	}
}
