// Package preset loads engine parameters from JSON files. A preset is a
// partial override applied on top of the built-in defaults; absent fields
// keep their default values.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/cwbudde/algo-synth/synth"
)

// File is the JSON schema for synth presets. Pointer fields distinguish
// "absent" from "explicitly zero".
type File struct {
	MaxPolyphony *int              `json:"max_polyphony"`
	MaxBlock     *int              `json:"max_block"`
	Seed         *int64            `json:"seed"`
	Kernel       string            `json:"kernel"`
	PerChannel   map[string]string `json:"per_channel"`

	OutputGain *float32 `json:"output_gain"`

	Envelope *EnvelopeSetting `json:"envelope"`
	String   *StringSetting   `json:"string"`
	Modal    *ModalSetting    `json:"modal"`
	Noise    *NoiseSetting    `json:"noise"`
	FM       *FMSetting       `json:"fm"`
}

// EnvelopeSetting is a partial ADSR override.
type EnvelopeSetting struct {
	Attack  *float32 `json:"attack"`
	Decay   *float32 `json:"decay"`
	Sustain *float32 `json:"sustain"`
	Release *float32 `json:"release"`
}

// StringSetting overrides the plucked-string kernel.
type StringSetting struct {
	Feedback       *float32 `json:"feedback"`
	Damping        *float32 `json:"damping"`
	PickPosition   *float32 `json:"pick_position"`
	PickupPosition *float32 `json:"pickup_position"`
}

// ModalSetting overrides the modal percussion kernel.
type ModalSetting struct {
	Family         string   `json:"family"`
	Hardness       *float32 `json:"hardness"`
	StrikePosition *float32 `json:"strike_position"`
}

// NoiseSetting overrides the LFSR noise kernel.
type NoiseSetting struct {
	Width  *int    `json:"width"`
	Seed   *uint32 `json:"seed"`
	Output string  `json:"output"`
}

// OperatorSetting is one FM operator entry; all fields are required per
// operator since the operator list replaces the default wholesale.
type OperatorSetting struct {
	Wave     string  `json:"wave"`
	Level    float32 `json:"level"`
	Ratio    float32 `json:"ratio"`
	ModDepth float32 `json:"mod_depth"`
	Feedback float32 `json:"feedback"`
	Attack   float32 `json:"attack"`
	Decay    float32 `json:"decay"`
	Sustain  float32 `json:"sustain"`
	Release  float32 `json:"release"`
}

// FMSetting overrides the FM kernel.
type FMSetting struct {
	Algorithm *int              `json:"algorithm"`
	Operators []OperatorSetting `json:"operators"`
}

// LoadJSON loads a preset JSON file and applies it on top of default
// params.
func LoadJSON(path string) (*synth.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := synth.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *synth.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.MaxPolyphony != nil {
		if *f.MaxPolyphony < 1 || *f.MaxPolyphony > 256 {
			return fmt.Errorf("max_polyphony must be in 1..256")
		}
		dst.MaxPolyphony = *f.MaxPolyphony
	}
	if f.MaxBlock != nil {
		if *f.MaxBlock < 32 || *f.MaxBlock > 8192 {
			return fmt.Errorf("max_block must be in 32..8192")
		}
		dst.MaxBlock = *f.MaxBlock
	}
	if f.Seed != nil {
		dst.Seed = *f.Seed
	}
	if f.Kernel != "" {
		dst.Kernel = synth.KernelKindByName(f.Kernel)
	}
	if f.OutputGain != nil {
		if *f.OutputGain < 0 {
			return fmt.Errorf("output_gain must be >= 0")
		}
		dst.OutputGain = *f.OutputGain
	}

	if len(f.PerChannel) > 0 {
		if dst.PerChannel == nil {
			dst.PerChannel = make(map[int]synth.KernelKind)
		}
		keys := make([]string, 0, len(f.PerChannel))
		for k := range f.PerChannel {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ch, err := strconv.Atoi(k)
			if err != nil || ch < 0 || ch > 15 {
				return fmt.Errorf("invalid per_channel key %q (expected 0..15)", k)
			}
			dst.PerChannel[ch] = synth.KernelKindByName(f.PerChannel[k])
		}
	}

	if f.Envelope != nil {
		if err := applyEnvelope(&dst.Envelope, f.Envelope); err != nil {
			return err
		}
	}
	if f.String != nil {
		if err := applyString(&dst.String, f.String); err != nil {
			return err
		}
	}
	if f.Modal != nil {
		if err := applyModal(&dst.Modal, f.Modal); err != nil {
			return err
		}
	}
	if f.Noise != nil {
		if err := applyNoise(&dst.Noise, f.Noise); err != nil {
			return err
		}
	}
	if f.FM != nil {
		if err := applyFM(&dst.FM, f.FM); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvelope(dst *synth.EnvelopeConfig, s *EnvelopeSetting) error {
	if s.Attack != nil {
		if *s.Attack < 0 {
			return fmt.Errorf("envelope.attack must be >= 0")
		}
		dst.Attack = *s.Attack
	}
	if s.Decay != nil {
		if *s.Decay < 0 {
			return fmt.Errorf("envelope.decay must be >= 0")
		}
		dst.Decay = *s.Decay
	}
	if s.Sustain != nil {
		if *s.Sustain < 0 || *s.Sustain > 1 {
			return fmt.Errorf("envelope.sustain must be in 0..1")
		}
		dst.Sustain = *s.Sustain
	}
	if s.Release != nil {
		if *s.Release < 0 {
			return fmt.Errorf("envelope.release must be >= 0")
		}
		dst.Release = *s.Release
	}
	return nil
}

func applyString(dst *synth.StringConfig, s *StringSetting) error {
	if s.Feedback != nil {
		if *s.Feedback < 0.9 || *s.Feedback > 0.9999 {
			return fmt.Errorf("string.feedback must be in 0.9..0.9999")
		}
		dst.Feedback = *s.Feedback
	}
	if s.Damping != nil {
		if *s.Damping < 0.1 || *s.Damping > 0.9 {
			return fmt.Errorf("string.damping must be in 0.1..0.9")
		}
		dst.Damping = *s.Damping
	}
	if s.PickPosition != nil {
		if *s.PickPosition < 0 || *s.PickPosition > 1 {
			return fmt.Errorf("string.pick_position must be in 0..1")
		}
		dst.PickPosition = *s.PickPosition
	}
	if s.PickupPosition != nil {
		if *s.PickupPosition < 0 || *s.PickupPosition > 1 {
			return fmt.Errorf("string.pickup_position must be in 0..1")
		}
		dst.PickupPosition = *s.PickupPosition
	}
	return nil
}

func applyModal(dst *synth.ModalConfig, s *ModalSetting) error {
	if s.Family != "" {
		dst.Family = s.Family
	}
	if s.Hardness != nil {
		if *s.Hardness < 0 || *s.Hardness > 1 {
			return fmt.Errorf("modal.hardness must be in 0..1")
		}
		dst.Hardness = *s.Hardness
	}
	if s.StrikePosition != nil {
		if *s.StrikePosition < 0 || *s.StrikePosition > 1 {
			return fmt.Errorf("modal.strike_position must be in 0..1")
		}
		dst.StrikePosition = *s.StrikePosition
	}
	return nil
}

func applyNoise(dst *synth.NoiseConfig, s *NoiseSetting) error {
	if s.Width != nil {
		if *s.Width != 15 && *s.Width != 23 {
			return fmt.Errorf("noise.width must be 15 or 23")
		}
		dst.Width = *s.Width
	}
	if s.Seed != nil {
		dst.Seed = *s.Seed
	}
	switch s.Output {
	case "":
	case "bit":
		dst.Output = synth.NoiseOutputBit
	case "window":
		dst.Output = synth.NoiseOutputWindow
	default:
		return fmt.Errorf("noise.output must be \"bit\" or \"window\"")
	}
	return nil
}

func applyFM(dst *synth.FMConfig, s *FMSetting) error {
	if s.Algorithm != nil {
		if *s.Algorithm < synth.AlgSerial || *s.Algorithm > synth.AlgAdditive {
			return fmt.Errorf("fm.algorithm must be in 0..3")
		}
		dst.Algorithm = *s.Algorithm
	}
	if len(s.Operators) > 0 {
		if len(s.Operators) != 2 && len(s.Operators) != 4 {
			return fmt.Errorf("fm.operators must list 2 or 4 operators")
		}
		ops := make([]synth.OperatorConfig, len(s.Operators))
		for i, o := range s.Operators {
			if o.Level < 0 || o.Level > 1 {
				return fmt.Errorf("fm.operators[%d].level must be in 0..1", i)
			}
			if o.Ratio <= 0 {
				return fmt.Errorf("fm.operators[%d].ratio must be > 0", i)
			}
			ops[i] = synth.OperatorConfig{
				Wave:     synth.WaveformByName(o.Wave),
				Level:    o.Level,
				Ratio:    o.Ratio,
				ModDepth: o.ModDepth,
				Feedback: o.Feedback,
				Attack:   o.Attack,
				Decay:    o.Decay,
				Sustain:  o.Sustain,
				Release:  o.Release,
			}
		}
		dst.Operators = ops
	}
	return nil
}
