package synth

import "github.com/cwbudde/algo-approx"

// midiNoteToFreq converts MIDI note number to frequency in Hz.
func midiNoteToFreq(note int) float32 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * pow2Approx(exponent)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

func centsToRatio(cents float32) float32 {
	return pow2Approx(cents / 1200.0)
}

func maxf(a float32, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func clampFloat32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
