// Package analysis computes objective distance metrics between a rendered
// signal and a reference recording. The combined score drives the
// parameter-fitting commands; the individual sub-metrics are reported for
// diagnosis.
package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics contains distance and similarity measurements between two mono
// audio signals.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	RefPitchHz     float64 `json:"ref_pitch_hz"`
	CandPitchHz    float64 `json:"cand_pitch_hz"`
	PitchDiffCents float64 `json:"pitch_diff_cents"`

	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare returns objective distance metrics and a combined score in
// [0,1], 0 meaning identical. Degenerate inputs score 1.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1.0,
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		return m
	}

	ref := trimLeadingSilence(reference, 1e-6)
	cand := trimLeadingSilence(candidate, 1e-6)
	if len(ref) == 0 || len(cand) == 0 {
		return m
	}

	ref = normalizeRMS(ref, 0.1)
	cand = normalizeRMS(cand, 0.1)

	maxLag := sampleRate / 10
	if maxLag > len(ref)-1 {
		maxLag = len(ref) - 1
	}
	if maxLag > len(cand)-1 {
		maxLag = len(cand) - 1
	}
	if maxLag < 1 {
		maxLag = 1
	}
	lag := estimateLag(ref, cand, maxLag)
	m.LagSamples = lag

	refA, candA := alignByLag(ref, cand, lag)
	n := len(refA)
	if len(candA) < n {
		n = len(candA)
	}
	if n < 256 {
		return m
	}
	maxFrames := sampleRate * 8
	if n > maxFrames {
		n = maxFrames
	}
	refA = refA[:n]
	candA = candA[:n]
	m.AlignedFrames = n

	m.RefPitchHz = EstimatePitch(refA, sampleRate)
	m.CandPitchHz = EstimatePitch(candA, sampleRate)
	if m.RefPitchHz > 0 && m.CandPitchHz > 0 {
		m.PitchDiffCents = math.Abs(1200.0 * math.Log2(m.CandPitchHz/m.RefPitchHz))
	}

	refEnv := rmsEnvelope(refA, 256, 128)
	candEnv := rmsEnvelope(candA, 256, 128)
	envN := len(refEnv)
	if len(candEnv) < envN {
		envN = len(candEnv)
	}
	if envN > 0 {
		var sum float64
		for i := 0; i < envN; i++ {
			d := linToDB(refEnv[i]) - linToDB(candEnv[i])
			sum += d * d
		}
		m.EnvelopeRMSEDB = math.Sqrt(sum / float64(envN))
	}

	m.SpectralRMSEDB = spectralRMSEDB(refA, candA, sampleRate)

	hopSec := 128.0 / float64(sampleRate)
	m.RefDecayDBPerS = decaySlopeDBPerS(refEnv, hopSec)
	m.CandDecayDBPerS = decaySlopeDBPerS(candEnv, hopSec)
	if isFinite(m.RefDecayDBPerS) && isFinite(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	pitchNorm := clamp01(m.PitchDiffCents / 100.0)
	envNorm := clamp01(m.EnvelopeRMSEDB / 30.0)
	specNorm := clamp01(m.SpectralRMSEDB / 30.0)
	decNorm := clamp01(m.DecayDiffDBPerS / 40.0)
	m.Score = clamp01(0.25*pitchNorm + 0.25*envNorm + 0.35*specNorm + 0.15*decNorm)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))

	return m
}

// EstimatePitch returns the fundamental in Hz estimated by an
// autocorrelation peak over 40..2000 Hz, or 0 when no clear peak exists.
func EstimatePitch(x []float64, sampleRate int) float64 {
	minLag := sampleRate / 2000
	maxLag := sampleRate / 40
	if minLag < 2 {
		minLag = 2
	}
	if maxLag >= len(x) {
		maxLag = len(x) - 1
	}
	if maxLag <= minLag {
		return 0
	}

	n := len(x)
	if n > 4*maxLag {
		n = 4 * maxLag
	}
	var e0 float64
	for i := 0; i < n; i++ {
		e0 += x[i] * x[i]
	}
	if e0 <= 1e-12 {
		return 0
	}

	bestLag := 0
	best := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += x[i] * x[i+lag]
		}
		if sum > best {
			best = sum
			bestLag = lag
		}
	}
	if bestLag == 0 || best < 0.2*e0 {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i := 0; i < len(x); i++ {
		if math.Abs(x[i]) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	r := rms(x)
	if r <= 1e-12 {
		return append([]float64(nil), x...)
	}
	g := target / r
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * g
	}
	return out
}

func estimateLag(ref []float64, cand []float64, maxLag int) int {
	step := 2
	if len(ref) > 200000 || len(cand) > 200000 {
		step = 4
	}
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		s := dotAtLag(ref, cand, lag, step)
		if s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a []float64, b []float64, lag int, step int) float64 {
	var ai, bi int
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := len(a) - ai
	if len(b)-bi < n {
		n = len(b) - bi
	}
	var sum float64
	for i := 0; i < n; i += step {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	o := -lag
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms(x[start : start+frame])
	}
	return out
}

// spectralRMSEDB computes the RMS magnitude difference in dB between
// averaged STFT spectra of the two signals.
func spectralRMSEDB(a []float64, b []float64, sampleRate int) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	const fftSize = 2048
	const hop = 1024
	if n < fftSize {
		return 0
	}

	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return 0
	}

	hann := make([]float64, fftSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}

	nBins := fftSize / 2
	avgA := make([]float64, nBins)
	avgB := make([]float64, nBins)
	spec := make([]complex128, fftSize/2+1)
	buf := make([]float64, fftSize)

	frames := 0
	for pos := 0; pos+fftSize <= n; pos += hop {
		for i := 0; i < fftSize; i++ {
			buf[i] = a[pos+i] * hann[i]
		}
		plan.Forward(spec, buf)
		for k := 1; k < nBins; k++ {
			avgA[k] += cmplx.Abs(spec[k])
		}
		for i := 0; i < fftSize; i++ {
			buf[i] = b[pos+i] * hann[i]
		}
		plan.Forward(spec, buf)
		for k := 1; k < nBins; k++ {
			avgB[k] += cmplx.Abs(spec[k])
		}
		frames++
	}
	if frames == 0 {
		return 0
	}

	var sum float64
	for k := 1; k < nBins; k++ {
		d := linToDB(avgA[k]/float64(frames)) - linToDB(avgB[k]/float64(frames))
		sum += d * d
	}
	return math.Sqrt(sum / float64(nBins-1))
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// decaySlopeDBPerS fits a line to the post-peak dB envelope and returns
// its slope; NaN when the envelope is too short to fit.
func decaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := -math.MaxFloat64
	peakIdx := 0
	for i, v := range env {
		db := linToDB(v)
		if db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}

	threshold := peak - 60.0
	end := len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < threshold {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := linToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
