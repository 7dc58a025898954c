package analysis

import (
	"math"
)

// Metrics contains distance and similarity measurements between two audio signals.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE        float64 `json:"time_rmse"`
	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	RefPeriod       float64 `json:"ref_period_samples"`
	CandPeriod      float64 `json:"cand_period_samples"`
	PitchDiffCents  float64 `json:"pitch_diff_cents"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	TimeNorm     float64 `json:"time_norm"`
	EnvelopeNorm float64 `json:"envelope_norm"`
	PitchNorm    float64 `json:"pitch_norm"`
	DecayNorm    float64 `json:"decay_norm"`
	Dominant     string  `json:"dominant"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Score weights per component. They sum to 1.
const (
	WeightTime     = 0.25
	WeightEnvelope = 0.30
	WeightPitch    = 0.30
	WeightDecay    = 0.15
)

const (
	envelopeFrame = 256
	envelopeHop   = 128
	pitchWindow   = 16384
	minPitchHz    = 20.0
	maxPitchHz    = 2000.0
)

// Compare returns objective distance metrics and a combined score in [0,1]
// (0 = identical).
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 {
		return m
	}

	ref := normalizeRMS(trimLeadingSilence(reference, 1e-6), 0.1)
	cand := normalizeRMS(trimLeadingSilence(candidate, 1e-6), 0.1)
	if len(ref) < envelopeFrame || len(cand) < envelopeFrame {
		return m
	}

	maxLag := min(sampleRate/2, len(ref)-1, len(cand)-1)
	m.LagSamples = estimateLag(ref, cand, maxLag)
	refA, candA := alignByLag(ref, cand, m.LagSamples)
	n := min(len(refA), len(candA), sampleRate*12)
	if n < envelopeFrame {
		return m
	}
	refA, candA = refA[:n], candA[:n]
	m.AlignedFrames = n
	m.TimeRMSE = rmse(refA, candA)

	refEnv := RMSEnvelope(refA, envelopeFrame, envelopeHop)
	candEnv := RMSEnvelope(candA, envelopeFrame, envelopeHop)
	if k := min(len(refEnv), len(candEnv)); k > 0 {
		var sum float64
		for i := 0; i < k; i++ {
			d := linToDB(refEnv[i]) - linToDB(candEnv[i])
			sum += d * d
		}
		m.EnvelopeRMSEDB = math.Sqrt(sum / float64(k))
	}

	m.RefPeriod = periodOf(refA, sampleRate)
	m.CandPeriod = periodOf(candA, sampleRate)
	if m.RefPeriod > 0 && m.CandPeriod > 0 {
		m.PitchDiffCents = math.Abs(1200 * math.Log2(m.RefPeriod/m.CandPeriod))
	}

	hopSec := float64(envelopeHop) / float64(sampleRate)
	// Metrics are reported as JSON, so undefined slopes stay 0.
	refDecay := DecaySlopeDBPerS(refEnv, hopSec)
	candDecay := DecaySlopeDBPerS(candEnv, hopSec)
	if isFinite(refDecay) {
		m.RefDecayDBPerS = refDecay
	}
	if isFinite(candDecay) {
		m.CandDecayDBPerS = candDecay
	}
	if isFinite(refDecay) && isFinite(candDecay) {
		m.DecayDiffDBPerS = math.Abs(refDecay - candDecay)
	}

	m.TimeNorm = clamp01(m.TimeRMSE / 0.25)
	m.EnvelopeNorm = clamp01(m.EnvelopeRMSEDB / 30.0)
	m.PitchNorm = clamp01(m.PitchDiffCents / 100.0)
	m.DecayNorm = clamp01(m.DecayDiffDBPerS / 40.0)

	contrib := []struct {
		name string
		v    float64
	}{
		{"time", WeightTime * m.TimeNorm},
		{"envelope", WeightEnvelope * m.EnvelopeNorm},
		{"pitch", WeightPitch * m.PitchNorm},
		{"decay", WeightDecay * m.DecayNorm},
	}
	var total, best float64
	for _, c := range contrib {
		total += c.v
		if c.v > best {
			best = c.v
			m.Dominant = c.name
		}
	}
	m.Score = clamp01(total)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))
	return m
}

func periodOf(x []float64, sampleRate int) float64 {
	if len(x) > pitchWindow {
		x = x[:pitchWindow]
	}
	minLag := int(float64(sampleRate) / maxPitchHz)
	maxLag := min(int(float64(sampleRate)/minPitchHz), len(x)/2)
	p, err := EstimatePeriod(toFloat32(x), minLag, maxLag)
	if err != nil {
		return 0
	}
	return p
}

// estimateLag returns the lag (positive: reference is late) maximizing the
// cross-correlation within ±maxLag.
func estimateLag(ref []float64, cand []float64, maxLag int) int {
	c, err := CrossCorrelation(toFloat32(ref), toFloat32(cand))
	if err != nil {
		return 0
	}
	zero := len(cand) - 1
	best := 0
	bestVal := float32(math.Inf(-1))
	for lag := -maxLag; lag <= maxLag; lag++ {
		i := zero + lag
		if i < 0 || i >= len(c) {
			continue
		}
		if c[i] > bestVal {
			bestVal = c[i]
			best = lag
		}
	}
	return best
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	if -lag >= len(cand) {
		return nil, nil
	}
	return ref, cand[-lag:]
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i, v := range x {
		if math.Abs(v) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	out := append([]float64(nil), x...)
	r := rms(x)
	if r <= 1e-12 {
		return out
	}
	g := target / r
	for i := range out {
		out[i] *= g
	}
	return out
}

func rmse(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
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
