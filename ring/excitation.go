package ring

import "math"

// ExcitationState is the phase of an ExcitationShaper.
type ExcitationState int

const (
	ExcitationIdle ExcitationState = iota
	ExcitationBursting
	ExcitationDecaying
)

func (s ExcitationState) String() string {
	switch s {
	case ExcitationBursting:
		return "bursting"
	case ExcitationDecaying:
		return "decaying"
	default:
		return "idle"
	}
}

const (
	minBurstSeconds = 0.0005
	burstPeriods    = 4.0
	envelopeDecay   = 0.995
	envelopeFloor   = 1e-4
	simmerLevel     = 0.02
)

// ExcitationShaper turns a trigger into a raised-cosine windowed noise burst
// followed by a decaying low-level simmer.
type ExcitationShaper struct {
	state        ExcitationState
	elapsed      int
	burstSamples int
	envelope     float64
}

// Trigger (re)starts the burst. The burst spans impulse*4 loop periods of
// delaySeconds, never shorter than 0.5 ms.
func (e *ExcitationShaper) Trigger(sampleRate float64, impulse float64, delaySeconds float64) {
	if impulse < 0 || !isFinite(impulse) {
		impulse = 0
	}
	burst := impulse * burstPeriods * delaySeconds
	if !isFinite(burst) || burst < minBurstSeconds {
		burst = minBurstSeconds
	}
	e.burstSamples = max(1, int(math.Round(burst*sampleRate)))
	e.elapsed = 0
	e.envelope = 1
	e.state = ExcitationBursting
}

// Next advances one sample and returns the excitation for the given noise
// sample in [-1,1].
func (e *ExcitationShaper) Next(noise float64) float64 {
	switch e.state {
	case ExcitationBursting:
		phase := float64(e.elapsed) / float64(e.burstSamples)
		win := 0.5 - 0.5*math.Cos(2*math.Pi*phase)
		out := win * noise * e.envelope
		e.elapsed++
		if e.elapsed >= e.burstSamples {
			e.state = ExcitationDecaying
		}
		return out
	case ExcitationDecaying:
		e.envelope *= envelopeDecay
		if e.envelope < envelopeFloor {
			e.envelope = 0
			e.state = ExcitationIdle
			return 0
		}
		return simmerLevel * noise * e.envelope
	}
	return 0
}

// Envelope returns the current envelope in [0,1].
func (e *ExcitationShaper) Envelope() float64 {
	return e.envelope
}

// Elapsed returns the burst samples produced since the last trigger.
func (e *ExcitationShaper) Elapsed() int {
	return e.elapsed
}

// State returns the current phase.
func (e *ExcitationShaper) State() ExcitationState {
	return e.state
}

// Active reports whether the envelope is still non-zero.
func (e *ExcitationShaper) Active() bool {
	return e.envelope > 0
}

// Reset returns the shaper to idle.
func (e *ExcitationShaper) Reset() {
	*e = ExcitationShaper{}
}
