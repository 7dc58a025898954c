package ring

import (
	"errors"
	"fmt"
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const (
	nodeGuard       = 4
	nodeMinBuffer   = 64
	nodeMinUsable   = 8
	minDelaySamples = 4

	// MaxBufferSamples bounds a single node allocation.
	MaxBufferSamples = 1 << 22

	// MaxResonance is the largest loop feedback gain a node accepts.
	MaxResonance = 0.9999
	// MaxDamping is the largest loop lowpass coefficient a node accepts.
	MaxDamping = 0.95
)

var (
	// ErrInvalidSampleRate is returned for a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("ring: invalid sample rate")
	// ErrBufferTooLarge is returned when a delay buffer would exceed MaxBufferSamples.
	ErrBufferTooLarge = errors.New("ring: delay buffer too large")
)

// ResonatorNode is one fractional delay-line oscillator with a saturating
// write-back path.
type ResonatorNode struct {
	sampleRate   float64
	buf          []float64
	cursor       int
	delaySamples float64
	resonance    float64
	damping      float64
	loopState    float64
	lastOut      float64
	sat          Saturator
}

// Init allocates the ring buffer for delays up to maxDelaySeconds and resets
// all state. It allocates and must not be called from the render path.
func (n *ResonatorNode) Init(sampleRate int, maxDelaySeconds float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if !isFinite(maxDelaySeconds) || maxDelaySeconds < 0 {
		maxDelaySeconds = 0
	}
	want := math.Ceil(maxDelaySeconds*float64(sampleRate)) + nodeGuard
	if want > MaxBufferSamples {
		return fmt.Errorf("%w: %.0f samples", ErrBufferTooLarge, want)
	}
	size := max(nodeMinBuffer, int(want))
	if cap(n.buf) >= size {
		n.buf = n.buf[:size]
	} else {
		n.buf = make([]float64, size)
	}
	n.sampleRate = float64(sampleRate)
	n.Reset()
	n.delaySamples = clampf(n.delaySamples, minDelaySamples, float64(size-nodeGuard))
	return nil
}

// Reset clears the buffer and the filter/saturator state, keeping the delay.
func (n *ResonatorNode) Reset() {
	clear(n.buf)
	n.cursor = 0
	n.loopState = 0
	n.lastOut = 0
	n.sat.Reset()
}

// MinDelay returns the shortest delay in seconds the node will run at.
func (n *ResonatorNode) MinDelay() float64 {
	if n.sampleRate <= 0 {
		return 0
	}
	return minDelaySamples / n.sampleRate
}

// MaxDelay returns the longest buffer-safe delay in seconds.
func (n *ResonatorNode) MaxDelay() float64 {
	if n.sampleRate <= 0 || len(n.buf) < nodeMinUsable {
		return 0
	}
	return float64(len(n.buf)-nodeGuard) / n.sampleRate
}

// SetDelay sets the loop delay. Values outside [MinDelay, MaxDelay] are
// clamped silently.
func (n *ResonatorNode) SetDelay(seconds float64) {
	if len(n.buf) < nodeMinUsable {
		n.delaySamples = 0
		return
	}
	d := seconds * n.sampleRate
	if !isFinite(d) {
		d = minDelaySamples
	}
	n.delaySamples = clampf(d, minDelaySamples, float64(len(n.buf)-nodeGuard))
}

// Delay returns the current delay in seconds.
func (n *ResonatorNode) Delay() float64 {
	if n.sampleRate <= 0 {
		return 0
	}
	return n.delaySamples / n.sampleRate
}

// SetResonance sets the feedback gain, clamped to [0, MaxResonance].
func (n *ResonatorNode) SetResonance(g float64) {
	if !isFinite(g) {
		g = 0
	}
	n.resonance = clampf(g, 0, MaxResonance)
}

// SetDamping sets the one-pole loop lowpass coefficient, clamped to [0, MaxDamping].
func (n *ResonatorNode) SetDamping(d float64) {
	if !isFinite(d) {
		d = 0
	}
	n.damping = clampf(d, 0, MaxDamping)
}

// LastOut returns the interpolated output of the previous ProcessSample call.
func (n *ResonatorNode) LastOut() float64 {
	return n.lastOut
}

// BufferLen returns the allocated ring buffer length in samples.
func (n *ResonatorNode) BufferLen() int {
	return len(n.buf)
}

// ProcessSample reads the delayed string signal, mixes input with resonant
// feedback, saturates and writes it back. The returned value is the
// interpolated read, before feedback and saturation.
func (n *ResonatorNode) ProcessSample(input float64) float64 {
	size := len(n.buf)
	if size < nodeMinUsable {
		return 0
	}

	pos := float64(n.cursor) - n.delaySamples
	if pos < 0 {
		pos += float64(size)
	}
	base := int(pos)
	frac := pos - float64(base)
	// A tiny negative pos rounds up to exactly size after the wrap.
	if base >= size {
		base -= size
	}

	im1 := base - 1
	if im1 < 0 {
		im1 += size
	}
	i1 := base + 1
	if i1 >= size {
		i1 -= size
	}
	i2 := base + 2
	if i2 >= size {
		i2 -= size
	}
	out := lagrange4(frac, n.buf[im1], n.buf[base], n.buf[i1], n.buf[i2])
	if !isFinite(out) {
		out = 0
	}

	fb := out
	if n.damping > 0 {
		n.loopState = dspcore.FlushDenormals((1-n.damping)*out + n.damping*n.loopState)
		fb = n.loopState
	}
	w := input + n.resonance*fb
	if !isFinite(w) {
		w = 0
	}

	n.buf[n.cursor] = dspcore.FlushDenormals(n.sat.Process(w))
	n.cursor++
	if n.cursor >= size {
		n.cursor = 0
	}

	n.lastOut = out
	return out
}

// lagrange4 evaluates the cubic Lagrange polynomial through samples at
// offsets -1, 0, 1, 2 at fractional offset t in [0,1).
func lagrange4(t, xm1, x0, x1, x2 float64) float64 {
	tp1 := t + 1
	tm1 := t - 1
	tm2 := t - 2
	return -t*tm1*tm2/6*xm1 +
		tp1*tm1*tm2/2*x0 -
		tp1*t*tm2/2*x1 +
		tp1*t*tm1/6*x2
}
