package ring

import (
	"math"
	"testing"
)

func windowRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// centroid returns the signed first moment of x over its indices.
func centroid(x []float64) float64 {
	var num, den float64
	for i, v := range x {
		num += float64(i) * v
		den += v
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func argmaxAbs(x []float64) int {
	best := 0
	for i := range x {
		if math.Abs(x[i]) > math.Abs(x[best]) {
			best = i
		}
	}
	return best
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// newTestNode returns a node at 48 kHz with room for 0.1 s delays.
func newTestNode(t testing.TB, delaySamples float64, resonance float64) *ResonatorNode {
	t.Helper()
	var n ResonatorNode
	if err := n.Init(48000, 0.1); err != nil {
		t.Fatalf("Init: %v", err)
	}
	n.SetDelay(delaySamples / 48000)
	n.SetResonance(resonance)
	return &n
}

// renderImpulse feeds amp at sample 0 followed by silence.
func renderImpulse(n *ResonatorNode, amp float64, samples int) []float64 {
	out := make([]float64, samples)
	for i := range out {
		x := 0.0
		if i == 0 {
			x = amp
		}
		out[i] = n.ProcessSample(x)
	}
	return out
}

// renderMono strikes the engine once and returns the summed L+R output.
func renderMono(t testing.TB, e *Engine, in *Inputs, samples int) []float64 {
	t.Helper()
	var f Frame
	out := make([]float64, samples)
	for i := range out {
		in.ManualStrike = i == 0
		e.Tick(in, &f)
		for c := 0; c < f.Channels; c++ {
			out[i] += f.L[c] + f.R[c]
		}
	}
	in.ManualStrike = false
	return out
}
