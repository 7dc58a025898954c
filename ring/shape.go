package ring

import "math/rand/v2"

const (
	chaosJitterScale   = 0.4
	spreadScale        = 0.05
	chaosDampingScale  = 0.3
	spreadDampingScale = 0.15
)

// shapeNodeDelays fills dst with per-node delays derived from base and
// returns the loop damping to use.
//
// Negative shape draws an independent upward jitter in [0, 0.4*shape²] per
// node on every call. Non-negative shape spreads delays along a linear ramp
// from -0.05*shape² to +0.05*shape² across the node index. Results are
// clamped to [lo, hi].
func shapeNodeDelays(dst []float64, base float64, shape float64, lo float64, hi float64, rng *rand.Rand) float64 {
	shape = clampf(shape, -1, 1)
	s2 := shape * shape

	if shape < 0 {
		maxJitter := chaosJitterScale * s2
		for i := range dst {
			dst[i] = clampf(base*(1+rng.Float64()*maxJitter), lo, hi)
		}
		return chaosDampingScale * s2
	}

	maxSpread := spreadScale * s2
	last := len(dst) - 1
	for i := range dst {
		var spread float64
		if last > 0 {
			spread = -maxSpread + 2*maxSpread*float64(i)/float64(last)
		}
		dst[i] = clampf(base*(1+spread), lo, hi)
	}
	return spreadDampingScale * s2
}
