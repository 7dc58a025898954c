package ring

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// PitchToDelay converts a V/oct pitch (0 V = C4) into a loop delay in seconds.
func PitchToDelay(volts float64) float64 {
	return 1.0 / (C4Hz * math.Exp2(volts))
}

// outputDrive maps overdrive [0,1] onto an exponential gain in [1, maxDrive].
func outputDrive(overdrive float64) float64 {
	const lnMaxDrive = 1.3862943611198906 // ln(4)
	if overdrive <= 0 {
		return 1
	}
	if overdrive > 1 {
		overdrive = 1
	}
	return float64(approx.FastExp(float32(overdrive * lnMaxDrive)))
}

// snapNodeCount returns the supported ring size nearest to n.
func snapNodeCount(n int) int {
	best := NodeCounts[0]
	for _, c := range NodeCounts[1:] {
		if absInt(n-c) < absInt(n-best) {
			best = c
		}
	}
	return best
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clampf(v float64, lo float64, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
