package analysis

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

// ErrTooShort is returned when a signal cannot cover the requested lag range.
var ErrTooShort = errors.New("analysis: signal too short")

// Autocorrelation returns r[k] = sum x[i]*x[i+k] for k in [0, len(x)).
func Autocorrelation(x []float32) ([]float32, error) {
	n := len(x)
	if n == 0 {
		return nil, nil
	}
	full, err := CrossCorrelation(x, x)
	if err != nil {
		return nil, err
	}
	return full[n-1:], nil
}

// CrossCorrelation returns c[m] = sum a[i+k]*b[i] with k = m-(len(b)-1),
// i.e. index len(b)-1 holds the zero-lag product and positive lags mean a
// is late relative to b.
func CrossCorrelation(a []float32, b []float32) ([]float32, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrTooShort
	}
	rev := make([]float32, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	out := make([]float32, len(a)+len(b)-1)
	if err := algofft.ConvolveReal(out, a, rev); err != nil {
		return nil, fmt.Errorf("fft correlation: %w", err)
	}
	return out, nil
}

// EstimatePeriod finds the autocorrelation peak in [minLag, maxLag] and
// refines it with parabolic interpolation. The result is in samples.
func EstimatePeriod(x []float32, minLag int, maxLag int) (float64, error) {
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(x)-1 || minLag >= maxLag {
		return 0, fmt.Errorf("%w: %d samples for lags [%d,%d]", ErrTooShort, len(x), minLag, maxLag)
	}
	r, err := Autocorrelation(x)
	if err != nil {
		return 0, err
	}

	best := minLag
	for k := minLag + 1; k <= maxLag; k++ {
		if r[k] > r[best] {
			best = k
		}
	}
	period := float64(best)
	if best > 0 && best < len(r)-1 {
		ym1 := float64(r[best-1])
		y0 := float64(r[best])
		yp1 := float64(r[best+1])
		den := ym1 - 2*y0 + yp1
		if den < 0 {
			delta := 0.5 * (ym1 - yp1) / den
			if delta > -1 && delta < 1 {
				period += delta
			}
		}
	}
	return period, nil
}

// EstimateFundamental returns the fundamental frequency in Hz searched in
// [minHz, maxHz].
func EstimateFundamental(x []float32, sampleRate int, minHz float64, maxHz float64) (float64, error) {
	if sampleRate <= 0 || minHz <= 0 || maxHz <= minHz {
		return 0, fmt.Errorf("analysis: invalid search range %.2f..%.2f Hz at %d Hz", minHz, maxHz, sampleRate)
	}
	minLag := int(math.Floor(float64(sampleRate) / maxHz))
	maxLag := int(math.Ceil(float64(sampleRate) / minHz))
	period, err := EstimatePeriod(x, minLag, maxLag)
	if err != nil {
		return 0, err
	}
	return float64(sampleRate) / period, nil
}

func toFloat32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}
