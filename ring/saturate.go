package ring

import "math"

const (
	satKnee     = 1.5
	satCubic    = 4.0 / 27.0
	satQuartic  = 1.0 / 27.0
	satADOffset = 0.5625 // |x| - F(x) beyond the knee

	// Below this input delta the ADAA quotient is replaced by direct evaluation.
	adaaEpsilon = 1e-5
)

// saturate is a cubic soft clipper with unity slope at the origin that
// reaches ±1 with zero slope at ±satKnee.
func saturate(x float64) float64 {
	if x >= satKnee {
		return 1
	}
	if x <= -satKnee {
		return -1
	}
	return x - satCubic*x*x*x
}

// saturateAD is the antiderivative of saturate.
func saturateAD(x float64) float64 {
	ax := math.Abs(x)
	if ax >= satKnee {
		return ax - satADOffset
	}
	x2 := x * x
	return 0.5*x2 - satQuartic*x2*x2
}

// Saturator applies saturate with first-order antiderivative antialiasing.
// The zero value is ready to use.
type Saturator struct {
	prev float64
}

// Process saturates one sample. Non-finite input is treated as silence.
func (s *Saturator) Process(x float64) float64 {
	if !isFinite(x) {
		x = 0
	}
	var y float64
	d := x - s.prev
	if d > adaaEpsilon || d < -adaaEpsilon {
		y = (saturateAD(x) - saturateAD(s.prev)) / d
	} else {
		y = saturate(x)
	}
	s.prev = x
	if !isFinite(y) {
		return 0
	}
	return y
}

// LastInput returns the previous pre-saturation input.
func (s *Saturator) LastInput() float64 {
	return s.prev
}

// Reset clears the antialiasing state.
func (s *Saturator) Reset() {
	s.prev = 0
}
