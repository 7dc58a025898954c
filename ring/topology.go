package ring

import (
	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"
)

// Topology is a closed ring of n nodes. Each node couples to its two
// immediate neighbours.
type Topology struct {
	n int
}

// NewTopology returns a ring of n nodes (at least 1).
func NewTopology(n int) Topology {
	if n < 1 {
		n = 1
	}
	return Topology{n: n}
}

// Size returns the node count.
func (t Topology) Size() int {
	return t.n
}

// Left returns the ring index preceding i.
func (t Topology) Left(i int) int {
	return (i - 1 + t.n) % t.n
}

// Right returns the ring index following i.
func (t Topology) Right(i int) int {
	return (i + 1) % t.n
}

// Laplacian returns the discrete Laplacian at node i over prev, which must
// hold the previous sample's node outputs. Same-sample values must never be
// passed here: the ring would become an implicit system.
func (t Topology) Laplacian(i int, prev []float64) float64 {
	return prev[t.Left(i)] + prev[t.Right(i)] - 2*prev[i]
}

// Eigenvalues returns the spectrum of the ring Laplacian (unit spacing).
// It allocates.
func (t Topology) Eigenvalues() []float64 {
	return pdefd.Eigenvalues(t.n, 1.0, pdepoisson.Periodic)
}

// MaxStableTension returns the coupling gain at which the Laplacian's
// largest mode reaches unit gain.
func (t Topology) MaxStableTension() float64 {
	var peak float64
	for _, ev := range t.Eigenvalues() {
		if ev < 0 {
			ev = -ev
		}
		if ev > peak {
			peak = ev
		}
	}
	if peak <= 0 {
		return 0
	}
	return 1.0 / peak
}
