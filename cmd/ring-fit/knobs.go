package main

import (
	"math"

	"github.com/cwbudde/algo-ringstring/ring"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

func knobDefs() []knobDef {
	return []knobDef{
		{Name: "tension", Min: 0, Max: 1},
		{Name: "resonance", Min: 0.9, Max: ring.MaxResonance},
		{Name: "noise", Min: 0, Max: 1},
		{Name: "shape", Min: -1, Max: 1},
		{Name: "impulse", Min: 0, Max: 1},
		{Name: "overdrive", Min: 0, Max: 1},
		{Name: "node_index", Min: 0, Max: float64(len(ring.NodeCounts) - 1), IsInt: true},
	}
}

func initCandidate(base *ring.Params, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i, d := range defs {
		switch d.Name {
		case "tension":
			vals[i] = base.Tension
		case "resonance":
			vals[i] = base.Resonance
		case "noise":
			vals[i] = base.Noise
		case "shape":
			vals[i] = base.Shape
		case "impulse":
			vals[i] = base.Impulse
		case "overdrive":
			vals[i] = base.Overdrive
		case "node_index":
			for k, n := range ring.NodeCounts {
				if n == base.NodeCount {
					vals[i] = float64(k)
				}
			}
		}
		vals[i] = clamp(vals[i], d.Min, d.Max)
	}
	return candidate{Vals: vals}
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func applyCandidate(base *ring.Params, defs []knobDef, c candidate) *ring.Params {
	p := *base
	for i, d := range defs {
		v := c.Vals[i]
		switch d.Name {
		case "tension":
			p.Tension = v
		case "resonance":
			p.Resonance = v
		case "noise":
			p.Noise = v
		case "shape":
			p.Shape = v
		case "impulse":
			p.Impulse = v
		case "overdrive":
			p.Overdrive = v
		case "node_index":
			p.NodeCount = ring.NodeCounts[int(clamp(v, 0, float64(len(ring.NodeCounts)-1)))]
		}
	}
	return &p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
