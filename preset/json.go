package preset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/algo-ringstring/ring"
)

// File is the JSON schema for ring presets. Nil fields keep the value of
// the params they are applied to.
type File struct {
	NodeCount      *int      `json:"node_count,omitempty"`
	DelayMode      *bool     `json:"delay_mode,omitempty"`
	OutputGain     *float64  `json:"output_gain,omitempty"`
	ControlDivider *int      `json:"control_divider,omitempty"`
	Seed           *uint64   `json:"seed,omitempty"`
	Defaults       *Defaults `json:"defaults,omitempty"`
}

// Defaults holds the control values used when an input is not connected.
type Defaults struct {
	Tension   *float64 `json:"tension,omitempty"`
	Resonance *float64 `json:"resonance,omitempty"`
	Noise     *float64 `json:"noise,omitempty"`
	Shape     *float64 `json:"shape,omitempty"`
	Impulse   *float64 `json:"impulse,omitempty"`
	Overdrive *float64 `json:"overdrive,omitempty"`
	Pitch     *float64 `json:"pitch,omitempty"`
}

// LoadJSON loads a preset JSON file and applies it on top of default params.
func LoadJSON(path string) (*ring.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p := ring.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *ring.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.NodeCount != nil {
		if !validNodeCount(*f.NodeCount) {
			return fmt.Errorf("node_count must be one of %v", ring.NodeCounts)
		}
		dst.NodeCount = *f.NodeCount
	}
	if f.DelayMode != nil {
		dst.DelayMode = *f.DelayMode
	}
	if f.OutputGain != nil {
		if *f.OutputGain <= 0 {
			return fmt.Errorf("output_gain must be > 0")
		}
		dst.OutputGain = *f.OutputGain
	}
	if f.ControlDivider != nil {
		if *f.ControlDivider < 1 || *f.ControlDivider > 4096 {
			return fmt.Errorf("control_divider must be in [1,4096]")
		}
		dst.ControlDivider = *f.ControlDivider
	}
	if f.Seed != nil {
		dst.Seed = *f.Seed
	}

	d := f.Defaults
	if d == nil {
		return nil
	}
	knobs := []struct {
		name   string
		src    *float64
		dst    *float64
		lo, hi float64
	}{
		{"tension", d.Tension, &dst.Tension, 0, 1},
		{"resonance", d.Resonance, &dst.Resonance, 0, ring.MaxResonance},
		{"noise", d.Noise, &dst.Noise, 0, 1},
		{"shape", d.Shape, &dst.Shape, -1, 1},
		{"impulse", d.Impulse, &dst.Impulse, 0, 1},
		{"overdrive", d.Overdrive, &dst.Overdrive, 0, 1},
		{"pitch", d.Pitch, &dst.Pitch, ring.MinPitch, ring.MaxPitch},
	}
	for _, k := range knobs {
		if k.src == nil {
			continue
		}
		if *k.src < k.lo || *k.src > k.hi {
			return fmt.Errorf("defaults.%s must be in [%g,%g]", k.name, k.lo, k.hi)
		}
		*k.dst = *k.src
	}
	return nil
}

// FromParams returns a fully populated preset file for p.
func FromParams(p *ring.Params) *File {
	return &File{
		NodeCount:      &p.NodeCount,
		DelayMode:      &p.DelayMode,
		OutputGain:     &p.OutputGain,
		ControlDivider: &p.ControlDivider,
		Seed:           &p.Seed,
		Defaults: &Defaults{
			Tension:   &p.Tension,
			Resonance: &p.Resonance,
			Noise:     &p.Noise,
			Shape:     &p.Shape,
			Impulse:   &p.Impulse,
			Overdrive: &p.Overdrive,
			Pitch:     &p.Pitch,
		},
	}
}

// SaveJSON writes p as an indented preset file.
func SaveJSON(path string, p *ring.Params) error {
	if p == nil {
		return fmt.Errorf("nil params")
	}
	b, err := json.MarshalIndent(FromParams(p), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}

func validNodeCount(n int) bool {
	for _, c := range ring.NodeCounts {
		if n == c {
			return true
		}
	}
	return false
}
