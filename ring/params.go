package ring

const (
	MaxVoices = 16
	MaxNodes  = 16

	C4Hz = 261.63

	// DelayModeOffset transposes pitch (in volts) when delay mode is on.
	DelayModeOffset = -2.0
	MinPitch        = -5.0
	MaxPitch        = 5.0

	DefaultControlDivider = 32
)

// NodeCounts lists the supported ring sizes.
var NodeCounts = [...]int{8, 12, 16}

// Params holds the persisted configuration and the control values used for
// inputs that are not connected.
type Params struct {
	NodeCount      int
	DelayMode      bool
	OutputGain     float64
	ControlDivider int
	Seed           uint64

	Tension   float64
	Resonance float64
	Noise     float64
	Shape     float64
	Impulse   float64
	Overdrive float64
	Pitch     float64
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		NodeCount:      12,
		DelayMode:      false,
		OutputGain:     1.0,
		ControlDivider: DefaultControlDivider,
		Seed:           1,
		Tension:        0.2,
		Resonance:      0.98,
		Noise:          0.1,
		Shape:          0.0,
		Impulse:        0.5,
		Overdrive:      0.0,
		Pitch:          0.0,
	}
}

// Poly carries one input's values for every polyphonic channel.
// Channels == 0 means the input is not connected; Channels == 1 broadcasts
// Values[0] to all voices.
type Poly struct {
	Channels int
	Values   [MaxVoices]float64
}

// Mono returns a single-channel input holding v.
func Mono(v float64) Poly {
	p := Poly{Channels: 1}
	p.Values[0] = v
	return p
}

// PolyOf returns an input with one channel per value.
func PolyOf(values ...float64) Poly {
	var p Poly
	p.Channels = min(len(values), MaxVoices)
	copy(p.Values[:], values)
	return p
}

// Connected reports whether the input carries any channels.
func (p *Poly) Connected() bool {
	return p.Channels > 0
}

// At returns the value for channel c. Mono inputs broadcast their single
// value; channels beyond a polyphonic input's count read 0.
func (p *Poly) At(c int) float64 {
	switch {
	case p.Channels <= 0:
		return 0
	case p.Channels == 1:
		return p.Values[0]
	case c >= 0 && c < p.Channels:
		return p.Values[c]
	}
	return 0
}

// Resolve returns At(c) for connected inputs and fallback otherwise.
func (p *Poly) Resolve(c int, fallback float64) float64 {
	if !p.Connected() {
		return fallback
	}
	return p.At(c)
}

// Inputs is the control snapshot read by Engine.Tick. Continuous controls
// are resolved once per control tick; Gate and Audio are read every sample.
type Inputs struct {
	Tension   Poly
	Resonance Poly
	Noise     Poly
	Shape     Poly
	Impulse   Poly
	Overdrive Poly
	Pitch     Poly
	Gate      Poly
	Audio     Poly

	ManualStrike bool
}

func (in *Inputs) channelCount() int {
	n := 1
	for _, p := range [...]*Poly{
		&in.Tension, &in.Resonance, &in.Noise, &in.Shape, &in.Impulse,
		&in.Overdrive, &in.Pitch, &in.Gate, &in.Audio,
	} {
		n = max(n, p.Channels)
	}
	return min(n, MaxVoices)
}

// VoiceParams is one voice's resolved control values.
type VoiceParams struct {
	Tension   float64 // coupling gain, already scaled to the ring's stable range
	Resonance float64 // [0, MaxResonance]
	Noise     float64 // [0,1]
	Shape     float64 // [-1,1]
	Impulse   float64 // [0,1]
	Overdrive float64 // [0,1]
	Pitch     float64 // volts, delay-mode transposition applied
}
