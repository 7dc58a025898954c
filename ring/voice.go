package ring

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"
)

const (
	maxDetune      = 0.0015
	sizzleLevel    = 0.05
	audioInputGain = 0.25
	dcCutoffHz     = 20.0
	outputHeadroom = 4.0

	gateHigh = 1.0
	gateLow  = 0.1
)

// gateDetector finds rising edges with hysteresis.
type gateDetector struct {
	high bool
}

func (g *gateDetector) process(v float64) bool {
	if g.high {
		if v <= gateLow {
			g.high = false
		}
		return false
	}
	if v >= gateHigh {
		g.high = true
		return true
	}
	return false
}

// Voice is one ring of resonator nodes with its excitation and stereo
// output stage.
type Voice struct {
	sampleRate float64
	nodes      [MaxNodes]ResonatorNode
	nodeCount  int
	topo       Topology

	shaper  ExcitationShaper
	gate    gateDetector
	dcBlock *biquad.Section
	rng     *rand.Rand

	detune  [MaxNodes]float64
	delays  [MaxNodes]float64
	prevOut [MaxNodes]float64
	weights [MaxNodes]float64
	panL    [MaxNodes]float64
	panR    [MaxNodes]float64
	mixNorm float64

	drive        float64
	satL, satR   Saturator
	lastL, lastR float64
}

// NewVoice allocates a voice whose nodes can run delays up to
// maxDelaySeconds at sampleRate.
func NewVoice(sampleRate int, maxDelaySeconds float64, nodeCount int, seed uint64) (*Voice, error) {
	v := &Voice{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		drive: 1,
	}
	if err := v.Init(sampleRate, maxDelaySeconds); err != nil {
		return nil, err
	}
	v.SetNodeCount(nodeCount)
	return v, nil
}

// Init (re)allocates every node for sampleRate. It is not real-time safe.
func (v *Voice) Init(sampleRate int, maxDelaySeconds float64) error {
	for i := range v.nodes {
		if err := v.nodes[i].Init(sampleRate, maxDelaySeconds); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
	}
	sections := pass.ButterworthHP(dcCutoffHz, 1, float64(sampleRate))
	if len(sections) == 0 {
		return fmt.Errorf("dc blocker design failed at %d Hz", sampleRate)
	}
	v.dcBlock = biquad.NewSection(sections[0])
	v.sampleRate = float64(sampleRate)
	v.shaper.Reset()
	v.satL.Reset()
	v.satR.Reset()
	v.lastL, v.lastR = 0, 0
	clear(v.prevOut[:])
	return nil
}

// SetNodeCount switches the ring size (snapped to 8, 12 or 16) and clears
// the resonators. Call it between renders only.
func (v *Voice) SetNodeCount(n int) {
	n = snapNodeCount(n)
	v.nodeCount = n
	v.topo = NewTopology(n)
	v.mixNorm = 1 / math.Sqrt(float64(n))

	center := float64(n-1) / 2
	for i := 0; i < n; i++ {
		v.weights[i] = 0.6 + 0.4*math.Abs(float64(i)-center)/center
		pan := float64(i) / float64(n-1)
		v.panL[i] = math.Cos(0.5 * math.Pi * pan)
		v.panR[i] = math.Sin(0.5 * math.Pi * pan)
	}
	for i := range v.nodes {
		v.nodes[i].Reset()
	}
	clear(v.prevOut[:])
}

// NodeCount returns the active ring size.
func (v *Voice) NodeCount() int {
	return v.nodeCount
}

// Node returns node i of the ring.
func (v *Voice) Node(i int) *ResonatorNode {
	return &v.nodes[i]
}

// Topology returns the ring the voice couples over.
func (v *Voice) Topology() Topology {
	return v.topo
}

// Bursting reports whether the excitation envelope is non-zero.
func (v *Voice) Bursting() bool {
	return v.shaper.Active()
}

// Excitation exposes the voice's excitation shaper.
func (v *Voice) Excitation() *ExcitationShaper {
	return &v.shaper
}

// Last returns the previous stereo output.
func (v *Voice) Last() (float64, float64) {
	return v.lastL, v.lastR
}

// Retune re-derives every node's delay, damping and resonance from p.
func (v *Voice) Retune(p *VoiceParams) {
	n := v.nodeCount
	lo := v.nodes[0].MinDelay()
	hi := v.nodes[0].MaxDelay()
	damping := shapeNodeDelays(v.delays[:n], PitchToDelay(p.Pitch), p.Shape, lo, hi, v.rng)
	for i := 0; i < n; i++ {
		node := &v.nodes[i]
		node.SetDelay(v.delays[i] * (1 + v.detune[i]))
		node.SetDamping(damping)
		node.SetResonance(p.Resonance)
	}
	v.drive = outputDrive(p.Overdrive)
}

// Strike restarts the excitation, re-rolls the per-node detune and retunes.
func (v *Voice) Strike(p *VoiceParams) {
	v.shaper.Trigger(v.sampleRate, p.Impulse, PitchToDelay(p.Pitch))
	for i := 0; i < v.nodeCount; i++ {
		v.detune[i] = (2*v.rng.Float64() - 1) * maxDetune
	}
	v.Retune(p)
}

func (v *Voice) noise() float64 {
	return 2*v.rng.Float64() - 1
}

// Tick renders one stereo sample. gate is checked for a rising edge, manual
// forces a strike, audio is an external signal fed into every node.
func (v *Voice) Tick(p *VoiceParams, gate float64, audio float64, manual bool) (float64, float64) {
	if v.gate.process(gate) || manual {
		v.Strike(p)
	}

	exc := v.shaper.Next(v.noise())
	sizzle := p.Noise * v.shaper.Envelope() * sizzleLevel
	ext := v.dcBlock.ProcessSample(audio) * audioInputGain

	n := v.nodeCount
	for i := 0; i < n; i++ {
		v.prevOut[i] = v.nodes[i].lastOut
	}
	prev := v.prevOut[:n]

	var l, r float64
	for i := 0; i < n; i++ {
		x := exc*v.weights[i] + p.Tension*v.topo.Laplacian(i, prev) + ext
		if sizzle != 0 {
			x += sizzle * v.noise()
		}
		out := v.nodes[i].ProcessSample(x)
		l += out * v.panL[i]
		r += out * v.panR[i]
	}

	g := v.drive * v.mixNorm
	l = clampf(v.satL.Process(clampf(l*g, -outputHeadroom, outputHeadroom)), -1, 1)
	r = clampf(v.satR.Process(clampf(r*g, -outputHeadroom, outputHeadroom)), -1, 1)
	v.lastL, v.lastR = l, r
	return l, r
}
