package ring

import (
	"fmt"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Frame is one sample of engine output for every active channel.
type Frame struct {
	Channels int
	L        [MaxVoices]float64
	R        [MaxVoices]float64
	Bursting [MaxVoices]bool
}

// Engine runs up to MaxVoices identical voices, one per polyphonic channel.
//
// Continuous controls are resolved every controlDivider samples. The
// counter restarts at 0 on Reinit, SetNodeCount and SetDelayMode, so the
// first Tick after any reconfiguration resolves controls immediately.
type Engine struct {
	sampleRate     int
	params         Params
	voices         [MaxVoices]*Voice
	resolved       [MaxVoices]VoiceParams
	channels       int
	nodeCount      int
	delayMode      bool
	controlDivider int
	controlCounter int
	maxTension     [MaxNodes + 1]float64
	manualDown     bool
	idle           Inputs
	frame          Frame
}

// NewEngine allocates all voices for sampleRate. A failure here means the
// engine cannot run.
func NewEngine(sampleRate int, params *Params) (*Engine, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	e := &Engine{
		params:         *params,
		channels:       1,
		nodeCount:      snapNodeCount(params.NodeCount),
		delayMode:      params.DelayMode,
		controlDivider: params.ControlDivider,
	}
	if e.controlDivider < 1 {
		e.controlDivider = DefaultControlDivider
	}
	if e.params.OutputGain <= 0 {
		e.params.OutputGain = 1
	}
	for _, n := range NodeCounts {
		e.maxTension[n] = NewTopology(n).MaxStableTension()
	}
	for c := range e.voices {
		v, err := NewVoice(sampleRate, maxDelaySeconds(), e.nodeCount, params.Seed+uint64(c)*7919)
		if err != nil {
			return nil, fmt.Errorf("voice %d: %w", c, err)
		}
		e.voices[c] = v
	}
	e.sampleRate = sampleRate
	return e, nil
}

// maxDelaySeconds is the loop delay of the lowest supported pitch.
func maxDelaySeconds() float64 {
	return PitchToDelay(MinPitch)
}

// Reinit reallocates every voice for a new sample rate. It is not
// real-time safe.
func (e *Engine) Reinit(sampleRate int) error {
	for c, v := range e.voices {
		if err := v.Init(sampleRate, maxDelaySeconds()); err != nil {
			return fmt.Errorf("voice %d: %w", c, err)
		}
		v.SetNodeCount(e.nodeCount)
	}
	e.sampleRate = sampleRate
	e.controlCounter = 0
	return nil
}

// SampleRate returns the rate the voices are allocated for.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// SetNodeCount changes the ring size of every voice (snapped to 8, 12 or
// 16). It does not allocate but clears all resonators.
func (e *Engine) SetNodeCount(n int) {
	e.nodeCount = snapNodeCount(n)
	for _, v := range e.voices {
		v.SetNodeCount(e.nodeCount)
	}
	e.controlCounter = 0
}

// NodeCount returns the ring size.
func (e *Engine) NodeCount() int {
	return e.nodeCount
}

// SetDelayMode toggles the pitch transposition used for long delays.
func (e *Engine) SetDelayMode(on bool) {
	e.delayMode = on
	e.controlCounter = 0
}

// DelayMode reports whether delay mode is on.
func (e *Engine) DelayMode() bool {
	return e.delayMode
}

// Channels returns the channel count resolved at the last control tick.
func (e *Engine) Channels() int {
	return e.channels
}

// Voice returns the voice for channel c.
func (e *Engine) Voice(c int) *Voice {
	return e.voices[c]
}

// Resolved returns the control values channel c currently runs with.
func (e *Engine) Resolved(c int) VoiceParams {
	return e.resolved[c]
}

// Bursting reports the excitation indicator for channel c.
func (e *Engine) Bursting(c int) bool {
	return e.voices[c].Bursting()
}

func (e *Engine) pitchVolts(v float64) float64 {
	if e.delayMode {
		v += DelayModeOffset
	}
	return clampf(v, MinPitch, MaxPitch)
}

func (e *Engine) updateControls(in *Inputs) {
	e.channels = in.channelCount()
	maxTension := e.maxTension[e.nodeCount]
	d := &e.params
	for c := 0; c < e.channels; c++ {
		p := &e.resolved[c]
		p.Tension = dspcore.Clamp(in.Tension.Resolve(c, d.Tension), 0, 1) * maxTension
		p.Resonance = dspcore.Clamp(in.Resonance.Resolve(c, d.Resonance), 0, MaxResonance)
		p.Noise = dspcore.Clamp(in.Noise.Resolve(c, d.Noise), 0, 1)
		p.Shape = dspcore.Clamp(in.Shape.Resolve(c, d.Shape), -1, 1)
		p.Impulse = dspcore.Clamp(in.Impulse.Resolve(c, d.Impulse), 0, 1)
		p.Overdrive = dspcore.Clamp(in.Overdrive.Resolve(c, d.Overdrive), 0, 1)
		p.Pitch = e.pitchVolts(in.Pitch.Resolve(c, d.Pitch))
		e.voices[c].Retune(p)
	}
}

// Tick renders one sample for every active channel into out. A nil in
// behaves like an unpatched module.
func (e *Engine) Tick(in *Inputs, out *Frame) {
	if in == nil {
		in = &e.idle
	}
	if e.controlCounter == 0 {
		e.updateControls(in)
	}
	e.controlCounter++
	if e.controlCounter >= e.controlDivider {
		e.controlCounter = 0
	}

	manual := in.ManualStrike && !e.manualDown
	e.manualDown = in.ManualStrike

	gain := e.params.OutputGain
	out.Channels = e.channels
	for c := 0; c < MaxVoices; c++ {
		if c >= e.channels {
			out.L[c], out.R[c], out.Bursting[c] = 0, 0, false
			continue
		}
		v := e.voices[c]
		l, r := v.Tick(&e.resolved[c], in.Gate.At(c), in.Audio.At(c), manual)
		out.L[c] = l * gain
		out.R[c] = r * gain
		out.Bursting[c] = v.Bursting()
	}
}

// Process renders numFrames samples of the channel mix into dst as
// interleaved stereo and returns the frames written (bounded by len(dst)/2).
func (e *Engine) Process(in *Inputs, dst []float32, numFrames int) int {
	numFrames = min(numFrames, len(dst)/2)
	for i := 0; i < numFrames; i++ {
		e.Tick(in, &e.frame)
		var l, r float64
		for c := 0; c < e.frame.Channels; c++ {
			l += e.frame.L[c]
			r += e.frame.R[c]
		}
		dst[i*2] = float32(l)
		dst[i*2+1] = float32(r)
	}
	return max(numFrames, 0)
}
