// Package score builds strike and parameter timelines from Lua scripts.
//
// A script calls the following globals:
//
//	channels(n)                      -- polyphonic channel count, 1..16
//	duration(seconds)                -- render length
//	strike(time_s [, channel])       -- gate edge; all channels when omitted
//	set(name, time_s, value [, ch])  -- knob change; all channels when omitted
//	volts(hz)                        -- V/oct pitch of a frequency, 0 = C4
//
// Channels are numbered from 1 as usual in Lua.
package score

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/cwbudde/algo-ringstring/ring"
)

// EventKind distinguishes strikes from knob changes.
type EventKind int

const (
	EventStrike EventKind = iota
	EventSet
)

// Knob names accepted by set().
var knobNames = [...]string{"tension", "resonance", "noise", "shape", "impulse", "overdrive", "pitch"}

// Event is one scheduled action. Channel -1 addresses every channel.
type Event struct {
	Time    float64
	Kind    EventKind
	Knob    string
	Channel int
	Value   float64
}

// Timeline is a time-sorted list of events with a play cursor.
type Timeline struct {
	Events   []Event
	Channels int
	Duration float64

	next       int
	gateRaised bool
}

const (
	scriptTimeout  = 5 * time.Second
	gateHighValue  = 10.0
	defaultTailSec = 2.0
)

// Load runs src and returns the timeline it describes.
func Load(src string) (*Timeline, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()
	L.SetContext(ctx)

	tl := &Timeline{Channels: 1}
	b := &builder{tl: tl}
	L.SetGlobal("channels", L.NewFunction(b.channels))
	L.SetGlobal("duration", L.NewFunction(b.duration))
	L.SetGlobal("strike", L.NewFunction(b.strike))
	L.SetGlobal("set", L.NewFunction(b.set))
	L.SetGlobal("volts", L.NewFunction(volts))

	if err := L.DoString(src); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	sort.SliceStable(tl.Events, func(i, j int) bool {
		return tl.Events[i].Time < tl.Events[j].Time
	})
	var last float64
	for _, ev := range tl.Events {
		if ev.Channel >= tl.Channels {
			return nil, fmt.Errorf("score: event at %.3fs addresses channel %d of %d", ev.Time, ev.Channel+1, tl.Channels)
		}
		last = ev.Time
	}
	if tl.Duration <= 0 {
		tl.Duration = last + defaultTailSec
	}
	return tl, nil
}

type builder struct {
	tl *Timeline
}

func (b *builder) channels(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 1 || n > ring.MaxVoices {
		L.ArgError(1, fmt.Sprintf("channel count must be in [1,%d]", ring.MaxVoices))
	}
	b.tl.Channels = n
	return 0
}

func (b *builder) duration(L *lua.LState) int {
	d := float64(L.CheckNumber(1))
	if !(d > 0) || math.IsInf(d, 0) {
		L.ArgError(1, "duration must be > 0")
	}
	b.tl.Duration = d
	return 0
}

func (b *builder) strike(L *lua.LState) int {
	t := checkTime(L, 1)
	ch := optChannel(L, 2)
	b.tl.Events = append(b.tl.Events, Event{Time: t, Kind: EventStrike, Channel: ch})
	return 0
}

func (b *builder) set(L *lua.LState) int {
	name := L.CheckString(1)
	if !validKnob(name) {
		L.ArgError(1, fmt.Sprintf("unknown parameter %q", name))
	}
	t := checkTime(L, 2)
	v := float64(L.CheckNumber(3))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		L.ArgError(3, "value must be finite")
	}
	ch := optChannel(L, 4)
	b.tl.Events = append(b.tl.Events, Event{Time: t, Kind: EventSet, Knob: name, Channel: ch, Value: v})
	return 0
}

func volts(L *lua.LState) int {
	hz := float64(L.CheckNumber(1))
	if !(hz > 0) {
		L.ArgError(1, "frequency must be > 0")
	}
	L.Push(lua.LNumber(math.Log2(hz / ring.C4Hz)))
	return 1
}

func checkTime(L *lua.LState, n int) float64 {
	t := float64(L.CheckNumber(n))
	if !(t >= 0) || math.IsInf(t, 0) {
		L.ArgError(n, "time must be >= 0")
	}
	return t
}

func optChannel(L *lua.LState, n int) int {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return -1
	}
	ch := L.CheckInt(n)
	if ch < 1 || ch > ring.MaxVoices {
		L.ArgError(n, fmt.Sprintf("channel must be in [1,%d]", ring.MaxVoices))
	}
	return ch - 1
}

func validKnob(name string) bool {
	for _, k := range knobNames {
		if k == name {
			return true
		}
	}
	return false
}

// Prepare connects every knob input at the timeline's channel count and
// seeds it with the defaults in p, then rewinds the cursor.
func (tl *Timeline) Prepare(in *ring.Inputs, p *ring.Params) {
	defaults := [...]float64{p.Tension, p.Resonance, p.Noise, p.Shape, p.Impulse, p.Overdrive, p.Pitch}
	for i, name := range knobNames {
		poly := knob(in, name)
		poly.Channels = tl.Channels
		for c := range poly.Values {
			poly.Values[c] = defaults[i]
		}
	}
	in.Gate = ring.Poly{Channels: tl.Channels}
	tl.next = 0
	tl.gateRaised = false
}

// Apply updates in with every event due at or before frame. Strikes raise
// the channel gate for one frame. A strike on a channel whose gate is
// dropping in this frame waits one frame, together with every later event,
// so each strike produces its own rising edge. Frames must be passed in
// increasing order.
func (tl *Timeline) Apply(frame int64, sampleRate int, in *ring.Inputs) {
	if in.Gate.Channels < tl.Channels {
		in.Gate.Channels = tl.Channels
	}
	var fell [ring.MaxVoices]bool
	if tl.gateRaised {
		for c := range fell {
			fell[c] = in.Gate.Values[c] != 0
		}
		clear(in.Gate.Values[:])
		tl.gateRaised = false
	}
	for tl.next < len(tl.Events) {
		ev := &tl.Events[tl.next]
		if eventFrame(ev.Time, sampleRate) > frame {
			break
		}
		if ev.Kind == EventStrike && tl.anyChannel(ev.Channel, &fell) {
			break
		}
		tl.next++
		switch ev.Kind {
		case EventStrike:
			tl.forChannels(ev.Channel, func(c int) { in.Gate.Values[c] = gateHighValue })
			tl.gateRaised = true
		case EventSet:
			poly := knob(in, ev.Knob)
			if poly.Channels < tl.Channels {
				poly.Channels = tl.Channels
			}
			tl.forChannels(ev.Channel, func(c int) { poly.Values[c] = ev.Value })
		}
	}
}

func (tl *Timeline) anyChannel(ch int, set *[ring.MaxVoices]bool) bool {
	if ch >= 0 {
		return set[ch]
	}
	for c := 0; c < tl.Channels; c++ {
		if set[c] {
			return true
		}
	}
	return false
}

// Done reports whether every event has been applied.
func (tl *Timeline) Done() bool {
	return tl.next >= len(tl.Events)
}

// Frames returns the render length at sampleRate.
func (tl *Timeline) Frames(sampleRate int) int64 {
	return eventFrame(tl.Duration, sampleRate)
}

func (tl *Timeline) forChannels(ch int, fn func(c int)) {
	if ch >= 0 {
		fn(ch)
		return
	}
	for c := 0; c < tl.Channels; c++ {
		fn(c)
	}
}

func eventFrame(t float64, sampleRate int) int64 {
	return int64(math.Round(t * float64(sampleRate)))
}

func knob(in *ring.Inputs, name string) *ring.Poly {
	switch name {
	case "tension":
		return &in.Tension
	case "resonance":
		return &in.Resonance
	case "noise":
		return &in.Noise
	case "shape":
		return &in.Shape
	case "impulse":
		return &in.Impulse
	case "overdrive":
		return &in.Overdrive
	case "pitch":
		return &in.Pitch
	}
	return nil
}
