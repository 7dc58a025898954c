package score

import (
	"math"
	"strings"
	"testing"

	"github.com/cwbudde/algo-ringstring/ring"
)

func TestLoadSortsEventsAndDefaultsDuration(t *testing.T) {
	tl, err := Load(`
channels(3)
strike(1.5, 2)
set("pitch", 0.5, volts(523.26))
for i = 0, 2 do
  strike(i * 0.25)
end
`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tl.Channels != 3 {
		t.Fatalf("channels = %d, want 3", tl.Channels)
	}
	if len(tl.Events) != 5 {
		t.Fatalf("got %d events, want 5", len(tl.Events))
	}
	for i := 1; i < len(tl.Events); i++ {
		if tl.Events[i].Time < tl.Events[i-1].Time {
			t.Fatalf("events not sorted at %d", i)
		}
	}
	last := tl.Events[len(tl.Events)-1]
	if last.Kind != EventStrike || last.Channel != 1 {
		t.Fatalf("expected channel-2 strike last, got %+v", last)
	}
	if math.Abs(tl.Duration-3.5) > 1e-12 {
		t.Fatalf("duration %f, want 3.5", tl.Duration)
	}
	for _, ev := range tl.Events {
		if ev.Kind == EventSet && math.Abs(ev.Value-1) > 1e-4 {
			t.Fatalf("volts(523.26) = %f, want ~1", ev.Value)
		}
	}
}

func TestLoadRejectsBadScripts(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"UnknownParam", `set("wobble", 0, 1)`, "unknown parameter"},
		{"NegativeTime", `strike(-1)`, "time must be"},
		{"BadChannelCount", `channels(17)`, "channel count"},
		{"ChannelOutOfRange", `strike(0, 3)`, "channel 3 of 1"},
		{"SyntaxError", `strike(`, "score"},
		{"RuntimeError", `error("boom")`, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadHonoursDuration(t *testing.T) {
	tl, err := Load(`duration(1.25) strike(0)`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tl.Frames(48000); got != 60000 {
		t.Fatalf("Frames = %d, want 60000", got)
	}
}

func TestApplySchedulesStrikesAndSets(t *testing.T) {
	tl, err := Load(`
channels(2)
strike(0)
set("shape", 0.001, -0.5, 2)
strike(0.002, 1)
`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	params := ring.NewDefaultParams()
	var in ring.Inputs
	tl.Prepare(&in, params)

	if in.Shape.Channels != 2 || in.Shape.Values[1] != params.Shape {
		t.Fatalf("Prepare did not seed defaults: %+v", in.Shape)
	}

	tl.Apply(0, 1000, &in)
	if in.Gate.At(0) != gateHighValue || in.Gate.At(1) != gateHighValue {
		t.Fatalf("expected both gates raised at frame 0: %+v", in.Gate)
	}

	tl.Apply(1, 1000, &in)
	if in.Gate.At(0) != 0 || in.Gate.At(1) != 0 {
		t.Fatal("gates must drop one frame after a strike")
	}
	if in.Shape.At(1) != -0.5 || in.Shape.At(0) != params.Shape {
		t.Fatalf("set applied to wrong channel: %+v", in.Shape.Values[:2])
	}

	tl.Apply(2, 1000, &in)
	if in.Gate.At(0) != gateHighValue || in.Gate.At(1) != 0 {
		t.Fatalf("expected only channel 1 gate raised: %+v", in.Gate.Values[:2])
	}
	if !tl.Done() {
		t.Fatal("expected timeline to be exhausted")
	}
}

func TestApplySeparatesBackToBackStrikes(t *testing.T) {
	tl, err := Load(`
channels(2)
strike(0, 1)
strike(0.001, 1)
set("tension", 0.001, 0.7)
strike(0.001, 2)
`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var in ring.Inputs
	tl.Prepare(&in, ring.NewDefaultParams())

	want := []struct {
		gate0, gate1 float64
		tension      float64
	}{
		{gateHighValue, 0, 0},
		{0, 0, 0},
		{gateHighValue, gateHighValue, 0.7},
		{0, 0, 0.7},
	}
	for frame, w := range want {
		tl.Apply(int64(frame), 1000, &in)
		if in.Gate.At(0) != w.gate0 || in.Gate.At(1) != w.gate1 {
			t.Fatalf("frame %d: gates %v %v, want %v %v", frame, in.Gate.At(0), in.Gate.At(1), w.gate0, w.gate1)
		}
		if w.tension != 0 && in.Tension.At(0) != w.tension {
			t.Fatalf("frame %d: tension %v, want %v", frame, in.Tension.At(0), w.tension)
		}
	}
}

func TestBackToBackStrikesRetriggerVoice(t *testing.T) {
	tl, err := Load(`strike(0) strike(1/48000) duration(0.01)`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, err := ring.NewEngine(48000, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	var in ring.Inputs
	tl.Prepare(&in, ring.NewDefaultParams())

	var f ring.Frame
	for frame := int64(0); frame < 2; frame++ {
		tl.Apply(frame, 48000, &in)
		e.Tick(&in, &f)
	}
	tl.Apply(2, 48000, &in)
	if in.Gate.At(0) != gateHighValue {
		t.Fatal("second strike should raise the gate again at frame 2")
	}
	e.Tick(&in, &f)
	if got := e.Voice(0).Excitation().Elapsed(); got != 1 {
		t.Fatalf("expected the burst to restart at frame 2, elapsed %d", got)
	}
}

func TestScoreDrivesEngine(t *testing.T) {
	tl, err := Load(`channels(2) strike(0, 1) strike(0.01, 2) duration(0.05)`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, err := ring.NewEngine(48000, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	var in ring.Inputs
	tl.Prepare(&in, ring.NewDefaultParams())

	var f ring.Frame
	var sawSecond bool
	for frame := int64(0); frame < tl.Frames(48000); frame++ {
		tl.Apply(frame, 48000, &in)
		e.Tick(&in, &f)
		if frame == 0 && (!f.Bursting[0] || f.Bursting[1]) {
			t.Fatalf("frame 0: expected only channel 1 bursting, got %v %v", f.Bursting[0], f.Bursting[1])
		}
		if f.Bursting[1] {
			sawSecond = true
		}
	}
	if !sawSecond {
		t.Fatal("second channel was never struck")
	}
}
