package ring

import (
	"math"
	"testing"
)

func TestExcitationBurstLength(t *testing.T) {
	tests := []struct {
		name    string
		impulse float64
		delay   float64
		want    int
	}{
		{"MinimumBurst", 0, 1.0 / C4Hz, 24},
		{"TinyImpulse", 0.001, 1.0 / C4Hz, 24},
		{"FullImpulseC4", 1, 1.0 / C4Hz, int(math.Round(4 * 48000 / C4Hz))},
		{"HalfImpulseLow", 0.5, 0.01, 960},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ExcitationShaper
			e.Trigger(48000, tt.impulse, tt.delay)
			n := 0
			for e.State() == ExcitationBursting {
				e.Next(1)
				n++
			}
			if n != tt.want {
				t.Fatalf("burst lasted %d samples, want %d", n, tt.want)
			}
		})
	}
}

func TestExcitationBurstIsHannWindowed(t *testing.T) {
	var e ExcitationShaper
	e.Trigger(48000, 0.5, 0.01)
	const n = 960
	for i := 0; i < n; i++ {
		got := e.Next(1)
		want := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/n)
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("sample %d: %f, want %f", i, got, want)
		}
	}
}

func TestExcitationDecayAndSnap(t *testing.T) {
	var e ExcitationShaper
	e.Trigger(48000, 0, 0.001)
	for e.State() == ExcitationBursting {
		e.Next(0.3)
	}
	if e.State() != ExcitationDecaying || e.Envelope() != 1 {
		t.Fatalf("expected decaying state at full envelope, got %s %f", e.State(), e.Envelope())
	}

	out := e.Next(1)
	if math.Abs(out-simmerLevel*envelopeDecay) > 1e-12 {
		t.Fatalf("first simmer sample %f, want %f", out, simmerLevel*envelopeDecay)
	}

	steps := 1
	for e.Active() {
		e.Next(1)
		steps++
		if steps > 10000 {
			t.Fatal("envelope never reached zero")
		}
	}
	want := int(math.Ceil(math.Log(envelopeFloor) / math.Log(envelopeDecay)))
	if steps != want {
		t.Fatalf("envelope snapped after %d steps, want %d", steps, want)
	}
	if e.State() != ExcitationIdle || e.Envelope() != 0 {
		t.Fatalf("expected idle with zero envelope, got %s %g", e.State(), e.Envelope())
	}
	if e.Next(1) != 0 {
		t.Fatal("idle shaper must be silent")
	}
}

func TestExcitationRetriggerRestartsBurst(t *testing.T) {
	var e ExcitationShaper
	e.Trigger(48000, 0, 0.001)
	for i := 0; i < 200; i++ {
		e.Next(1)
	}
	e.Trigger(48000, 0, 0.001)
	if e.State() != ExcitationBursting || e.Envelope() != 1 {
		t.Fatalf("expected fresh burst, got %s %f", e.State(), e.Envelope())
	}
	e.Reset()
	if e.Active() || e.State() != ExcitationIdle {
		t.Fatal("expected Reset to return to idle")
	}
	if ExcitationBursting.String() != "bursting" {
		t.Fatalf("unexpected state name %q", ExcitationBursting.String())
	}
}
