package ring

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestNodeStaysFiniteUnderExtremeInput(t *testing.T) {
	n := newTestNode(t, 97.3, MaxResonance)
	n.SetDamping(0.2)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 100000; i++ {
		x := (2*rng.Float64() - 1) * 10
		switch i % 5000 {
		case 17:
			x = math.NaN()
		case 33:
			x = math.Inf(1)
		}
		out := n.ProcessSample(x)
		if !isFinite(out) {
			t.Fatalf("non-finite output at %d: %v", i, out)
		}
		if math.Abs(out) > 2 {
			t.Fatalf("output escaped saturation bound at %d: %f", i, out)
		}
	}
}

func TestNodeDelayAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		delay float64
		peak  int
	}{
		{"Integer", 480, 480},
		{"Fractional", 480.3, 481},
		{"Short", 12.75, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNode(t, tt.delay, 0)
			out := renderImpulse(n, 1e-3, int(tt.delay)+64)

			if got := argmaxAbs(out); got != tt.peak {
				t.Fatalf("peak at %d, want %d", got, tt.peak)
			}
			// The antialiased write spreads the impulse over two samples.
			want := tt.delay + 0.5
			if got := centroid(out); math.Abs(got-want) > 1e-6 {
				t.Fatalf("centroid %.6f, want %.6f", got, want)
			}
		})
	}
}

func TestNodePassiveDecay(t *testing.T) {
	n := newTestNode(t, 100, 0.9)
	out := renderImpulse(n, 0.8, 48000)

	early := windowRMS(out[100:2100])
	late := windowRMS(out[46000:])
	if early == 0 {
		t.Fatal("expected the impulse to reach the output")
	}
	if late > early*1e-3 {
		t.Fatalf("expected passive decay: early=%g late=%g", early, late)
	}
}

func TestNodeWithoutFeedbackFallsSilent(t *testing.T) {
	delay := 100.3
	n := newTestNode(t, delay, 0)
	out := renderImpulse(n, 0.8, 2000)

	// The two written samples are visible through the four interpolation
	// taps for at most five reads.
	first := int(delay) - 2
	last := int(delay) + 3
	var peak float64
	for i, v := range out {
		if i < first || i > last {
			if v != 0 {
				t.Fatalf("sample %d = %g, want exact silence outside [%d,%d]", i, v, first, last)
			}
			continue
		}
		peak = max(peak, math.Abs(v))
	}
	if peak == 0 {
		t.Fatal("expected the impulse to pass through once")
	}
}

func TestNodeReadWrapsAtBufferEnd(t *testing.T) {
	tests := []struct {
		name  string
		setup func(n *ResonatorNode)
	}{
		// 1505/48000 converts back to 1505.0000000000002 samples.
		{"SecondsRoundTrip", func(n *ResonatorNode) { n.SetDelay(1505.0 / 48000) }},
		{"OneULPAboveInteger", func(n *ResonatorNode) { n.delaySamples = 5 + 1e-13 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNode(t, 100, 0.5)
			tt.setup(n)
			rng := rand.New(rand.NewPCG(3, 4))
			for i := 0; i < 2*n.BufferLen(); i++ {
				if out := n.ProcessSample(2*rng.Float64() - 1); !isFinite(out) {
					t.Fatalf("non-finite output at %d", i)
				}
			}
		})
	}
}

func TestNodeDampingDarkensLoop(t *testing.T) {
	bright := newTestNode(t, 50, 0.99)
	dark := newTestNode(t, 50, 0.99)
	dark.SetDamping(0.6)

	b := renderImpulse(bright, 0.5, 24000)
	d := renderImpulse(dark, 0.5, 24000)
	if windowRMS(d[12000:]) >= windowRMS(b[12000:]) {
		t.Fatal("expected damping to remove energy from the loop")
	}
}

func TestZeroValueNodeIsSilent(t *testing.T) {
	var n ResonatorNode
	n.SetDelay(0.01)
	n.SetResonance(0.5)
	for i := 0; i < 16; i++ {
		if out := n.ProcessSample(1); out != 0 {
			t.Fatalf("expected silence from uninitialized node, got %f", out)
		}
	}
	if n.MaxDelay() != 0 {
		t.Fatalf("expected zero MaxDelay, got %f", n.MaxDelay())
	}
}

func TestNodeInitErrors(t *testing.T) {
	var n ResonatorNode
	if err := n.Init(0, 0.1); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("expected ErrInvalidSampleRate, got %v", err)
	}
	if err := n.Init(48000, 1000); !errors.Is(err, ErrBufferTooLarge) {
		t.Fatalf("expected ErrBufferTooLarge, got %v", err)
	}
	if err := n.Init(48000, 0); err != nil {
		t.Fatalf("unexpected error for empty delay: %v", err)
	}
	if n.BufferLen() != nodeMinBuffer {
		t.Fatalf("expected minimum buffer %d, got %d", nodeMinBuffer, n.BufferLen())
	}
}

func TestNodeSetDelayClamps(t *testing.T) {
	n := newTestNode(t, 100, 0)

	n.SetDelay(10)
	if n.Delay() != n.MaxDelay() {
		t.Fatalf("expected clamp to MaxDelay %f, got %f", n.MaxDelay(), n.Delay())
	}
	n.SetDelay(0)
	if n.Delay() != n.MinDelay() {
		t.Fatalf("expected clamp to MinDelay %f, got %f", n.MinDelay(), n.Delay())
	}
	n.SetDelay(math.NaN())
	if n.Delay() != n.MinDelay() {
		t.Fatalf("expected NaN delay to fall back to MinDelay, got %f", n.Delay())
	}
}

func TestNodeInitReusesBuffer(t *testing.T) {
	var n ResonatorNode
	if err := n.Init(48000, 0.1); err != nil {
		t.Fatal(err)
	}
	first := &n.buf[0]
	if err := n.Init(44100, 0.1); err != nil {
		t.Fatal(err)
	}
	if &n.buf[0] != first {
		t.Fatal("expected smaller reinit to reuse the existing buffer")
	}
}

func TestLagrangeReproducesCubic(t *testing.T) {
	f := func(x float64) float64 { return 0.3*x*x*x - x*x + 2*x - 1 }
	for _, tt := range []float64{0, 0.25, 0.5, 0.9} {
		got := lagrange4(tt, f(-1), f(0), f(1), f(2))
		if math.Abs(got-f(tt)) > 1e-12 {
			t.Fatalf("lagrange4(%f) = %f, want %f", tt, got, f(tt))
		}
	}
}
