package fitcommon

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-ringstring/ring"
)

func TestRenderStrikeStopsOnDecay(t *testing.T) {
	p := ring.NewDefaultParams()
	p.Resonance = 0.9
	st, err := RenderStrike(p, RenderOptions{
		SampleRate:      48000,
		DecayDBFS:       -60,
		DecayHoldBlocks: 4,
		MinDuration:     0.1,
		MaxDuration:     3,
	})
	if err != nil {
		t.Fatalf("RenderStrike: %v", err)
	}
	frames := len(st) / 2
	if frames < 4800 || frames >= 3*48000 {
		t.Fatalf("rendered %d frames, expected auto-stop between 0.1s and 3s", frames)
	}
	for i, v := range st {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite sample at %d", i)
		}
	}
}

func TestRenderStrikeHonoursMaxDuration(t *testing.T) {
	st, err := RenderStrike(ring.NewDefaultParams(), RenderOptions{
		SampleRate:  48000,
		DecayDBFS:   math.Inf(-1),
		MaxDuration: 0.25,
	})
	if err != nil {
		t.Fatalf("RenderStrike: %v", err)
	}
	if len(st)/2 != 12000 {
		t.Fatalf("rendered %d frames, want 12000", len(st)/2)
	}
}

func TestRenderStrikeRejectsBadRate(t *testing.T) {
	if _, err := RenderStrike(ring.NewDefaultParams(), RenderOptions{}); !errors.Is(err, ring.ErrInvalidSampleRate) {
		t.Fatalf("expected ErrInvalidSampleRate, got %v", err)
	}
}
