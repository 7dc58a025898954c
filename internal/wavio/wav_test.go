package wavio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteStereoReadMonoRoundTrip(t *testing.T) {
	const sr = 44100
	st := make([]float32, 2*1000)
	for i := 0; i < 1000; i++ {
		st[2*i] = 0.5
		st[2*i+1] = -0.25
	}
	path := filepath.Join(t.TempDir(), "sub", "out.wav")
	if err := WriteStereo(path, st, sr); err != nil {
		t.Fatalf("WriteStereo: %v", err)
	}

	mono, rate, err := ReadMono(path)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if rate != sr {
		t.Fatalf("sample rate %d, want %d", rate, sr)
	}
	if len(mono) != 1000 {
		t.Fatalf("got %d frames, want 1000", len(mono))
	}
	for i, v := range mono {
		if math.Abs(v-0.125) > 1e-3 {
			t.Fatalf("frame %d: %f, want 0.125", i, v)
		}
	}
}

func TestReadMonoKeepsFullScaleLevel(t *testing.T) {
	const sr = 48000
	st := make([]float32, 2*sr/10)
	for i := 0; i < len(st)/2; i++ {
		v := float32(0.9 * math.Sin(2*math.Pi*440*float64(i)/sr))
		st[2*i], st[2*i+1] = v, v
	}
	path := filepath.Join(t.TempDir(), "sine.wav")
	if err := WriteStereo(path, st, sr); err != nil {
		t.Fatalf("WriteStereo: %v", err)
	}
	mono, _, err := ReadMono(path)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	var peak float64
	for _, v := range mono {
		peak = max(peak, math.Abs(v))
	}
	if math.Abs(peak-0.9) > 1e-3 {
		t.Fatalf("peak %f after round trip, want 0.9", peak)
	}
}

func TestReadMonoRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.wav")
	if err := os.WriteFile(path, []byte("not a riff file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadMono(path); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
	if _, _, err := ReadMono(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResampleIfNeeded(t *testing.T) {
	in := make([]float64, 4410)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 44100)
	}
	same, err := ResampleIfNeeded(in, 44100, 44100)
	if err != nil || &same[0] != &in[0] {
		t.Fatal("expected identity for equal rates")
	}
	out, err := ResampleIfNeeded(in, 44100, 48000)
	if err != nil {
		t.Fatalf("ResampleIfNeeded: %v", err)
	}
	if math.Abs(float64(len(out))-4800) > 64 {
		t.Fatalf("resampled length %d, want ~4800", len(out))
	}
}

func TestStereoHelpers(t *testing.T) {
	m := StereoToMono([]float32{1, 0, 0.5, 0.5, 7})
	if len(m) != 2 || m[0] != 0.5 || m[1] != 0.5 {
		t.Fatalf("StereoToMono = %v", m)
	}
	if RMS(nil) != 0 || math.Abs(RMS([]float32{1, -1})-1) > 1e-12 {
		t.Fatal("RMS mismatch")
	}
	if DBFS(0) != -240 || math.Abs(DBFS(0.1)+20) > 1e-9 {
		t.Fatal("DBFS mismatch")
	}
}
