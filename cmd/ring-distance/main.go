package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-ringstring/analysis"
	"github.com/cwbudde/algo-ringstring/internal/fitcommon"
	"github.com/cwbudde/algo-ringstring/internal/wavio"
	"github.com/cwbudde/algo-ringstring/preset"
	"github.com/cwbudde/algo-ringstring/ring"
)

func main() {
	referencePath := flag.String("reference", "reference/string.wav", "Reference WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render a strike from the ring model")
	presetPath := flag.String("preset", "", "Optional preset JSON for the rendered candidate")
	pitch := flag.Float64("pitch", 0, "Pitch in volts (0 = C4) for the rendered candidate; overrides the preset")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	decayDBFS := flag.Float64("decay-dbfs", -90.0, "Auto-stop threshold in dBFS for the rendered candidate")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required for stop")
	minDuration := flag.Float64("min-duration", 1.0, "Minimum rendered duration in seconds")
	maxDuration := flag.Float64("max-duration", 12.0, "Maximum rendered duration in seconds")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write the rendered candidate WAV")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	ref, err := loadMono(*referencePath, *sampleRate)
	if err != nil {
		die("failed to read reference: %v", err)
	}

	var cand []float64
	if *candidatePath != "" {
		cand, err = loadMono(*candidatePath, *sampleRate)
		if err != nil {
			die("failed to read candidate: %v", err)
		}
	} else {
		p := ring.NewDefaultParams()
		if *presetPath != "" {
			p, err = preset.LoadJSON(*presetPath)
			if err != nil {
				die("failed to load preset: %v", err)
			}
		}
		flag.Visit(func(f *flag.Flag) {
			if f.Name == "pitch" {
				p.Pitch = *pitch
			}
		})
		stereo, err := fitcommon.RenderStrike(p, fitcommon.RenderOptions{
			SampleRate:      *sampleRate,
			DecayDBFS:       *decayDBFS,
			DecayHoldBlocks: *decayHoldBlocks,
			MinDuration:     *minDuration,
			MaxDuration:     *maxDuration,
		})
		if err != nil {
			die("failed to render candidate: %v", err)
		}
		cand = wavio.StereoToMono(stereo)
		if *writeCandidate != "" {
			if err := wavio.WriteStereo(*writeCandidate, stereo, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
	}

	metrics := analysis.Compare(ref, cand, *sampleRate)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metrics); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	printReport(metrics)
}

func loadMono(path string, sampleRate int) ([]float64, error) {
	x, sr, err := wavio.ReadMono(path)
	if err != nil {
		return nil, err
	}
	return wavio.ResampleIfNeeded(x, sr, sampleRate)
}

func printReport(m analysis.Metrics) {
	fmt.Printf("Reference frames: %d\n", m.ReferenceFrames)
	fmt.Printf("Candidate frames: %d\n", m.CandidateFrames)
	fmt.Printf("Aligned frames:   %d\n", m.AlignedFrames)
	if m.SampleRate > 0 {
		fmt.Printf("Lag:              %d samples (%.3f ms)\n", m.LagSamples, 1000.0*float64(m.LagSamples)/float64(m.SampleRate))
	}
	fmt.Println()
	fmt.Printf("Component        Raw          Norm   Weight  Contribution\n")
	fmt.Printf("─────────────────────────────────────────────────────────\n")
	row := func(name, key, raw string, norm, weight float64) {
		marker := ""
		if m.Dominant == key {
			marker = " ◄"
		}
		fmt.Printf("%-16s %-12s %5.1f%%  ×%.2f   → %.4f%s\n", name, raw, norm*100, weight, norm*weight, marker)
	}
	row("Time RMSE", "time", fmt.Sprintf("%.6f", m.TimeRMSE), m.TimeNorm, analysis.WeightTime)
	row("Envelope RMSE", "envelope", fmt.Sprintf("%.1f dB", m.EnvelopeRMSEDB), m.EnvelopeNorm, analysis.WeightEnvelope)
	row("Pitch diff", "pitch", fmt.Sprintf("%.1f ct", m.PitchDiffCents), m.PitchNorm, analysis.WeightPitch)
	row("Decay diff", "decay", fmt.Sprintf("%.1f dB/s", m.DecayDiffDBPerS), m.DecayNorm, analysis.WeightDecay)
	fmt.Printf("─────────────────────────────────────────────────────────\n")
	fmt.Printf("Score:            %.4f  (0 best, 1 worst)\n", m.Score)
	fmt.Printf("Similarity:       %.2f%%\n", m.Similarity*100.0)
	fmt.Printf("Dominant factor:  %s\n", m.Dominant)
	fmt.Printf("\nPeriods: ref=%.2f cand=%.2f samples\n", m.RefPeriod, m.CandPeriod)
	fmt.Printf("Decay slopes: ref=%.1f dB/s  cand=%.1f dB/s\n", m.RefDecayDBPerS, m.CandDecayDBPerS)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
