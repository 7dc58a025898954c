package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-ringstring/internal/wavio"
	"github.com/cwbudde/algo-ringstring/preset"
	"github.com/cwbudde/algo-ringstring/ring"
	"github.com/cwbudde/algo-ringstring/score"
)

const blockSize = 128

func main() {
	pitch := flag.Float64("pitch", 0, "Pitch in V/oct (0 V = C4)")
	duration := flag.Float64("duration", 3.0, "Duration in seconds (ignored with -score unless the score sets none)")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	scorePath := flag.String("score", "", "Lua score file path (optional)")
	nodes := flag.Int("nodes", 0, "Ring size override: 8, 12 or 16")
	delayMode := flag.Bool("delay-mode", false, "Transpose down two octaves for long delays")
	channels := flag.Int("channels", 1, "Voices to strike without a score, stacked in fifths above -pitch")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(-1), "Stop once a block falls below this dBFS (e.g. -90). Disabled by default")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	params := ring.NewDefaultParams()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			die("Error loading preset %q: %v", *presetPath, err)
		}
		params = p
	}
	if *nodes != 0 {
		params.NodeCount = *nodes
	}
	if *delayMode {
		params.DelayMode = true
	}

	e, err := ring.NewEngine(*sampleRate, params)
	if err != nil {
		die("Error creating engine: %v", err)
	}

	var in ring.Inputs
	var tl *score.Timeline
	totalFrames := int64(float64(*sampleRate) * (*duration))
	if *scorePath != "" {
		src, err := os.ReadFile(*scorePath)
		if err != nil {
			die("Error reading score: %v", err)
		}
		tl, err = score.Load(string(src))
		if err != nil {
			die("Error loading score %q: %v", *scorePath, err)
		}
		tl.Prepare(&in, params)
		totalFrames = tl.Frames(*sampleRate)
		fmt.Printf("Rendering score %s (%d events, %d channels, %.2fs) at %d Hz, %d nodes...\n",
			*scorePath, len(tl.Events), tl.Channels, tl.Duration, *sampleRate, e.NodeCount())
	} else {
		n := max(1, min(*channels, ring.MaxVoices))
		values := make([]float64, n)
		gates := make([]float64, n)
		for c := range values {
			values[c] = *pitch + float64(c)*7.0/12.0
			gates[c] = 10
		}
		in.Pitch = ring.PolyOf(values...)
		in.Gate = ring.PolyOf(gates...)
		fmt.Printf("Rendering %d voice(s) at %.3f V for %.2f seconds at %d Hz, %d nodes...\n",
			n, *pitch, *duration, *sampleRate, e.NodeCount())
	}
	totalFrames = max(totalFrames, 1)

	samples := make([]float32, 0, totalFrames*2)
	block := make([]float32, blockSize*2)
	thresholdLin := math.Pow(10, *decayDBFS/20)
	var frame int64
	for frame < totalFrames {
		n := int(min(int64(blockSize), totalFrames-frame))
		if tl != nil {
			for i := 0; i < n; i++ {
				tl.Apply(frame+int64(i), *sampleRate, &in)
				e.Process(&in, block[i*2:], 1)
			}
		} else {
			e.Process(&in, block, n)
		}
		samples = append(samples, block[:n*2]...)
		frame += int64(n)

		if (tl == nil || tl.Done()) && wavio.RMS(block[:n*2]) < thresholdLin {
			fmt.Printf("Auto-stop at %d frames (%.3fs), threshold %.1f dBFS\n", frame, float64(frame)/float64(*sampleRate), *decayDBFS)
			break
		}
	}

	if err := wavio.WriteStereo(*output, samples, *sampleRate); err != nil {
		die("Error writing WAV file: %v", err)
	}
	fmt.Printf("Successfully wrote %s (%d frames, peak %.1f dBFS)\n", *output, len(samples)/2, wavio.DBFS(peak(samples)))
}

func peak(x []float32) float64 {
	var p float64
	for _, v := range x {
		p = max(p, math.Abs(float64(v)))
	}
	return p
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
