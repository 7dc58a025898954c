package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-ringstring/analysis"
	"github.com/cwbudde/algo-ringstring/internal/fitcommon"
	"github.com/cwbudde/algo-ringstring/internal/wavio"
	"github.com/cwbudde/algo-ringstring/preset"
	"github.com/cwbudde/algo-ringstring/ring"
)

type runReport struct {
	ReferencePath  string             `json:"reference_path"`
	PresetPath     string             `json:"preset_path"`
	OutputPreset   string             `json:"output_preset"`
	SampleRate     int                `json:"sample_rate"`
	Pitch          float64            `json:"pitch_volts"`
	DurationSec    float64            `json:"elapsed_seconds"`
	Evaluations    int                `json:"evaluations"`
	MayflyVariant  string             `json:"mayfly_variant"`
	BestScore      float64            `json:"best_score"`
	BestSimilarity float64            `json:"best_similarity"`
	BestMetrics    analysis.Metrics   `json:"best_metrics"`
	BestKnobs      map[string]float64 `json:"best_knobs"`
}

func main() {
	referencePath := flag.String("reference", "reference/strike.wav", "Reference WAV path")
	presetPath := flag.String("preset", "", "Base preset JSON path (optional)")
	outputPreset := flag.String("output-preset", "fitted.json", "Path to write best fitted preset JSON")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	pitch := flag.Float64("pitch", math.NaN(), "Pitch in V/oct; estimated from the reference when unset")
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 60.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	decayDBFS := flag.Float64("decay-dbfs", -90.0, "Auto-stop threshold in dBFS")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks for stop")
	minDuration := flag.Float64("min-duration", 1.0, "Minimum render duration in seconds")
	maxDuration := flag.Float64("max-duration", 8.0, "Maximum render duration in seconds")
	writeBest := flag.String("write-best-candidate", "", "Optional WAV path to write the best candidate render")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	*reportEvery = max(*reportEvery, 1)
	*mayflyPop = max(*mayflyPop, 2)
	*mayflyRoundEvals = max(*mayflyRoundEvals, *mayflyPop*2)
	variant := strings.ToLower(*mayflyVariant)
	if *reportPath == "" {
		*reportPath = *outputPreset + ".report.json"
	}

	baseParams := ring.NewDefaultParams()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
		baseParams = p
	}

	ref, refSR, err := wavio.ReadMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err = wavio.ResampleIfNeeded(ref, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	if math.IsNaN(*pitch) {
		v, err := estimatePitch(ref, *sampleRate)
		if err != nil {
			die("failed to estimate reference pitch (pass -pitch): %v", err)
		}
		*pitch = v
		fmt.Printf("Estimated reference pitch %.3f V (%.2f Hz)\n", v, ring.C4Hz*math.Exp2(v))
	}
	baseParams.Pitch = *pitch

	opt := fitcommon.RenderOptions{
		SampleRate:      *sampleRate,
		DecayDBFS:       *decayDBFS,
		DecayHoldBlocks: *decayHoldBlocks,
		MinDuration:     *minDuration,
		MaxDuration:     *maxDuration,
	}
	defs := knobDefs()

	evaluate := func(c candidate) (analysis.Metrics, error) {
		st, err := fitcommon.RenderStrike(applyCandidate(baseParams, defs, c), opt)
		if err != nil {
			return analysis.Metrics{}, err
		}
		return analysis.Compare(ref, wavio.StereoToMono(st), *sampleRate), nil
	}

	start := time.Now()
	deadline := start.Add(time.Duration(*timeBudget * float64(time.Second)))
	evals := 0
	improves := 0

	best := initCandidate(baseParams, defs)
	bestM, err := evaluate(best)
	if err != nil {
		die("initial evaluation failed: %v", err)
	}
	evals++
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", bestM.Score, bestM.Similarity*100.0)

	for round := 1; evals < *maxEvals && time.Now().Before(deadline); round++ {
		budget := min(*mayflyRoundEvals, *maxEvals-evals)
		iters := max(1, budget/(2*(*mayflyPop)))

		cfg, err := newMayflyConfig(variant, *mayflyPop, len(defs), iters)
		if err != nil {
			die("invalid mayfly variant: %v", err)
		}
		cfg.Rand = rand.New(rand.NewSource(*seed + int64(round)*7919))
		cfg.ObjectiveFunc = func(pos []float64) float64 {
			if evals >= *maxEvals || time.Now().After(deadline) {
				return bestM.Score + 1.0
			}
			cand := fromNormalized(pos, defs)
			m, err := evaluate(cand)
			evals++
			if err != nil {
				return bestM.Score + 0.8
			}
			if m.Score < bestM.Score {
				best, bestM = cand, m
				improves++
				fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%%\n", improves, evals, bestM.Score, bestM.Similarity*100.0)
			}
			if evals%*reportEvery == 0 {
				fmt.Printf("Progress round=%d eval=%d elapsed=%.1fs best=%.4f\n", round, evals, time.Since(start).Seconds(), bestM.Score)
			}
			return m.Score
		}

		if _, err := runMayfly(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
		}
	}

	elapsed := time.Since(start).Seconds()
	bestParams := applyCandidate(baseParams, defs, best)
	if err := preset.SaveJSON(*outputPreset, bestParams); err != nil {
		die("failed to write preset: %v", err)
	}
	knobs := make(map[string]float64, len(defs))
	for i, d := range defs {
		knobs[d.Name] = best.Vals[i]
	}
	rep := runReport{
		ReferencePath:  *referencePath,
		PresetPath:     *presetPath,
		OutputPreset:   *outputPreset,
		SampleRate:     *sampleRate,
		Pitch:          *pitch,
		DurationSec:    elapsed,
		Evaluations:    evals,
		MayflyVariant:  variant,
		BestScore:      bestM.Score,
		BestSimilarity: bestM.Similarity,
		BestMetrics:    bestM,
		BestKnobs:      knobs,
	}
	if err := writeJSON(*reportPath, rep); err != nil {
		die("failed to write report: %v", err)
	}

	if *writeBest != "" {
		st, err := fitcommon.RenderStrike(bestParams, opt)
		if err == nil {
			err = wavio.WriteStereo(*writeBest, st, *sampleRate)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to write best candidate wav: %v\n", err)
		}
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		evals, elapsed, bestM.Score, bestM.Similarity*100.0, variant)
}

func estimatePitch(ref []float64, sampleRate int) (float64, error) {
	x := make([]float32, min(len(ref), sampleRate/2))
	for i := range x {
		x[i] = float32(ref[i])
	}
	hz, err := analysis.EstimateFundamental(x, sampleRate, ring.C4Hz*math.Exp2(ring.MinPitch), 2000)
	if err != nil {
		return 0, err
	}
	v := math.Log2(hz / ring.C4Hz)
	if v < ring.MinPitch || v > ring.MaxPitch {
		return 0, errors.New("fundamental outside the playable range")
	}
	return v, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// NC/2 parent pairs are drawn from both populations.
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
