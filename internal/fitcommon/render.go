// Package fitcommon holds the render loop shared by the fitting and
// comparison commands.
package fitcommon

import (
	"math"

	"github.com/cwbudde/algo-ringstring/internal/wavio"
	"github.com/cwbudde/algo-ringstring/ring"
)

const blockSize = 128

// RenderOptions controls RenderStrike's length.
type RenderOptions struct {
	SampleRate      int
	DecayDBFS       float64
	DecayHoldBlocks int
	MinDuration     float64
	MaxDuration     float64
}

// RenderStrike strikes every voice at frame 0 and renders interleaved
// stereo until DecayHoldBlocks consecutive blocks stay below DecayDBFS or
// MaxDuration is reached.
func RenderStrike(p *ring.Params, opt RenderOptions) ([]float32, error) {
	e, err := ring.NewEngine(opt.SampleRate, p)
	if err != nil {
		return nil, err
	}
	minFrames := int(float64(opt.SampleRate) * max(opt.MinDuration, 0))
	maxFrames := max(int(float64(opt.SampleRate)*opt.MaxDuration), minFrames, blockSize)
	threshold := math.Pow(10, opt.DecayDBFS/20)
	hold := max(opt.DecayHoldBlocks, 1)

	in := &ring.Inputs{ManualStrike: true}
	samples := make([]float32, 0, max(minFrames, blockSize)*2)
	block := make([]float32, blockSize*2)
	below := 0
	for frames := 0; frames < maxFrames; {
		n := min(blockSize, maxFrames-frames)
		e.Process(in, block, n)
		samples = append(samples, block[:n*2]...)
		frames += n

		if frames < minFrames {
			continue
		}
		if wavio.RMS(block[:n*2]) < threshold {
			below++
			if below >= hold {
				break
			}
		} else {
			below = 0
		}
	}
	return samples, nil
}
