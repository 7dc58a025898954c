package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ebitengine/oto/v3"
	"golang.org/x/term"

	"github.com/cwbudde/algo-ringstring/preset"
	"github.com/cwbudde/algo-ringstring/ring"
)

// player feeds oto from the engine. The UI goroutine publishes control
// snapshots; Read is the only goroutine touching the engine.
type player struct {
	engine  *ring.Engine
	inputs  atomic.Pointer[ring.Inputs]
	strikes atomic.Uint64

	seen  uint64
	local ring.Inputs
	buf   []float32
}

func (p *player) Read(b []byte) (int, error) {
	frames := len(b) / 8
	if frames == 0 {
		clear(b)
		return len(b), nil
	}
	if len(p.buf) < frames*2 {
		p.buf = make([]float32, frames*2)
	}
	samples := p.buf[:frames*2]

	if in := p.inputs.Load(); in != nil {
		p.local = *in
	}
	p.local.ManualStrike = false
	start := 0
	if s := p.strikes.Load(); s != p.seen {
		p.seen = s
		// One released frame guarantees the next one is an edge.
		p.engine.Process(&p.local, samples, 1)
		p.local.ManualStrike = true
		start = 1
	}
	p.engine.Process(&p.local, samples[start*2:], frames-start)

	n := frames * 8
	copy(b, unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), n))
	clear(b[n:])
	return len(b), nil
}

type controls struct {
	tension, shape, pitch float64
}

func (c controls) inputs() *ring.Inputs {
	return &ring.Inputs{
		Tension: ring.Mono(c.tension),
		Shape:   ring.Mono(c.shape),
		Pitch:   ring.Mono(c.pitch),
	}
}

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	nodes := flag.Int("nodes", 0, "Ring size override: 8, 12 or 16")
	bufferMS := flag.Int("buffer-ms", 20, "Audio buffer length in milliseconds")
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

	e, err := ring.NewEngine(*sampleRate, params)
	if err != nil {
		die("Error creating engine: %v", err)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(*bufferMS) * time.Millisecond,
	})
	if err != nil {
		die("Error opening audio device: %v", err)
	}
	<-ready

	pl := &player{engine: e}
	c := controls{tension: params.Tension, shape: params.Shape, pitch: params.Pitch}
	pl.inputs.Store(c.inputs())

	out := ctx.NewPlayer(pl)
	out.Play()
	defer out.Close()

	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		die("Error switching terminal to raw mode: %v", err)
	}
	defer func() { _ = term.Restore(fd, old) }()

	fmt.Print("space strike  [ ] shape  - = pitch  , . tension  q quit\r\n")
	key := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(key); err != nil {
			return
		}
		switch key[0] {
		case ' ':
			pl.strikes.Add(1)
		case '[':
			c.shape = math.Max(-1, c.shape-0.1)
		case ']':
			c.shape = math.Min(1, c.shape+0.1)
		case '-':
			c.pitch = math.Max(ring.MinPitch, c.pitch-1.0/12)
		case '=':
			c.pitch = math.Min(ring.MaxPitch, c.pitch+1.0/12)
		case ',':
			c.tension = math.Max(0, c.tension-0.05)
		case '.':
			c.tension = math.Min(1, c.tension+0.05)
		case 'q', 3:
			return
		default:
			continue
		}
		pl.inputs.Store(c.inputs())
		fmt.Printf("\rtension %.2f  shape %+.1f  pitch %+.3f V   ", c.tension, c.shape, c.pitch)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
