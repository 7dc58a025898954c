//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-ringstring/preset"
	"github.com/cwbudde/algo-ringstring/ring"
)

const maxBlock = 128

var (
	engine       *ring.Engine
	params       *ring.Params
	inputs       ring.Inputs
	strikeQueued bool
	outputBuffer []float32
)

func main() {
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmStrike", js.FuncOf(wasmStrike))
	js.Global().Set("wasmSetParam", js.FuncOf(wasmSetParam))
	js.Global().Set("wasmSetGate", js.FuncOf(wasmSetGate))
	js.Global().Set("wasmSetNodeCount", js.FuncOf(wasmSetNodeCount))
	js.Global().Set("wasmSetDelayMode", js.FuncOf(wasmSetDelayMode))
	js.Global().Set("wasmLoadPreset", js.FuncOf(wasmLoadPreset))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM ring module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	if params == nil {
		params = ring.NewDefaultParams()
	}
	if len(args) > 1 {
		params.NodeCount = args[1].Int()
	}
	e, err := ring.NewEngine(args[0].Int(), params)
	if err != nil {
		println("Engine init failed:", err.Error())
		return nil
	}
	engine = e
	inputs = ring.Inputs{}
	outputBuffer = make([]float32, maxBlock*2)

	println("Ring initialized at", args[0].Int(), "Hz with", engine.NodeCount(), "nodes")
	return nil
}

func wasmStrike(this js.Value, args []js.Value) interface{} {
	strikeQueued = true
	return nil
}

// wasmSetParam(name, value[, channel]) connects a knob. Without a channel
// the value is broadcast to all voices.
func wasmSetParam(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	p := knob(args[0].String())
	if p == nil {
		println("Unknown parameter:", args[0].String())
		return nil
	}
	setPoly(p, args[1].Float(), args)
	return nil
}

// wasmSetGate(value[, channel]) drives the gate input of a voice.
func wasmSetGate(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	setPoly(&inputs.Gate, args[0].Float(), append([]js.Value{js.Null()}, args...))
	return nil
}

func setPoly(p *ring.Poly, v float64, args []js.Value) {
	if len(args) < 3 {
		*p = ring.Mono(v)
		return
	}
	c := args[2].Int()
	if c < 0 || c >= ring.MaxVoices {
		return
	}
	p.Channels = max(p.Channels, c+1)
	p.Values[c] = v
}

func wasmSetNodeCount(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.SetNodeCount(args[0].Int())
	return engine.NodeCount()
}

func wasmSetDelayMode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.SetDelayMode(args[0].Bool())
	return nil
}

// wasmLoadPreset(jsonText) replaces the defaults; call wasmInit afterwards.
func wasmLoadPreset(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return false
	}
	var f preset.File
	if err := json.Unmarshal([]byte(args[0].String()), &f); err != nil {
		println("Preset parse failed:", err.Error())
		return false
	}
	p := ring.NewDefaultParams()
	if err := preset.ApplyFile(p, &f); err != nil {
		println("Preset rejected:", err.Error())
		return false
	}
	params = p
	return true
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return 0
	}
	numFrames := min(args[0].Int(), maxBlock)

	start := 0
	if strikeQueued {
		strikeQueued = false
		inputs.ManualStrike = false
		engine.Process(&inputs, outputBuffer, 1)
		inputs.ManualStrike = true
		start = 1
	}
	engine.Process(&inputs, outputBuffer[start*2:], numFrames-start)
	inputs.ManualStrike = false

	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}

func knob(name string) *ring.Poly {
	switch name {
	case "tension":
		return &inputs.Tension
	case "resonance":
		return &inputs.Resonance
	case "noise":
		return &inputs.Noise
	case "shape":
		return &inputs.Shape
	case "impulse":
		return &inputs.Impulse
	case "overdrive":
		return &inputs.Overdrive
	case "pitch":
		return &inputs.Pitch
	case "audio":
		return &inputs.Audio
	}
	return nil
}
