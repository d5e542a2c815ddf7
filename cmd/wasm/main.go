//go:build js && wasm

// Command wasm exposes the noise field to JavaScript. It registers
// gaborNoiseInit, gaborNoiseIntensity and gaborNoiseRender on the global
// object; rendered pixels are RGBA bytes ready for ImageData.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"syscall/js"

	"github.com/MeKo-Tech/gabornoise/internal/colorramp"
	"github.com/MeKo-Tech/gabornoise/internal/gabor"
	"github.com/MeKo-Tech/gabornoise/internal/render"
)

// InitRequest configures the field from JavaScript. Angles are in degrees;
// zero values take the defaults of gabor.DefaultConfig.
type InitRequest struct {
	K         float64 `json:"k"`
	A         float64 `json:"a"`
	F0Min     float64 `json:"f0Min"`
	F0Max     float64 `json:"f0Max"`
	W0MinDeg  float64 `json:"w0MinDeg"`
	W0MaxDeg  float64 `json:"w0MaxDeg"`
	Impulses  float64 `json:"impulses"`
	Offset    uint32  `json:"offset"`
	Periodic  bool    `json:"periodic"`
	Period    uint32  `json:"period"`
	Generator string  `json:"generator"`
	Ramp      string  `json:"ramp"`
}

func (r InitRequest) config() gabor.Config {
	c := gabor.DefaultConfig()
	if r.K != 0 {
		c.K = r.K
	}
	if r.A != 0 {
		c.A = r.A
	}
	if r.F0Min != 0 || r.F0Max != 0 {
		c.F0Min, c.F0Max = r.F0Min, r.F0Max
	}
	if r.W0MinDeg != 0 || r.W0MaxDeg != 0 {
		c.W0Min, c.W0Max = r.W0MinDeg*math.Pi/180, r.W0MaxDeg*math.Pi/180
	}
	if r.Impulses != 0 {
		c.ImpulsesPerKernel = r.Impulses
	}
	if r.Period != 0 {
		c.Period = r.Period
	}
	if r.Generator != "" {
		c.Generator = r.Generator
	}
	c.Offset = r.Offset
	c.Periodic = r.Periodic
	return c
}

var (
	field *gabor.PlanarField
	ramp  *colorramp.Ramp
)

func errorResult(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

// initField takes a JSON InitRequest and rebuilds the field.
func initField(this js.Value, args []js.Value) any {
	var req InitRequest
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
			return errorResult(fmt.Errorf("failed to parse request: %w", err))
		}
	}
	f, err := gabor.NewPlanarField(req.config())
	if err != nil {
		return errorResult(err)
	}
	var rp *colorramp.Ramp
	if req.Ramp != "" {
		if rp, err = colorramp.Parse(req.Ramp); err != nil {
			return errorResult(err)
		}
	}
	field, ramp = f, rp
	return map[string]any{
		"status":       "ready",
		"variance":     f.Variance(),
		"kernelRadius": f.KernelRadius(),
	}
}

// intensity(x, y) returns the raw field value.
func intensity(this js.Value, args []js.Value) any {
	if field == nil || len(args) < 2 {
		return js.Null()
	}
	return field.Intensity(args[0].Float(), args[1].Float())
}

// renderImage(size, unitsPerPixel, centerX, centerY) returns a Uint8ClampedArray.
func renderImage(this js.Value, args []js.Value) any {
	if field == nil {
		return errorResult(fmt.Errorf("call gaborNoiseInit first"))
	}
	if len(args) < 2 {
		return errorResult(fmt.Errorf("expected size and unitsPerPixel"))
	}
	var cx, cy float64
	if len(args) >= 4 {
		cx, cy = args[2].Float(), args[3].Float()
	}
	region := render.CenteredRegion(args[0].Int(), args[1].Float(), cx, cy)
	img, err := render.Render(context.Background(), field, region, render.Options{Ramp: ramp, Workers: 1})
	if err != nil {
		return errorResult(err)
	}
	out := js.Global().Get("Uint8ClampedArray").New(len(img.Pix))
	js.CopyBytesToJS(out, img.Pix)
	return out
}

func main() {
	js.Global().Set("gaborNoiseInit", js.FuncOf(initField))
	js.Global().Set("gaborNoiseIntensity", js.FuncOf(intensity))
	js.Global().Set("gaborNoiseRender", js.FuncOf(renderImage))

	fmt.Println("gabornoise WASM module loaded")
	select {}
}
