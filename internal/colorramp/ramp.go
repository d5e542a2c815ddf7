// Package colorramp maps normalized noise values in [0,1] to colours by
// piecewise linear interpolation between evenly spaced stops.
package colorramp

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// Ramp is an immutable list of colour stops placed at i/(n-1).
type Ramp struct {
	stops []csscolorparser.Color
}

var named = map[string][]string{
	"redblue": {"#ff0000", "#0000ff"},
	"wood":    {"rgb(230,204,171)", "rgb(153,135,97)"},
	"gray":    {"black", "white"},
	"terrain": {"#1a3a6b", "#3f8fbf", "#e8d9a0", "#4f8f3a", "#7a5a3a", "white"},
}

// Default returns the red to blue ramp.
func Default() *Ramp {
	r, _ := Named("redblue")
	return r
}

// Names lists the built-in ramps.
func Names() []string {
	out := make([]string, 0, len(named))
	for k := range named {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Named returns a built-in ramp.
func Named(name string) (*Ramp, error) {
	stops, ok := named[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown color ramp %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return New(stops...)
}

// Parse accepts either a built-in ramp name or a comma separated list of CSS
// colours, e.g. "navy,#fff,rgb(200,0,0)".
func Parse(s string) (*Ramp, error) {
	if _, ok := named[strings.ToLower(s)]; ok {
		return Named(s)
	}
	return New(strings.Split(s, ",")...)
}

// New builds a ramp from CSS colour strings.
func New(stops ...string) (*Ramp, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("color ramp needs at least one stop")
	}
	r := &Ramp{stops: make([]csscolorparser.Color, len(stops))}
	for i, s := range stops {
		c, err := csscolorparser.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("color stop %d: %w", i, err)
		}
		r.stops[i] = c
	}
	return r, nil
}

// Len returns the number of stops.
func (r *Ramp) Len() int { return len(r.stops) }

// At interpolates the ramp at t. Values outside [0,1] are clamped.
func (r *Ramp) At(t float64) csscolorparser.Color {
	n := len(r.stops)
	if n == 1 || t <= 0 || math.IsNaN(t) {
		return r.stops[0]
	}
	if t >= 1 {
		return r.stops[n-1]
	}

	pos := t * float64(n-1)
	i := int(math.Floor(pos))
	if i >= n-1 {
		return r.stops[n-1]
	}
	u := pos - float64(i)
	a, b := r.stops[i], r.stops[i+1]
	return csscolorparser.Color{
		R: lerp(a.R, b.R, u),
		G: lerp(a.G, b.G, u),
		B: lerp(a.B, b.B, u),
		A: lerp(a.A, b.A, u),
	}
}

// RGBA returns At(t) as an 8-bit colour.
func (r *Ramp) RGBA(t float64) color.RGBA {
	cr, cg, cb, ca := r.At(t).RGBA255()
	return color.RGBA{R: cr, G: cg, B: cb, A: ca}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
