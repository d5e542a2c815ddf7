// Package render turns noise fields into raster images: noise images over a
// region of the plane, power spectrum images, and the encoders to store them.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"

	"github.com/disintegration/gift"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/gabornoise/internal/colorramp"
)

// Sampler is a field that can be evaluated as a display value in [0,1].
type Sampler interface {
	Normalized(x, y float64) float64
}

// Region is an axis-aligned window of the plane rasterized at a fixed
// resolution. Pixel rows run from MaxY downwards.
type Region struct {
	MinX          float64
	MaxY          float64
	UnitsPerPixel float64
	Width         int
	Height        int
}

// CenteredRegion returns a size×size region centred on (cx, cy).
func CenteredRegion(size int, unitsPerPixel, cx, cy float64) Region {
	half := float64(size) / 2 * unitsPerPixel
	return Region{
		MinX:          cx - half,
		MaxY:          cy + half,
		UnitsPerPixel: unitsPerPixel,
		Width:         size,
		Height:        size,
	}
}

// Point returns the plane coordinates of the centre of pixel (px, py).
func (r Region) Point(px, py int) (x, y float64) {
	x = r.MinX + (float64(px)+0.5)*r.UnitsPerPixel
	y = r.MaxY - (float64(py)+0.5)*r.UnitsPerPixel
	return x, y
}

func (r Region) validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", r.Width, r.Height)
	}
	if !(r.UnitsPerPixel > 0) || math.IsInf(r.UnitsPerPixel, 0) {
		return fmt.Errorf("units per pixel must be positive, got %v", r.UnitsPerPixel)
	}
	return nil
}

// Options controls how values are turned into pixels.
type Options struct {
	// Ramp colours the values; nil renders grayscale.
	Ramp *colorramp.Ramp
	// Supersample renders at this factor and downsamples; values below 2 disable it.
	Supersample int
	// Workers rendering rows concurrently; zero means GOMAXPROCS.
	Workers int
}

// Render rasterizes s over the region.
func Render(ctx context.Context, s Sampler, r Region, opts Options) (*image.RGBA, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if opts.Supersample < 2 {
		return renderDirect(ctx, s, r, opts)
	}

	k := opts.Supersample
	hi := Region{
		MinX:          r.MinX,
		MaxY:          r.MaxY,
		UnitsPerPixel: r.UnitsPerPixel / float64(k),
		Width:         r.Width * k,
		Height:        r.Height * k,
	}
	src, err := renderDirect(ctx, s, hi, opts)
	if err != nil {
		return nil, err
	}
	g := gift.New(gift.Resize(r.Width, r.Height, gift.BoxResampling))
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst, nil
}

// NoiseImage renders a size×size image centred on the origin.
func NoiseImage(ctx context.Context, s Sampler, size int, unitsPerPixel float64, opts Options) (*image.RGBA, error) {
	return Render(ctx, s, CenteredRegion(size, unitsPerPixel, 0, 0), opts)
}

func renderDirect(ctx context.Context, s Sampler, r Region, opts Options) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	paint := gray
	if opts.Ramp != nil {
		paint = opts.Ramp.RGBA
	}

	err := forRows(ctx, r.Height, opts.Workers, func(py int) {
		for px := 0; px < r.Width; px++ {
			x, y := r.Point(px, py)
			img.SetRGBA(px, py, paint(s.Normalized(x, y)))
		}
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// forRows calls fn for every row in [0, rows) on a bounded set of goroutines.
func forRows(ctx context.Context, rows, workers int, fn func(row int)) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for row := 0; row < rows; row++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func gray(t float64) color.RGBA {
	v := uint8(math.Round(clamp01(t) * 255))
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
