package render

import (
	"context"
	"image"
)

// Spectral is a field with an analytic power spectrum.
type Spectral interface {
	PowerSpectrum(fx, fy float64) float64
}

// DefaultSpectrumExtent is the largest frequency shown on each axis.
const DefaultSpectrumExtent = 1.1

// SpectrumOptions controls the spectrum image.
type SpectrumOptions struct {
	Size int
	// Extent is the frequency at the image border; zero means DefaultSpectrumExtent.
	Extent float64
	// Gain multiplies the power before clamping to [0,1]; zero means 1.
	Gain float64
	// Normalize scales the brightest pixel to white instead of applying Gain.
	Normalize bool

	// Ramp and Workers apply; Supersample is ignored.
	Options
}

// SpectrumFrequency returns the frequency shown at pixel index p of an image
// of the given size, for an extent e: (p + 0.5 − size/2)·2e/size.
func SpectrumFrequency(p, size int, extent float64) float64 {
	return (float64(p) + 0.5 - float64(size)/2) * 2 * extent / float64(size)
}

// SpectrumImage renders the power spectrum centred on zero frequency with fx
// growing to the right and fy growing upwards.
func SpectrumImage(ctx context.Context, s Spectral, opts SpectrumOptions) (*image.RGBA, error) {
	r := Region{Width: opts.Size, Height: opts.Size, UnitsPerPixel: 1}
	if err := r.validate(); err != nil {
		return nil, err
	}
	extent := opts.Extent
	if extent <= 0 {
		extent = DefaultSpectrumExtent
	}

	n := opts.Size
	power := make([]float64, n*n)
	err := forRows(ctx, n, opts.Workers, func(py int) {
		fy := SpectrumFrequency(n-1-py, n, extent)
		for px := 0; px < n; px++ {
			power[py*n+px] = s.PowerSpectrum(SpectrumFrequency(px, n, extent), fy)
		}
	})
	if err != nil {
		return nil, err
	}

	gain := opts.Gain
	if gain == 0 {
		gain = 1
	}
	if opts.Normalize {
		peak := 0.0
		for _, p := range power {
			peak = max(peak, p)
		}
		gain = 0
		if peak > 0 {
			gain = 1 / peak
		}
	}

	paint := gray
	if opts.Ramp != nil {
		paint = opts.Ramp.RGBA
	}
	img := image.NewRGBA(image.Rect(0, 0, n, n))
	for py := 0; py < n; py++ {
		for px := 0; px < n; px++ {
			img.SetRGBA(px, py, paint(power[py*n+px]*gain))
		}
	}
	return img, nil
}
