package gabor

import (
	"fmt"
	"math"
)

// PlanarField is 2D sparse convolution noise over an infinite, or toroidally
// periodic, lattice of cells one kernel radius wide. It is read-only after
// construction and safe for concurrent use.
type PlanarField struct {
	cfg             Config
	kernelRadius    float64
	impulseDensity  float64
	impulsesPerCell float64
	variance        float64
}

// NewPlanarField validates cfg and builds a field from it.
func NewPlanarField(cfg Config) (*PlanarField, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid noise config: %w", err)
	}
	r := cfg.KernelRadius()
	density := cfg.ImpulseDensity()
	return &PlanarField{
		cfg:             cfg,
		kernelRadius:    r,
		impulseDensity:  density,
		impulsesPerCell: density * r * r,
		variance:        Variance(cfg),
	}, nil
}

// Config returns the parameters the field was built from.
func (f *PlanarField) Config() Config { return f.cfg }

// KernelRadius returns the cell width in field units.
func (f *PlanarField) KernelRadius() float64 { return f.kernelRadius }

// Intensity evaluates the noise at (x, y).
func (f *PlanarField) Intensity(x, y float64) float64 {
	x /= f.kernelRadius
	y /= f.kernelRadius

	ix := math.Floor(x)
	iy := math.Floor(y)
	fx := x - ix
	fy := y - iy
	i0 := int(ix)
	j0 := int(iy)

	sum := 0.0
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			sum += f.cellNoise(i0+di, j0+dj, fx-float64(di), fy-float64(dj))
		}
	}
	return sum
}

// cellNoise sums the impulses of cell (i, j) at (x, y), given in the cell's
// local coordinates in kernel radius units.
func (f *PlanarField) cellNoise(i, j int, x, y float64) float64 {
	c := &f.cfg
	rng := c.source(c.CellSeed(i, j))

	n := rng.Poisson(f.impulsesPerCell)
	noise := 0.0
	for k := uint32(0); k < n; k++ {
		xi := rng.Uniform01()
		yi := rng.Uniform01()
		wi := rng.Uniform(-1, 1)
		F0i := rng.Uniform(c.F0Min, c.F0Max)
		w0i := rng.Uniform(c.W0Min, c.W0Max)

		dx := x - xi
		dy := y - yi
		if dx*dx+dy*dy < 1 {
			noise += wi * Kernel(c.K, c.A, F0i, w0i, dx*f.kernelRadius, dy*f.kernelRadius)
		}
	}
	return noise
}

// Variance returns the analytic variance of the field.
func (f *PlanarField) Variance() float64 { return f.variance }

// Scale returns the display normalization 6·sqrt(variance).
func (f *PlanarField) Scale() float64 { return displayScale(f.variance) }

// Normalized maps the intensity at (x, y) into [0,1] around 0.5.
func (f *PlanarField) Normalized(x, y float64) float64 {
	return normalize(f.Intensity(x, y), f.Scale())
}

// PowerSpectrum returns the expected power of the field at frequency (fx, fy).
func (f *PlanarField) PowerSpectrum(fx, fy float64) float64 {
	return PowerSpectrum(f.cfg, fx, fy)
}

func displayScale(variance float64) float64 {
	return 6 * math.Sqrt(variance)
}

func normalize(v, scale float64) float64 {
	if scale <= 0 {
		return 0.5
	}
	t := 0.5 + v/scale
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
