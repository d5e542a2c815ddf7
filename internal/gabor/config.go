package gabor

import (
	"fmt"
	"math"
)

// Generator names accepted by Config.Generator.
const (
	GeneratorClassic = "classic"
	GeneratorMixed   = "mixed"
)

// DefaultPeriod is the tiling period, in cells, of the preset configurations.
const DefaultPeriod = 256

// Config holds the parameters of a noise field. Fields are built from a Config
// once and never mutated; to change parameters build a new field.
type Config struct {
	// Gaussian gain and width of the kernel. A must be positive.
	K float64
	A float64

	// Frequency magnitude range.
	F0Min float64
	F0Max float64

	// Frequency orientation range in radians.
	W0Min float64
	W0Max float64

	// Mean number of impulses per kernel footprint.
	ImpulsesPerKernel float64

	// Offset salts every cell seed.
	Offset uint32

	Periodic bool
	Period   uint32

	// Generator selects the per-cell random source: "classic" (default) or "mixed".
	Generator string
}

// DefaultConfig returns isotropic noise with the parameters of the reference scene.
func DefaultConfig() Config {
	return Isotropic(1, 0.05, 0.125, 64)
}

// Isotropic returns a config with a single frequency magnitude and orientations
// spanning the full circle.
func Isotropic(K, a, F0, impulses float64) Config {
	return Config{
		K:                 K,
		A:                 a,
		F0Min:             F0,
		F0Max:             F0,
		W0Min:             0,
		W0Max:             2 * math.Pi,
		ImpulsesPerKernel: impulses,
		Period:            DefaultPeriod,
		Generator:         GeneratorClassic,
	}
}

// Anisotropic returns a config with a single frequency magnitude and orientation.
func Anisotropic(K, a, F0, w0, impulses float64) Config {
	c := Isotropic(K, a, F0, impulses)
	c.W0Min = w0
	c.W0Max = w0
	return c
}

// Validate reports whether the config describes a well-defined field.
func (c Config) Validate() error {
	values := []struct {
		name string
		v    float64
	}{
		{"K", c.K}, {"a", c.A}, {"F0 min", c.F0Min}, {"F0 max", c.F0Max},
		{"w0 min", c.W0Min}, {"w0 max", c.W0Max}, {"impulses per kernel", c.ImpulsesPerKernel},
	}
	for _, f := range values {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be finite, got %v", f.name, f.v)
		}
	}
	if c.A <= 0 {
		return fmt.Errorf("gaussian width a must be positive, got %v", c.A)
	}
	if c.F0Min > c.F0Max {
		return fmt.Errorf("F0 min (%v) must be <= F0 max (%v)", c.F0Min, c.F0Max)
	}
	if c.W0Min > c.W0Max {
		return fmt.Errorf("w0 min (%v) must be <= w0 max (%v)", c.W0Min, c.W0Max)
	}
	if c.ImpulsesPerKernel < 0 {
		return fmt.Errorf("impulses per kernel must be non-negative, got %v", c.ImpulsesPerKernel)
	}
	if c.Periodic && c.Period == 0 {
		return fmt.Errorf("periodic noise requires a positive period")
	}
	switch c.Generator {
	case "", GeneratorClassic, GeneratorMixed:
	default:
		return fmt.Errorf("unknown generator %q: must be %q or %q", c.Generator, GeneratorClassic, GeneratorMixed)
	}
	return nil
}

// KernelRadius is the support radius of the kernel, 1/a.
func (c Config) KernelRadius() float64 { return 1 / c.A }

// ImpulseDensity is the expected number of impulses per unit area.
func (c Config) ImpulseDensity() float64 {
	r := c.KernelRadius()
	return c.ImpulsesPerKernel / (math.Pi * r * r)
}

// IsIsotropic reports whether the config has one frequency magnitude and
// orientations covering the full circle.
func (c Config) IsIsotropic() bool {
	return c.F0Max-c.F0Min <= rangeEpsilon && c.W0Max-c.W0Min >= 2*math.Pi-rangeEpsilon
}
