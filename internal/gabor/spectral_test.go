package gabor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPowerSpectrumAnisotropicClosedForm(t *testing.T) {
	c := Anisotropic(1, 0.05, 0.125, math.Pi/6, 64)
	for _, f := range [][2]float64{{0, 0}, {0.1, 0.06}, {-0.1, -0.06}, {0.3, -0.2}} {
		g := KernelFourier(c.K, c.A, 0.125, math.Pi/6, f[0], f[1])
		assert.InDelta(t, g*g*c.ImpulseDensity()/3, PowerSpectrum(c, f[0], f[1]), 1e-12)
	}
}

func TestPowerSpectrumIsotropicRing(t *testing.T) {
	c := DefaultConfig()
	F0 := c.F0Min

	onRing := []float64{
		PowerSpectrum(c, F0, 0),
		PowerSpectrum(c, 0, F0),
		PowerSpectrum(c, F0/math.Sqrt2, F0/math.Sqrt2),
		PowerSpectrum(c, -F0*math.Cos(1), F0*math.Sin(1)),
	}
	for _, p := range onRing[1:] {
		assert.InEpsilon(t, onRing[0], p, 0.01)
	}

	assert.Greater(t, onRing[0], 100*PowerSpectrum(c, 0, 0))
	assert.Greater(t, onRing[0], 100*PowerSpectrum(c, 2*F0, 0))
}

func TestPowerSpectrumIsSymmetric(t *testing.T) {
	configs := map[string]Config{
		"F0 range":  {K: 1, A: 0.05, F0Min: 0.05, F0Max: 0.15, W0Min: 0.5, W0Max: 0.5, ImpulsesPerKernel: 64},
		"both":      {K: 1, A: 0.05, F0Min: 0.05, F0Max: 0.15, W0Min: 0, W0Max: math.Pi / 2, ImpulsesPerKernel: 64},
		"isotropic": DefaultConfig(),
	}
	for name, c := range configs {
		t.Run(name, func(t *testing.T) {
			for _, f := range [][2]float64{{0.08, 0.02}, {0.01, 0.12}, {-0.05, 0.05}} {
				assert.InDelta(t, PowerSpectrum(c, f[0], f[1]), PowerSpectrum(c, -f[0], -f[1]), 1e-9)
			}
		})
	}
}

// The total power of the spectrum equals the field variance.
func TestPowerSpectrumIntegratesToVariance(t *testing.T) {
	if testing.Short() {
		t.Skip("numerical integration")
	}
	tests := map[string]Config{
		"anisotropic": Anisotropic(1, 0.05, 0.125, 0.4, 64),
		"isotropic":   DefaultConfig(),
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			const (
				extent = 0.3
				step   = 0.004
			)
			total := 0.0
			for fx := -extent; fx <= extent; fx += step {
				for fy := -extent; fy <= extent; fy += step {
					total += PowerSpectrum(c, fx, fy) * step * step
				}
			}
			assert.InEpsilon(t, Variance(c), total, 0.02)
		})
	}
}

func TestVarianceDegenerateRange(t *testing.T) {
	c := DefaultConfig()
	c.F0Max = c.F0Min + rangeEpsilon/2
	assert.Equal(t, varianceAt(c, c.F0Min), Variance(c))
}

func TestVarianceOverFrequencyRange(t *testing.T) {
	c := Config{K: 1, A: 0.5, F0Min: 0, F0Max: 0.5, W0Max: 2 * math.Pi, ImpulsesPerKernel: 10}

	// (1/s)∫(1+exp(-kF²))dF over [0,s] in closed form.
	k := 2 * math.Pi / (c.A * c.A)
	s := c.F0Max
	mean := 1 + math.Sqrt(math.Pi/k)/2*math.Erf(math.Sqrt(k)*s)/s
	want := c.ImpulseDensity() * c.K * c.K / (12 * c.A * c.A) * mean

	got := Variance(c)
	assert.InEpsilon(t, want, got, 1e-3)
	assert.Less(t, got, varianceAt(c, c.F0Min))
	assert.Greater(t, got, varianceAt(c, c.F0Max))
}
