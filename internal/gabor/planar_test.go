package gabor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gabornoise/internal/prng"
)

func mustPlanar(t testing.TB, cfg Config) *PlanarField {
	t.Helper()
	f, err := NewPlanarField(cfg)
	require.NoError(t, err)
	return f
}

// spacedSamples evaluates f at n points three cells apart, so no two samples
// share a lattice cell neighbourhood. Each point is jittered inside its block.
func spacedSamples(f *PlanarField, n int, seed uint32) []float64 {
	jitter := prng.NewMixed(seed)
	step := 3 * f.KernelRadius()
	side := int(math.Ceil(math.Sqrt(float64(n))))
	out := make([]float64, 0, n)
	for k := 0; k < n; k++ {
		x := float64(k%side)*step + jitter.Uniform01()*f.KernelRadius()
		y := float64(k/side)*step + jitter.Uniform01()*f.KernelRadius()
		out = append(out, f.Intensity(x, y))
	}
	return out
}

func meanVariance(v []float64) (float64, float64) {
	mean := 0.0
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	ss := 0.0
	for _, x := range v {
		ss += (x - mean) * (x - mean)
	}
	return mean, ss / float64(len(v)-1)
}

func TestNewPlanarFieldRejectsInvalidConfig(t *testing.T) {
	c := DefaultConfig()
	c.A = 0
	_, err := NewPlanarField(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid noise config")
}

func TestIntensityIsDeterministic(t *testing.T) {
	f := mustPlanar(t, DefaultConfig())
	g := mustPlanar(t, DefaultConfig())

	v := f.Intensity(0, 0)
	assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	assert.Equal(t, v, f.Intensity(0, 0))
	assert.Equal(t, v, g.Intensity(0, 0))

	for _, p := range [][2]float64{{13.7, -2.2}, {-512.5, 300.25}, {1e4, 1e4}} {
		assert.Equal(t, f.Intensity(p[0], p[1]), g.Intensity(p[0], p[1]))
	}
}

func TestOffsetChangesField(t *testing.T) {
	a := mustPlanar(t, DefaultConfig())
	c := DefaultConfig()
	c.Offset = 12345
	b := mustPlanar(t, c)

	differ := 0
	for i := 0; i < 20; i++ {
		x := float64(i) * 37.3
		if a.Intensity(x, 5) != b.Intensity(x, 5) {
			differ++
		}
	}
	assert.Greater(t, differ, 15)
}

func TestPeriodicity(t *testing.T) {
	for _, period := range []uint32{16, 5} {
		c := DefaultConfig()
		c.Periodic = true
		c.Period = period
		f := mustPlanar(t, c)
		shift := float64(period) * f.KernelRadius()

		for _, p := range [][2]float64{{0, 0}, {3.3, 7.9}, {-41.2, 18.6}, {150.5, -99.1}} {
			v := f.Intensity(p[0], p[1])
			assert.InDelta(t, v, f.Intensity(p[0]+shift, p[1]), 1e-9, "period %d at %v", period, p)
			assert.InDelta(t, v, f.Intensity(p[0], p[1]-shift), 1e-9, "period %d at %v", period, p)
		}
	}
}

func TestPeriodicRequiresPeriod(t *testing.T) {
	c := DefaultConfig()
	c.Periodic = true
	c.Period = 0
	_, err := NewPlanarField(c)
	require.Error(t, err, "a zero period is rejected rather than guessed")
}

func TestZeroMeanAndVarianceConsistency(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	for _, gen := range []string{GeneratorClassic, GeneratorMixed} {
		t.Run(gen, func(t *testing.T) {
			c := DefaultConfig()
			c.Generator = gen
			f := mustPlanar(t, c)

			const n = 10000
			mean, variance := meanVariance(spacedSamples(f, n, 42))
			sigma := math.Sqrt(f.Variance())

			assert.InDelta(t, 0, mean, 5*sigma/math.Sqrt(n))
			assert.InEpsilon(t, f.Variance(), variance, 0.10)
		})
	}
}

func TestVarianceConcreteScenario(t *testing.T) {
	f := mustPlanar(t, DefaultConfig())
	density := 64 / (math.Pi * 400)
	want := density / (12 * 0.0025) * (1 + math.Exp(-2*math.Pi*0.015625/0.0025))
	assert.InDelta(t, want, f.Variance(), 1e-12)
	assert.InDelta(t, 6*math.Sqrt(want), f.Scale(), 1e-12)
}

// directionalCorrelation estimates the normalized autocorrelation at lag d
// along angle theta.
func directionalCorrelation(f *PlanarField, theta, d float64, n int) float64 {
	jitter := prng.NewMixed(7)
	dx, dy := d*math.Cos(theta), d*math.Sin(theta)
	step := 4 * f.KernelRadius()
	side := int(math.Sqrt(float64(n)))
	sum := 0.0
	for k := 0; k < n; k++ {
		x := float64(k%side)*step + jitter.Uniform01()*step
		y := float64(k/side)*step + jitter.Uniform01()*step
		sum += f.Intensity(x, y) * f.Intensity(x+dx, y+dy)
	}
	return sum / float64(n) / f.Variance()
}

func TestIsotropy(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	f := mustPlanar(t, DefaultConfig())
	const n = 4000

	for _, lag := range []float64{2, 4} {
		ref := directionalCorrelation(f, 0, lag, n)
		for _, theta := range []float64{math.Pi / 4, math.Pi / 2, 2 * math.Pi / 3} {
			got := directionalCorrelation(f, theta, lag, n)
			assert.InDelta(t, ref, got, 0.12, "lag %v angle %v", lag, theta)
		}
	}
}

func TestAnisotropicFieldIsDirectional(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	f := mustPlanar(t, Anisotropic(1, 0.05, 0.125, 0, 64))
	const n = 2000

	// Half a wavelength along the wave vector flips the sign; across it the
	// field stays strongly correlated.
	along := directionalCorrelation(f, 0, 4, n)
	across := directionalCorrelation(f, math.Pi/2, 4, n)
	assert.Less(t, along, -0.4)
	assert.Greater(t, across, 0.4)
}

func TestNormalizedRange(t *testing.T) {
	f := mustPlanar(t, DefaultConfig())
	for i := 0; i < 500; i++ {
		v := f.Normalized(float64(i)*3.1, float64(i)*-1.7)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.5, normalize(3, 0))
	assert.Equal(t, 0.5, normalize(0, 6))
	assert.Equal(t, 0.75, normalize(1.5, 6))
	assert.Equal(t, 0.0, normalize(-100, 6))
	assert.Equal(t, 1.0, normalize(100, 6))
}

func BenchmarkPlanarIntensity(b *testing.B) {
	f := mustPlanar(b, DefaultConfig())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Intensity(float64(i%512), float64(i/512))
	}
}
