package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gabornoise/internal/gabor"
)

// waveField is a plane wave along x with a fixed frequency.
type waveField struct{ freq float64 }

func (w waveField) Intensity(x, _ float64) float64 { return math.Cos(2 * math.Pi * w.freq * x) }
func (w waveField) Variance() float64              { return 0.5 }
func (w waveField) KernelRadius() float64          { return 1 }

func defaultField(t *testing.T) *gabor.PlanarField {
	t.Helper()
	f, err := gabor.NewPlanarField(gabor.DefaultConfig())
	require.NoError(t, err)
	return f
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4}, 1.5)
	assert.Equal(t, 4, s.Samples)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, 5.0/3, s.Variance, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3), s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, (5.0/3-1.5)/1.5, s.RelativeError, 1e-12)
}

func TestSummarizeEdgeCases(t *testing.T) {
	assert.Equal(t, Stats{Analytic: 2}, Summarize(nil, 2))

	one := Summarize([]float64{7}, 0)
	assert.Equal(t, 7.0, one.Mean)
	assert.Equal(t, 0.0, one.Variance)
	assert.Equal(t, 0.0, one.RelativeError)
}

func TestSampleRejectsEmpty(t *testing.T) {
	_, err := Sample(context.Background(), waveField{0.1}, SampleOptions{})
	require.Error(t, err)
}

func TestSampleIndependentOfWorkers(t *testing.T) {
	f := defaultField(t)
	opts := SampleOptions{Samples: 300, Jitter: 0.3, Seed: 9}

	opts.Workers = 1
	serial, err := Sample(context.Background(), f, opts)
	require.NoError(t, err)

	opts.Workers = 7
	parallel, err := Sample(context.Background(), f, opts)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestSampleUsesSpacing(t *testing.T) {
	// With period 10 and spacing 10 every grid point sees the same phase.
	values, err := Sample(context.Background(), waveField{0.1}, SampleOptions{Samples: 25, Spacing: 10})
	require.NoError(t, err)
	for _, v := range values {
		assert.InDelta(t, 1, v, 1e-9)
	}
}

func TestSampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sample(ctx, defaultField(t), SampleOptions{Samples: 1000, Workers: 4})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMeasureMatchesAnalyticVariance(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	s, err := Measure(context.Background(), defaultField(t), SampleOptions{Samples: 4000, Jitter: 0.3, Seed: 1})
	require.NoError(t, err)
	assert.Less(t, s.RelativeError, 0.15)
	assert.InDelta(t, 0, s.Mean, 5*math.Sqrt(s.Analytic/4000))
	assert.Less(t, s.Min, 0.0)
	assert.Greater(t, s.Max, 0.0)
}

func TestPeriodogramOfPlaneWave(t *testing.T) {
	s, err := Periodogram(context.Background(), waveField{0.125}, 0, 0, 1, 64)
	require.NoError(t, err)

	fx, fy, power := s.Peak()
	assert.InDelta(t, 0.125, math.Abs(fx), 1e-12)
	assert.Equal(t, 0.0, fy)
	assert.Greater(t, power, 0.0)
	assert.InDelta(t, power, s.At(0.125, 0), 1e-9)
	assert.InDelta(t, 0.5, s.TotalPower(), 1e-9)
	assert.InDelta(t, 1.0/64, s.Resolution(), 1e-15)
	assert.Equal(t, 0.0, s.At(10, 10))
}

func TestPeriodogramValidation(t *testing.T) {
	_, err := Periodogram(context.Background(), waveField{0.1}, 0, 0, 1, 63)
	require.Error(t, err)
	_, err = Periodogram(context.Background(), waveField{0.1}, 0, 0, 0, 64)
	require.Error(t, err)
}

func TestPeriodogramOfIsotropicNoiseHasRing(t *testing.T) {
	if testing.Short() {
		t.Skip("samples a large patch")
	}
	f := defaultField(t)
	s, err := Periodogram(context.Background(), f, -128, -128, 2, 128)
	require.NoError(t, err)

	fx, fy, _ := s.Peak()
	assert.InDelta(t, 0.125, math.Hypot(fx, fy), 0.025)

	radii, power := s.RadialProfile(32)
	best := 0
	for i := range power {
		if power[i] > power[best] {
			best = i
		}
	}
	assert.InDelta(t, 0.125, radii[best], 0.025)
}
