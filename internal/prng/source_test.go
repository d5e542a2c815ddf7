package prng

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIsMultiplicativeStep(t *testing.T) {
	seed := uint32(7)
	s := New(seed)
	got := s.Next()
	assert.Equal(t, seed*multiplier, got)
	assert.Equal(t, got, s.State())
	assert.Equal(t, got*multiplier, s.Next())
}

func TestZeroSeedIsFixedPoint(t *testing.T) {
	s := New(0)
	for i := 0; i < 10; i++ {
		require.Equal(t, uint32(0), s.Next())
	}
}

func TestSequencesAreDeterministic(t *testing.T) {
	for _, ctor := range []func(uint32) *Source{New, NewMixed} {
		a := ctor(12345)
		b := ctor(12345)
		for i := 0; i < 1000; i++ {
			require.Equal(t, a.Next(), b.Next())
		}
	}
}

func TestMixedDiffersFromClassic(t *testing.T) {
	a := New(99)
	b := NewMixed(99)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Next() == b.Next() {
			same++
		}
	}
	assert.Less(t, same, 5)
}

func TestUniformRange(t *testing.T) {
	s := New(2024)
	sum := 0.0
	const n = 100000
	for i := 0; i < n; i++ {
		u := s.Uniform(-1, 1)
		require.GreaterOrEqual(t, u, -1.0)
		require.LessOrEqual(t, u, 1.0)
		sum += u
	}
	assert.InDelta(t, 0, sum/n, 0.02)
}

func TestUniform01Bounds(t *testing.T) {
	s := NewMixed(3)
	for i := 0; i < 10000; i++ {
		u := s.Uniform01()
		require.True(t, u >= 0 && u <= 1, "uniform out of range: %v", u)
	}
}

func TestPoissonZeroMean(t *testing.T) {
	s := New(11)
	before := s.State()
	assert.Equal(t, uint32(0), s.Poisson(0))
	assert.Equal(t, uint32(0), s.Poisson(-3))
	assert.Equal(t, before, s.State(), "zero mean must not consume draws")
}

func TestPoissonMean(t *testing.T) {
	tests := []struct {
		name string
		src  *Source
	}{
		{"classic", New(1)},
		{"mixed", NewMixed(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const draws = 100000
			const mean = 10.0
			sum := 0.0
			sumSq := 0.0
			for i := 0; i < draws; i++ {
				v := float64(tt.src.Poisson(mean))
				sum += v
				sumSq += v * v
			}
			avg := sum / draws
			variance := sumSq/draws - avg*avg
			assert.InDelta(t, mean, avg, 0.1)
			assert.InDelta(t, mean, variance, 0.5)
		})
	}
}

func TestPoissonLargeMeanTerminates(t *testing.T) {
	s := New(5)
	n := s.Poisson(200)
	assert.InDelta(t, 200, float64(n), 6*math.Sqrt(200))
}

func TestUniform01ReachesOne(t *testing.T) {
	// The inverse of the multiplier mod 2^32 seeds a state that steps to MaxUint32.
	inv := uint32(1)
	for i := 0; i < 5; i++ {
		inv *= 2 - multiplier*inv
	}
	require.Equal(t, uint32(1), inv*multiplier)
	s := New(inv * math.MaxUint32)
	assert.Equal(t, 1.0, s.Uniform01())
}

func TestPoissonSmallMeanIsSingleProduct(t *testing.T) {
	// Reference draw: one product of uniforms against e^-mean.
	reference := func(s *Source, mean float64) uint32 {
		g := math.Exp(-mean)
		var n uint32
		for u := s.Uniform01(); u > g; u *= s.Uniform01() {
			n++
		}
		return n
	}
	for _, mean := range []float64{0.5, 20, 300, maxPoissonChunk} {
		a, b := New(77), New(77)
		for i := 0; i < 50; i++ {
			require.Equal(t, reference(b, mean), a.Poisson(mean), "mean %v draw %d", mean, i)
		}
		assert.Equal(t, b.State(), a.State())
	}
}

func TestPoissonHugeMeanDoesNotSaturate(t *testing.T) {
	for _, mean := range []float64{800, 1500, 5000} {
		s := New(12345)
		const draws = 2000
		sum := 0.0
		for i := 0; i < draws; i++ {
			sum += float64(s.Poisson(mean))
		}
		avg := sum / draws
		// Standard error is sqrt(mean/draws); allow six of them.
		assert.InDelta(t, mean, avg, 6*math.Sqrt(mean/draws), "mean %v", mean)
	}
}
