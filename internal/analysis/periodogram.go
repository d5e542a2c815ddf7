package analysis

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum is a periodogram estimate of a field's power spectral density on
// a centred N×N frequency grid. Row r and column c hold the power at
// (Frequency(c), Frequency(r)).
type Spectrum struct {
	N     int
	Step  float64
	Power []float64
}

// Periodogram samples an n×n patch with the given spacing starting at
// (originX, originY), removes the patch mean and returns |FFT|² scaled so
// that it estimates the continuous power spectrum of the field.
func Periodogram(ctx context.Context, f Field, originX, originY, step float64, n int) (*Spectrum, error) {
	if n < 2 || n%2 != 0 {
		return nil, fmt.Errorf("periodogram size must be even and at least 2, got %d", n)
	}
	if step <= 0 {
		return nil, fmt.Errorf("sample step must be positive, got %v", step)
	}

	values := make([]float64, n*n)
	g, gctx := errgroup.WithContext(ctx)
	for r := 0; r < n; r++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			y := originY + float64(r)*step
			for c := 0; c < n; c++ {
				values[r*n+c] = f.Intensity(originX+float64(c)*step, y)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	floats.AddConst(-stat.Mean(values, nil), values)

	grid := make([]complex128, n*n)
	for i, v := range values {
		grid[i] = complex(v, 0)
	}
	fft2(grid, n)

	s := &Spectrum{N: n, Step: step, Power: make([]float64, n*n)}
	norm := step * step / float64(n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := grid[r*n+c]
			p := (real(v)*real(v) + imag(v)*imag(v)) * norm
			s.Power[shift(r, n)*n+shift(c, n)] = p
		}
	}
	return s, nil
}

// fft2 transforms a row-major n×n grid in place.
func fft2(grid []complex128, n int) {
	fft := fourier.NewCmplxFFT(n)
	buf := make([]complex128, n)
	for r := 0; r < n; r++ {
		row := grid[r*n : (r+1)*n]
		copy(row, fft.Coefficients(buf, row))
	}
	col := make([]complex128, n)
	for c := 0; c < n; c++ {
		for r := 0; r < n; r++ {
			col[r] = grid[r*n+c]
		}
		fft.Coefficients(buf, col)
		for r := 0; r < n; r++ {
			grid[r*n+c] = buf[r]
		}
	}
}

// shift moves FFT index k to its position in the centred grid.
func shift(k, n int) int { return (k + n/2) % n }

// Resolution is the spacing of the frequency grid.
func (s *Spectrum) Resolution() float64 { return 1 / (float64(s.N) * s.Step) }

// Frequency returns the frequency of centred grid index i.
func (s *Spectrum) Frequency(i int) float64 {
	return float64(i-s.N/2) * s.Resolution()
}

// At returns the power of the bin nearest to (fx, fy), or zero outside the grid.
func (s *Spectrum) At(fx, fy float64) float64 {
	c := int(math.Round(fx/s.Resolution())) + s.N/2
	r := int(math.Round(fy/s.Resolution())) + s.N/2
	if c < 0 || c >= s.N || r < 0 || r >= s.N {
		return 0
	}
	return s.Power[r*s.N+c]
}

// TotalPower integrates the spectrum over the frequency grid. By Parseval it
// equals the variance of the sampled patch.
func (s *Spectrum) TotalPower() float64 {
	df := s.Resolution()
	return floats.Sum(s.Power) * df * df
}

// Peak returns the frequency of the strongest non-DC bin.
func (s *Spectrum) Peak() (fx, fy, power float64) {
	for r := 0; r < s.N; r++ {
		for c := 0; c < s.N; c++ {
			if r == s.N/2 && c == s.N/2 {
				continue
			}
			if p := s.Power[r*s.N+c]; p > power {
				fx, fy, power = s.Frequency(c), s.Frequency(r), p
			}
		}
	}
	return fx, fy, power
}

// RadialProfile averages the power over bins annuli of equal width up to
// the Nyquist frequency. It returns the annulus centres and mean powers;
// empty annuli report zero.
func (s *Spectrum) RadialProfile(bins int) (radii, power []float64) {
	nyquist := 0.5 / s.Step
	width := nyquist / float64(bins)
	radii = make([]float64, bins)
	power = make([]float64, bins)
	counts := make([]int, bins)
	for r := 0; r < s.N; r++ {
		for c := 0; c < s.N; c++ {
			rho := math.Hypot(s.Frequency(c), s.Frequency(r))
			b := int(rho / width)
			if b >= bins {
				continue
			}
			power[b] += s.Power[r*s.N+c]
			counts[b]++
		}
	}
	for b := range power {
		radii[b] = (float64(b) + 0.5) * width
		if counts[b] > 0 {
			power[b] /= float64(counts[b])
		}
	}
	return radii, power
}
