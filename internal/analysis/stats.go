// Package analysis measures noise fields empirically: sample statistics over
// widely spaced points and a periodogram of a sampled patch.
package analysis

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/gabornoise/internal/prng"
)

// Field is the part of a planar noise field the analysis needs.
type Field interface {
	Intensity(x, y float64) float64
	Variance() float64
	KernelRadius() float64
}

// SampleOptions controls where a field is sampled.
type SampleOptions struct {
	// Samples is the number of query points.
	Samples int
	// Spacing between grid points; zero means three kernel radii, which keeps
	// the cell neighbourhoods of different samples disjoint.
	Spacing float64
	// Jitter moves each point by up to this fraction of Spacing.
	Jitter float64
	// Seed drives the jitter.
	Seed uint32
	// Workers evaluating points concurrently; zero means GOMAXPROCS.
	Workers int
}

// Stats summarizes a sample of field intensities.
type Stats struct {
	Samples  int
	Mean     float64
	Variance float64
	StdDev   float64
	Min      float64
	Max      float64

	// Analytic is the variance the field reports for itself.
	Analytic float64
	// RelativeError is |Variance-Analytic|/Analytic, or zero when Analytic is zero.
	RelativeError float64
}

// Sample evaluates the field on a jittered grid and returns the intensities
// in grid order. The result does not depend on Workers.
func Sample(ctx context.Context, f Field, opts SampleOptions) ([]float64, error) {
	if opts.Samples <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", opts.Samples)
	}
	spacing := opts.Spacing
	if spacing <= 0 {
		spacing = 3 * f.KernelRadius()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	side := int(math.Ceil(math.Sqrt(float64(opts.Samples))))
	xs := make([]float64, opts.Samples)
	ys := make([]float64, opts.Samples)
	jitter := prng.NewMixed(opts.Seed)
	for k := range xs {
		xs[k] = float64(k%side)*spacing + jitter.Uniform01()*opts.Jitter*spacing
		ys[k] = float64(k/side)*spacing + jitter.Uniform01()*opts.Jitter*spacing
	}

	out := make([]float64, opts.Samples)
	g, ctx := errgroup.WithContext(ctx)
	chunk := (opts.Samples + workers - 1) / workers
	for start := 0; start < opts.Samples; start += chunk {
		end := min(start+chunk, opts.Samples)
		g.Go(func() error {
			for k := start; k < end; k++ {
				if k%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[k] = f.Intensity(xs[k], ys[k])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Measure samples the field and compares the empirical variance with the
// analytic one.
func Measure(ctx context.Context, f Field, opts SampleOptions) (Stats, error) {
	values, err := Sample(ctx, f, opts)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(values, f.Variance()), nil
}

// Summarize computes sample statistics of values against an analytic variance.
func Summarize(values []float64, analytic float64) Stats {
	s := Stats{Samples: len(values), Analytic: analytic}
	if len(values) == 0 {
		return s
	}
	s.Mean, s.Variance = stat.MeanVariance(values, nil)
	if len(values) == 1 {
		s.Variance = 0
	}
	s.StdDev = math.Sqrt(s.Variance)
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	if analytic != 0 {
		s.RelativeError = math.Abs(s.Variance-analytic) / analytic
	}
	return s
}
