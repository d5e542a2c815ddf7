package gabor

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

const (
	// rangeEpsilon is the width below which a parameter range is treated as a
	// single value and integration is replaced by a closed form.
	rangeEpsilon = 1e-2

	integrationSteps       = 100
	doubleIntegrationSteps = 30
)

// Variance returns the variance of the zero-mean field described by cfg,
// averaged over the frequency magnitude range.
func Variance(cfg Config) float64 {
	span := cfg.F0Max - cfg.F0Min
	if span <= rangeEpsilon {
		return varianceAt(cfg, cfg.F0Min)
	}

	nodes := spanNodes(integrationSteps, cfg.F0Min, cfg.F0Max)
	values := sampled(nodes, func(F0 float64) float64 { return varianceAt(cfg, F0) })
	return integrate.Trapezoidal(nodes, values) / span
}

// varianceAt is the closed-form variance for a single frequency magnitude.
func varianceAt(cfg Config, F0 float64) float64 {
	a2 := cfg.A * cfg.A
	return cfg.ImpulseDensity() * cfg.K * cfg.K / (12 * a2) * (1 + math.Exp(-2*math.Pi*F0*F0/a2))
}

// PowerSpectrum returns the expected squared magnitude of the field's Fourier
// transform at (fx, fy), averaged over the frequency parameter ranges.
func PowerSpectrum(cfg Config, fx, fy float64) float64 {
	fSpan := cfg.F0Max - cfg.F0Min
	wSpan := cfg.W0Max - cfg.W0Min
	scale := cfg.ImpulseDensity() / 3

	power := func(F0, w0 float64) float64 {
		g := KernelFourier(cfg.K, cfg.A, F0, w0, fx, fy)
		return g * g
	}

	switch {
	case fSpan <= rangeEpsilon && wSpan <= rangeEpsilon:
		return power(cfg.F0Min, cfg.W0Min) * scale

	case fSpan <= rangeEpsilon:
		w := spanNodes(integrationSteps, cfg.W0Min, cfg.W0Max)
		return integrate.Trapezoidal(w, sampled(w, func(w0 float64) float64 {
			return power(cfg.F0Min, w0)
		})) * scale / wSpan

	case wSpan <= rangeEpsilon:
		f := spanNodes(integrationSteps, cfg.F0Min, cfg.F0Max)
		return integrate.Trapezoidal(f, sampled(f, func(F0 float64) float64 {
			return power(F0, cfg.W0Min)
		})) * scale / fSpan

	default:
		f := spanNodes(doubleIntegrationSteps, cfg.F0Min, cfg.F0Max)
		w := spanNodes(doubleIntegrationSteps, cfg.W0Min, cfg.W0Max)
		inner := sampled(w, func(w0 float64) float64 {
			return integrate.Trapezoidal(f, sampled(f, func(F0 float64) float64 {
				return power(F0, w0)
			}))
		})
		return integrate.Trapezoidal(w, inner) * scale / (fSpan * wSpan)
	}
}

// spanNodes returns n evenly spaced nodes covering [lo, hi].
func spanNodes(n int, lo, hi float64) []float64 {
	return floats.Span(make([]float64, n), lo, hi)
}

func sampled(nodes []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(nodes))
	for i, x := range nodes {
		out[i] = fn(x)
	}
	return out
}
