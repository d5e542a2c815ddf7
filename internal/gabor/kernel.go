// Package gabor implements sparse convolution (Gabor) noise: the kernel and its
// spectrum, planar and surface noise fields, and the analytic statistics used
// to normalize them.
package gabor

import "math"

// Kernel evaluates the Gabor kernel at (x, y): a Gaussian envelope of gain K and
// width a modulated by a plane wave of magnitude F0 and orientation w0.
func Kernel(K, a, F0, w0, x, y float64) float64 {
	gaussian := K * math.Exp(-math.Pi*a*a*(x*x+y*y))
	harmonic := math.Cos(2 * math.Pi * F0 * (x*math.Cos(w0) + y*math.Sin(w0)))
	return gaussian * harmonic
}

// KernelFourier returns the magnitude of the kernel's Fourier transform at
// frequency (fx, fy). The kernel is real, so the spectrum has two Gaussian
// lobes at ±(F0 cos w0, F0 sin w0).
func KernelFourier(K, a, F0, w0, fx, fy float64) float64 {
	mx := F0 * math.Cos(w0)
	my := F0 * math.Sin(w0)
	s := math.Pi / (a * a)
	pos := math.Exp(-((fx-mx)*(fx-mx) + (fy-my)*(fy-my)) * s)
	neg := math.Exp(-((fx+mx)*(fx+mx) + (fy+my)*(fy+my)) * s)
	return (pos + neg) * K / (2 * a * a)
}
