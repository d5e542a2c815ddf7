package gabor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// basisEpsilon is the distance below which a basis candidate is considered
// to coincide with the plane point.
const basisEpsilon = 1e-2

// SurfaceField evaluates isotropic sparse convolution noise on points of an
// arbitrary surface. Impulses live in a 3D lattice and are projected onto the
// tangent plane of the query point before the 2D kernel is applied.
type SurfaceField struct {
	cfg             Config
	kernelRadius    float64
	impulsesPerCell float64
	variance        float64
}

// NewSurfaceField builds a surface field. Only F0Min is used as the frequency
// magnitude; orientations always cover the full circle.
func NewSurfaceField(cfg Config) (*SurfaceField, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid noise config: %w", err)
	}
	cfg.F0Max = cfg.F0Min
	cfg.W0Min = 0
	cfg.W0Max = 2 * math.Pi

	r := cfg.KernelRadius()
	return &SurfaceField{
		cfg:             cfg,
		kernelRadius:    r,
		impulsesPerCell: cfg.ImpulseDensity() * r * r,
		variance:        Variance(cfg),
	}, nil
}

// Config returns the isotropic parameters the field uses.
func (f *SurfaceField) Config() Config { return f.cfg }

// Intensity evaluates the noise at surface point p with surface normal n.
// A zero normal yields zero.
func (f *SurfaceField) Intensity(p, n r3.Vec) float64 {
	if r3.Norm(n) == 0 {
		return 0
	}
	n = r3.Unit(n)

	q := r3.Scale(1/f.kernelRadius, p)
	cell := r3.Vec{X: math.Floor(q.X), Y: math.Floor(q.Y), Z: math.Floor(q.Z)}
	frac := r3.Sub(q, cell)
	// The in-plane frame depends only on the normal.
	u1, u2 := PlaneBasis(r3.Vec{}, n)

	i0, j0, k0 := int(cell.X), int(cell.Y), int(cell.Z)
	sum := 0.0
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			for dk := -1; dk <= 1; dk++ {
				local := r3.Sub(frac, r3.Vec{X: float64(di), Y: float64(dj), Z: float64(dk)})
				sum += f.cellNoise(i0+di, j0+dj, k0+dk, local, n, u1, u2)
			}
		}
	}
	return sum
}

func (f *SurfaceField) cellNoise(i, j, k int, x, n, u1, u2 r3.Vec) float64 {
	c := &f.cfg
	rng := c.source(c.CellSeed3(i, j, k))

	count := rng.Poisson(f.impulsesPerCell)
	noise := 0.0
	for m := uint32(0); m < count; m++ {
		pi := r3.Vec{X: rng.Uniform01(), Y: rng.Uniform01(), Z: rng.Uniform01()}
		wi := rng.Uniform(-1, 1)
		w0i := rng.Uniform(0, 2*math.Pi)

		if r3.Norm2(r3.Sub(x, pi)) >= 1 {
			continue
		}
		proj := ProjectToPlane(pi, x, n)
		attenuation := 1 - r3.Norm(r3.Sub(pi, proj))

		d := r3.Sub(x, proj)
		du := r3.Dot(d, u1) * f.kernelRadius
		dv := r3.Dot(d, u2) * f.kernelRadius
		noise += wi * attenuation * Kernel(c.K, c.A, c.F0Min, w0i, du, dv)
	}
	return noise
}

// Variance returns the closed-form variance at the field's frequency.
func (f *SurfaceField) Variance() float64 { return f.variance }

// Scale returns the display normalization 6·sqrt(variance). Variance is the
// planar closed form; the tangent-plane attenuation makes the real spread on
// a surface smaller (about two thirds of it), see CalibratedScale.
func (f *SurfaceField) Scale() float64 { return displayScale(f.variance) }

// CalibratedScale returns 6·sqrt of the empirical variance of side×side
// samples on a flat patch, spaced three kernel radii apart. The result is
// deterministic for a given config. It falls back to Scale when the patch
// has no spread.
func (f *SurfaceField) CalibratedScale(side int) float64 {
	if side < 2 {
		return f.Scale()
	}
	step := 3 * f.kernelRadius
	values := make([]float64, 0, side*side)
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			p := r3.Vec{X: float64(i)*step + 0.37*f.kernelRadius, Y: float64(j)*step + 0.61*f.kernelRadius, Z: 0.53 * f.kernelRadius}
			values = append(values, f.Intensity(p, r3.Vec{Z: 1}))
		}
	}
	v := stat.Variance(values, nil)
	if !(v > 0) {
		return f.Scale()
	}
	return displayScale(v)
}

// Normalized maps the intensity at p into [0,1] around 0.5 using Scale.
func (f *SurfaceField) Normalized(p, n r3.Vec) float64 {
	return normalize(f.Intensity(p, n), f.Scale())
}

// NormalizedBy is Normalized with an explicit display scale.
func (f *SurfaceField) NormalizedBy(p, n r3.Vec, scale float64) float64 {
	return normalize(f.Intensity(p, n), scale)
}

// PowerSpectrum returns the expected power at frequency (fx, fy) in the tangent plane.
func (f *SurfaceField) PowerSpectrum(fx, fy float64) float64 {
	return PowerSpectrum(f.cfg, fx, fy)
}

// ProjectToPlane projects point onto the plane through planePoint with the given normal.
func ProjectToPlane(point, planePoint, normal r3.Vec) r3.Vec {
	alpha := r3.Dot(r3.Sub(planePoint, point), normal) / r3.Dot(normal, normal)
	return r3.Add(point, r3.Scale(alpha, normal))
}

// PlaneBasis returns an orthonormal basis (u1, u2) of the plane through
// planePoint with the given normal. u1 points from planePoint towards a point
// of the plane picked on the axis where the normal is largest; u2 = n × u1.
func PlaneBasis(planePoint, normal r3.Vec) (r3.Vec, r3.Vec) {
	n := r3.Unit(normal)
	d := r3.Dot(planePoint, n)

	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	var first, second r3.Vec
	switch {
	case ax >= ay && ax >= az:
		first = r3.Vec{X: (d - n.Y) / n.X, Y: 1, Z: 0}
		second = r3.Vec{X: (d - n.Z) / n.X, Y: 0, Z: 1}
	case ay >= az:
		first = r3.Vec{X: 1, Y: (d - n.X) / n.Y, Z: 0}
		second = r3.Vec{X: 0, Y: (d - n.Z) / n.Y, Z: 1}
	default:
		first = r3.Vec{X: 1, Y: 0, Z: (d - n.X) / n.Z}
		second = r3.Vec{X: 0, Y: 1, Z: (d - n.Y) / n.Z}
	}

	candidate := first
	if r3.Norm(r3.Sub(candidate, planePoint)) < basisEpsilon {
		candidate = second
	}

	u1 := r3.Unit(r3.Sub(candidate, planePoint))
	u2 := r3.Cross(n, u1)
	return u1, u2
}
