package mesh

import (
	"context"
	"fmt"
	"image/color"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/MeKo-Tech/gabornoise/internal/colorramp"
	"github.com/MeKo-Tech/gabornoise/internal/gabor"
)

// Defaults of the reference scenes.
const (
	DefaultHeightAmplitude = 1.0 / 20
	DefaultPlanarScale     = 100.0
	DefaultSurfaceScale    = 500.0
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// HeightOptions controls ApplyPlanarHeight.
type HeightOptions struct {
	// Amplitude multiplies intensity/scale; zero means DefaultHeightAmplitude.
	Amplitude float64
	// Scale maps mesh coordinates to field coordinates; zero means DefaultPlanarScale.
	Scale float64
	// Flat keeps the surface at z=0 and only colours it.
	Flat bool
	// Ramp colours the vertices; nil leaves them white.
	Ramp    *colorramp.Ramp
	Workers int
}

// ApplyPlanarHeight displaces the vertices of a z=0 mesh by the planar field
// evaluated at (Scale·x, Scale·y) and recomputes the normals.
func ApplyPlanarHeight(ctx context.Context, m *Mesh, f *gabor.PlanarField, opts HeightOptions) error {
	if opts.Scale == 0 {
		opts.Scale = DefaultPlanarScale
	}
	if opts.Amplitude == 0 {
		opts.Amplitude = DefaultHeightAmplitude
	}
	scale := f.Scale()
	m.Colors = make([]color.RGBA, len(m.Positions))

	err := parallel(ctx, len(m.Positions), opts.Workers, func(i int) {
		p := m.Positions[i]
		v := f.Intensity(opts.Scale*p.X, opts.Scale*p.Y)
		rel := 0.0
		if scale > 0 {
			rel = v / scale
		}
		if opts.Flat {
			m.Positions[i].Z = 0
		} else {
			m.Positions[i].Z = opts.Amplitude * rel
		}
		m.Colors[i] = white
		if opts.Ramp != nil {
			m.Colors[i] = opts.Ramp.RGBA(0.5 + rel)
		}
	})
	if err != nil {
		return err
	}
	m.ComputeNormals()
	return nil
}

// SurfaceCalibrationSide is the sample grid side used to calibrate the
// display scale of surface noise.
const SurfaceCalibrationSide = 32

// ColorBySurface colours every vertex with the surface field evaluated at
// Scale·position and the vertex normal, normalized by the field's
// calibrated scale.
func ColorBySurface(ctx context.Context, m *Mesh, f *gabor.SurfaceField, scale float64, ramp *colorramp.Ramp, workers int) error {
	if len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("mesh has %d normals for %d positions", len(m.Normals), len(m.Positions))
	}
	if ramp == nil {
		ramp = colorramp.Default()
	}
	if scale == 0 {
		scale = DefaultSurfaceScale
	}
	display := f.CalibratedScale(SurfaceCalibrationSide)
	m.Colors = make([]color.RGBA, len(m.Positions))
	return parallel(ctx, len(m.Positions), workers, func(i int) {
		m.Colors[i] = ramp.RGBA(f.NormalizedBy(r3.Scale(scale, m.Positions[i]), m.Normals[i], display))
	})
}

// ColorByUV colours every vertex with the planar field evaluated at
// Scale·uv, treating the texture coordinates as a flat map of the surface.
func ColorByUV(ctx context.Context, m *Mesh, f *gabor.PlanarField, scale float64, ramp *colorramp.Ramp, workers int) error {
	if len(m.UVs) != len(m.Positions) {
		return fmt.Errorf("mesh has %d uvs for %d positions", len(m.UVs), len(m.Positions))
	}
	if ramp == nil {
		ramp = colorramp.Default()
	}
	if scale == 0 {
		scale = DefaultSurfaceScale
	}
	m.Colors = make([]color.RGBA, len(m.Positions))
	return parallel(ctx, len(m.Positions), workers, func(i int) {
		uv := m.UVs[i]
		m.Colors[i] = ramp.RGBA(f.Normalized(scale*uv[0], scale*uv[1]))
	})
}

// parallel calls fn for every index in [0, n) split into contiguous chunks.
func parallel(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if n == 0 {
		return ctx.Err()
	}
	chunk := (n + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%1024 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				fn(i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
