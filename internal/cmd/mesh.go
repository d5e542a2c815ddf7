package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gabornoise/internal/colorramp"
	"github.com/MeKo-Tech/gabornoise/internal/gabor"
	"github.com/MeKo-Tech/gabornoise/internal/mesh"
)

var meshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Write a noise shaded mesh as OBJ",
	Long: `Build a grid, sphere or cylinder and shade it with noise:

  grid      displaced by the planar field (--flat only colours it)
  sphere    coloured by the surface field at each vertex and normal
  cylinder  same as sphere

With --mode uv the sphere and cylinder are instead coloured by the planar field
over their texture coordinates. Vertex colours are written as OBJ "v x y z r g b".`,
	RunE: runMesh,
}

func init() {
	rootCmd.AddCommand(meshCmd)

	f := meshCmd.Flags()
	f.StringP("output", "o", "noise.obj", "Output OBJ path")
	f.String("shape", "grid", "Mesh shape: grid, sphere or cylinder")
	f.String("mode", "surface", "Colouring of sphere and cylinder: surface or uv")
	f.Int("resolution", 128, "Vertices along each mesh axis")
	f.Float64("scale", 0, "Mesh to field coordinate scale (default: 100 for grid, 500 otherwise)")
	f.Float64("amplitude", mesh.DefaultHeightAmplitude, "Grid height per display scale")
	f.Bool("flat", false, "Keep the grid flat and only colour it")
	f.IntP("workers", "w", 0, "Shading goroutines (default: GOMAXPROCS)")

	bindFlags(f, []flagBinding{
		{"mesh.output", "output"},
		{"mesh.shape", "shape"},
		{"mesh.mode", "mode"},
		{"mesh.resolution", "resolution"},
		{"mesh.scale", "scale"},
		{"mesh.amplitude", "amplitude"},
		{"mesh.flat", "flat"},
		{"mesh.workers", "workers"},
	})
}

func runMesh(cmd *cobra.Command, args []string) error {
	cfg, ramp, err := noiseSettings()
	if err != nil {
		return err
	}
	n := viper.GetInt("mesh.resolution")
	if n < 2 {
		return fmt.Errorf("mesh resolution must be at least 2, got %d", n)
	}
	scale := viper.GetFloat64("mesh.scale")
	workers := viper.GetInt("mesh.workers")

	ctx, stop := signalContext()
	defer stop()

	var m mesh.Mesh
	switch shape := viper.GetString("mesh.shape"); shape {
	case "grid":
		field, err := gabor.NewPlanarField(cfg)
		if err != nil {
			return err
		}
		m = mesh.Grid(n, 1)
		err = mesh.ApplyPlanarHeight(ctx, &m, field, mesh.HeightOptions{
			Amplitude: viper.GetFloat64("mesh.amplitude"),
			Scale:     scale,
			Flat:      viper.GetBool("mesh.flat"),
			Ramp:      ramp,
			Workers:   workers,
		})
		if err != nil {
			return err
		}
	case "sphere", "cylinder":
		if shape == "sphere" {
			m = mesh.Sphere(1, n, n/2)
		} else {
			m = mesh.Cylinder(0.5, 1, n, n/2)
		}
		if err := shadeSolid(ctx, &m, cfg, scale, workers, ramp); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid shape %q: must be grid, sphere or cylinder", shape)
	}

	output := viper.GetString("mesh.output")
	if err := mesh.SaveOBJ(output, m); err != nil {
		return err
	}
	logger.Info("Mesh written", "path", output, "vertices", len(m.Positions), "triangles", len(m.Triangles))
	return nil
}

func shadeSolid(ctx context.Context, m *mesh.Mesh, cfg gabor.Config, scale float64, workers int, ramp *colorramp.Ramp) error {
	switch mode := viper.GetString("mesh.mode"); mode {
	case "surface":
		field, err := gabor.NewSurfaceField(cfg)
		if err != nil {
			return err
		}
		return mesh.ColorBySurface(ctx, m, field, scale, ramp, workers)
	case "uv":
		field, err := gabor.NewPlanarField(cfg)
		if err != nil {
			return err
		}
		return mesh.ColorByUV(ctx, m, field, scale, ramp, workers)
	default:
		return fmt.Errorf("invalid mode %q: must be surface or uv", mode)
	}
}
