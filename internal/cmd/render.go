package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gabornoise/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a noise image",
	Long: `Render the planar noise field into an image centred on a point of the plane.
Each pixel shows 0.5 + intensity/(6·σ) clamped to [0,1], in grayscale or through
a colour ramp. The output format follows the file extension (png, ppm, bmp, tiff).`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	f := renderCmd.Flags()
	f.StringP("output", "o", "noise.png", "Output image path")
	f.Int("size", 512, "Image width and height in pixels")
	f.Float64("units-per-pixel", 1, "Plane distance between pixel centres")
	f.Float64("center-x", 0, "Plane x coordinate of the image centre")
	f.Float64("center-y", 0, "Plane y coordinate of the image centre")
	f.Int("supersample", 1, "Render at this factor and box-filter down")
	f.IntP("workers", "w", 0, "Rendering goroutines (default: GOMAXPROCS)")

	bindFlags(f, []flagBinding{
		{"render.output", "output"},
		{"render.size", "size"},
		{"render.units_per_pixel", "units-per-pixel"},
		{"render.center_x", "center-x"},
		{"render.center_y", "center-y"},
		{"render.supersample", "supersample"},
		{"render.workers", "workers"},
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	field, ramp, err := planarField()
	if err != nil {
		return err
	}

	output := viper.GetString("render.output")
	region := render.CenteredRegion(
		viper.GetInt("render.size"),
		viper.GetFloat64("render.units_per_pixel"),
		viper.GetFloat64("render.center_x"),
		viper.GetFloat64("render.center_y"),
	)

	ctx, stop := signalContext()
	defer stop()

	start := time.Now()
	img, err := render.Render(ctx, field, region, render.Options{
		Ramp:        ramp,
		Supersample: viper.GetInt("render.supersample"),
		Workers:     viper.GetInt("render.workers"),
	})
	if err != nil {
		return fmt.Errorf("failed to render noise: %w", err)
	}
	if err := render.Save(output, img); err != nil {
		return err
	}

	logger.Info("Noise image written",
		"path", output,
		"size", region.Width,
		"variance", field.Variance(),
		"ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
