package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gabornoise/internal/render"
)

var spectrumCmd = &cobra.Command{
	Use:   "spectrum",
	Short: "Render the analytic power spectrum",
	Long: `Render the power spectrum of the field centred on zero frequency, with fx to
the right and fy upwards. Pixel p shows frequency (p + 0.5 − size/2)·2·extent/size.
Power is multiplied by --gain and clamped, or scaled to the peak with --normalize.`,
	RunE: runSpectrum,
}

func init() {
	rootCmd.AddCommand(spectrumCmd)

	f := spectrumCmd.Flags()
	f.StringP("output", "o", "spectrum.png", "Output image path")
	f.Int("size", 256, "Image width and height in pixels")
	f.Float64("extent", render.DefaultSpectrumExtent, "Frequency at the image border")
	f.Float64("gain", 1, "Power multiplier before clamping")
	f.Bool("normalize", false, "Scale the peak power to white")
	f.Bool("surface", false, "Show the spectrum of the surface field (isotropic at f0-min)")
	f.IntP("workers", "w", 0, "Rendering goroutines (default: GOMAXPROCS)")

	bindFlags(f, []flagBinding{
		{"spectrum.output", "output"},
		{"spectrum.size", "size"},
		{"spectrum.extent", "extent"},
		{"spectrum.gain", "gain"},
		{"spectrum.normalize", "normalize"},
		{"spectrum.surface", "surface"},
		{"spectrum.workers", "workers"},
	})
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	cfg, ramp, err := noiseSettings()
	if err != nil {
		return err
	}
	field, err := spectralField(cfg, viper.GetBool("spectrum.surface"))
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	output := viper.GetString("spectrum.output")
	img, err := render.SpectrumImage(ctx, field, render.SpectrumOptions{
		Size:      viper.GetInt("spectrum.size"),
		Extent:    viper.GetFloat64("spectrum.extent"),
		Gain:      viper.GetFloat64("spectrum.gain"),
		Normalize: viper.GetBool("spectrum.normalize"),
		Options:   render.Options{Ramp: ramp, Workers: viper.GetInt("spectrum.workers")},
	})
	if err != nil {
		return fmt.Errorf("failed to render spectrum: %w", err)
	}
	if err := render.Save(output, img); err != nil {
		return err
	}
	logger.Info("Spectrum image written", "path", output)
	return nil
}
