package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gabornoise/internal/analysis"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compare measured and analytic noise statistics",
	Long: `Sample the planar field at widely spaced points and compare the sample mean and
variance with the analytic variance. With --periodogram N an N×N patch is also
transformed and its total power and spectral peak are compared with the
analytic spectrum.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	f := statsCmd.Flags()
	f.Int("samples", 10000, "Number of sample points")
	f.Float64("spacing", 0, "Distance between sample points (default: three kernel radii)")
	f.Float64("jitter", 0.5, "Random displacement of each point as a fraction of the spacing")
	f.Uint32("seed", 1, "Seed of the jitter")
	f.Int("periodogram", 0, "Also compute an N×N periodogram (N even, 0 disables)")
	f.Float64("step", 1, "Sample step of the periodogram")
	f.String("style", "light", "Table style: default, light, rounded, double, bold")
	f.IntP("workers", "w", 0, "Sampling goroutines (default: GOMAXPROCS)")

	bindFlags(f, []flagBinding{
		{"stats.samples", "samples"},
		{"stats.spacing", "spacing"},
		{"stats.jitter", "jitter"},
		{"stats.seed", "seed"},
		{"stats.periodogram", "periodogram"},
		{"stats.step", "step"},
		{"stats.style", "style"},
		{"stats.workers", "workers"},
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	field, _, err := planarField()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := analysis.Measure(ctx, field, analysis.SampleOptions{
		Samples: viper.GetInt("stats.samples"),
		Spacing: viper.GetFloat64("stats.spacing"),
		Jitter:  viper.GetFloat64("stats.jitter"),
		Seed:    viper.GetUint32("stats.seed"),
		Workers: viper.GetInt("stats.workers"),
	})
	if err != nil {
		return fmt.Errorf("failed to sample field: %w", err)
	}

	t := newTable(viper.GetString("stats.style"))
	t.SetTitle("Gabor noise statistics")
	t.AppendHeader(table.Row{"Quantity", "Value"})
	t.AppendRows([]table.Row{
		{"samples", s.Samples},
		{"mean", s.Mean},
		{"variance (sample)", s.Variance},
		{"variance (analytic)", s.Analytic},
		{"relative error", fmt.Sprintf("%.2f%%", 100*s.RelativeError)},
		{"std dev", s.StdDev},
		{"min", s.Min},
		{"max", s.Max},
		{"display scale (6σ)", field.Scale()},
	})

	if n := viper.GetInt("stats.periodogram"); n > 0 {
		pg, err := analysis.Periodogram(ctx, field, 0, 0, viper.GetFloat64("stats.step"), n)
		if err != nil {
			return fmt.Errorf("failed to compute periodogram: %w", err)
		}
		fx, fy, peak := pg.Peak()
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"periodogram size", fmt.Sprintf("%d×%d", n, n)},
			{"periodogram total power", pg.TotalPower()},
			{"periodogram peak", fmt.Sprintf("(%.4f, %.4f) = %.4g", fx, fy, peak)},
			{"analytic power at peak", field.PowerSpectrum(fx, fy)},
		})
	}

	t.SetOutputMirror(os.Stdout)
	t.Render()
	return nil
}

func newTable(style string) table.Writer {
	t := table.NewWriter()
	switch style {
	case "light":
		t.SetStyle(table.StyleLight)
	case "rounded":
		t.SetStyle(table.StyleRounded)
	case "double":
		t.SetStyle(table.StyleDouble)
	case "bold":
		t.SetStyle(table.StyleBold)
	default:
		t.SetStyle(table.StyleDefault)
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return t
}
