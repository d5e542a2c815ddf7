package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gabornoise/internal/config"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the noise parameter presets",
	RunE:  runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)

	presetsCmd.Flags().Bool("yaml", false, "Print the presets as YAML")
	bindFlags(presetsCmd.Flags(), []flagBinding{{"presets.yaml", "yaml"}})
}

func runPresets(cmd *cobra.Command, args []string) error {
	presets, err := config.Load(viper.GetString("presets_file"))
	if err != nil {
		return err
	}

	if viper.GetBool("presets.yaml") {
		data, err := presets.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	t := newTable("light")
	t.AppendHeader(table.Row{"Name", "a", "F0", "ω0 (deg)", "Impulses", "Periodic", "Ramp", "Description"})
	for _, name := range presets.Names() {
		p := presets[name]
		periodic := "-"
		if p.Periodic {
			periodic = fmt.Sprint(p.Period)
		}
		t.AppendRow(table.Row{
			name,
			p.A,
			fmt.Sprintf("%g-%g", p.F0Min, p.F0Max),
			fmt.Sprintf("%g-%g", p.W0MinDeg, p.W0MaxDeg),
			p.Impulses,
			periodic,
			p.Ramp,
			p.Description,
		})
	}
	t.SetOutputMirror(os.Stdout)
	t.Render()
	return nil
}
