package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gabornoise",
	Short: "Procedural Gabor noise generator",
	Long: `gabornoise evaluates sparse-convolution Gabor noise on the plane and on
surfaces. It renders noise and power spectrum images, checks the measured
variance against the analytic one, shades meshes, and builds or serves tile
pyramids of the noise plane.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	pf.Bool("verbose", false, "Enable verbose logging")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("log-file", "", "Write logs to this file with rotation instead of stderr")
	pf.Int("log-max-size", 100, "Maximum log file size in megabytes before rotation")
	pf.Int("log-max-backups", 3, "Number of rotated log files to keep")

	bindFlags(pf, []flagBinding{
		{"verbose", "verbose"},
		{"log-format", "log-format"},
		{"log-file", "log-file"},
		{"log-max-size", "log-max-size"},
		{"log-max-backups", "log-max-backups"},
	})

	addNoiseFlags(pf)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("GABORNOISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

type flagBinding struct {
	key  string
	flag string
}

func bindFlags(fs *pflag.FlagSet, bindings []flagBinding) {
	for _, b := range bindings {
		if err := viper.BindPFlag(b.key, fs.Lookup(b.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", b.flag, err))
		}
	}
}
