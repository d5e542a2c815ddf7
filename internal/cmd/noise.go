package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gabornoise/internal/colorramp"
	"github.com/MeKo-Tech/gabornoise/internal/config"
	"github.com/MeKo-Tech/gabornoise/internal/gabor"
	"github.com/MeKo-Tech/gabornoise/internal/render"
)

// addNoiseFlags registers the field parameters shared by every command.
// Explicitly set values override the selected preset.
func addNoiseFlags(fs *pflag.FlagSet) {
	d := gabor.DefaultConfig()
	fs.String("preset", "isotropic", "Named parameter preset (see 'gabornoise presets')")
	fs.String("presets-file", "", "YAML file with additional presets")
	fs.Float64("k", d.K, "Kernel magnitude K")
	fs.Float64("a", d.A, "Gaussian bandwidth a (kernel radius is 1/a)")
	fs.Float64("f0-min", d.F0Min, "Minimum kernel frequency")
	fs.Float64("f0-max", d.F0Max, "Maximum kernel frequency")
	fs.Float64("w0-min", 0, "Minimum kernel orientation in degrees")
	fs.Float64("w0-max", 360, "Maximum kernel orientation in degrees")
	fs.Float64("impulses", d.ImpulsesPerKernel, "Expected impulses per kernel footprint")
	fs.Uint32("offset", 0, "Seed offset added to every cell seed")
	fs.Bool("periodic", false, "Repeat the noise every --period cells")
	fs.Uint32("period", gabor.DefaultPeriod, "Tiling period in cells")
	fs.String("generator", gabor.GeneratorClassic, "Random generator: classic or mixed")
	fs.String("ramp", "", "Colour ramp: a name ("+strings.Join(colorramp.Names(), ", ")+") or comma-separated CSS colours; empty uses the preset's")

	bindFlags(fs, []flagBinding{
		{"preset", "preset"},
		{"presets_file", "presets-file"},
		{"noise.k", "k"},
		{"noise.a", "a"},
		{"noise.f0_min", "f0-min"},
		{"noise.f0_max", "f0-max"},
		{"noise.w0_min", "w0-min"},
		{"noise.w0_max", "w0-max"},
		{"noise.impulses", "impulses"},
		{"noise.offset", "offset"},
		{"noise.periodic", "periodic"},
		{"noise.period", "period"},
		{"noise.generator", "generator"},
		{"ramp", "ramp"},
	})
}

// loadPreset returns the selected preset with explicit overrides applied.
func loadPreset() (config.Preset, error) {
	presets, err := config.Load(viper.GetString("presets_file"))
	if err != nil {
		return config.Preset{}, err
	}
	p, err := presets.Lookup(viper.GetString("preset"))
	if err != nil {
		return config.Preset{}, err
	}

	floats := []struct {
		dst *float64
		key string
	}{
		{&p.K, "noise.k"},
		{&p.A, "noise.a"},
		{&p.F0Min, "noise.f0_min"},
		{&p.F0Max, "noise.f0_max"},
		{&p.W0MinDeg, "noise.w0_min"},
		{&p.W0MaxDeg, "noise.w0_max"},
		{&p.Impulses, "noise.impulses"},
	}
	for _, f := range floats {
		if viper.IsSet(f.key) {
			*f.dst = viper.GetFloat64(f.key)
		}
	}
	if viper.IsSet("noise.offset") {
		p.Offset = viper.GetUint32("noise.offset")
	}
	if viper.IsSet("noise.periodic") {
		p.Periodic = viper.GetBool("noise.periodic")
	}
	if viper.IsSet("noise.period") {
		p.Period = viper.GetUint32("noise.period")
	}
	if viper.IsSet("noise.generator") {
		p.Generator = viper.GetString("noise.generator")
	}
	if viper.IsSet("ramp") {
		p.Ramp = viper.GetString("ramp")
	}
	return p, nil
}

// noiseSettings resolves the field config and colour ramp for a command.
// A nil ramp renders grayscale.
func noiseSettings() (gabor.Config, *colorramp.Ramp, error) {
	p, err := loadPreset()
	if err != nil {
		return gabor.Config{}, nil, err
	}
	cfg, err := p.NoiseConfig()
	if err != nil {
		return gabor.Config{}, nil, fmt.Errorf("invalid noise parameters: %w", err)
	}
	var ramp *colorramp.Ramp
	if p.Ramp != "" {
		if ramp, err = colorramp.Parse(p.Ramp); err != nil {
			return gabor.Config{}, nil, err
		}
	}
	logger.Debug("Noise parameters",
		"k", cfg.K, "a", cfg.A,
		"f0", fmt.Sprintf("%g-%g", cfg.F0Min, cfg.F0Max),
		"w0_deg", fmt.Sprintf("%g-%g", cfg.W0Min*180/math.Pi, cfg.W0Max*180/math.Pi),
		"impulses", cfg.ImpulsesPerKernel,
		"periodic", cfg.Periodic,
		"generator", cfg.Generator,
	)
	return cfg, ramp, nil
}

func planarField() (*gabor.PlanarField, *colorramp.Ramp, error) {
	cfg, ramp, err := noiseSettings()
	if err != nil {
		return nil, nil, err
	}
	f, err := gabor.NewPlanarField(cfg)
	return f, ramp, err
}

// spectralField builds the planar field, or the surface field when surface
// is set.
func spectralField(cfg gabor.Config, surface bool) (render.Spectral, error) {
	if surface {
		return gabor.NewSurfaceField(cfg)
	}
	return gabor.NewPlanarField(cfg)
}
