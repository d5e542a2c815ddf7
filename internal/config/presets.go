// Package config loads named noise parameter presets. A set of presets is
// embedded in the binary; a user file can add presets or override them.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/gabornoise/internal/gabor"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset is one named parameter set as written in YAML.
type Preset struct {
	Description string  `yaml:"description"`
	K           float64 `yaml:"k"`
	A           float64 `yaml:"a"`
	F0Min       float64 `yaml:"f0_min"`
	F0Max       float64 `yaml:"f0_max"`
	W0MinDeg    float64 `yaml:"w0_min_deg"`
	W0MaxDeg    float64 `yaml:"w0_max_deg"`
	Impulses    float64 `yaml:"impulses"`
	Offset      uint32  `yaml:"offset"`
	Periodic    bool    `yaml:"periodic"`
	Period      uint32  `yaml:"period"`
	Generator   string  `yaml:"generator"`
	Ramp        string  `yaml:"ramp"`
}

// Presets maps preset names to parameter sets.
type Presets map[string]Preset

// Load returns the embedded presets, merged with the presets of the YAML
// file at path when path is not empty. File presets replace embedded ones of
// the same name.
func Load(path string) (Presets, error) {
	p := Presets{}
	if err := yaml.Unmarshal(presetsYAML, &p); err != nil {
		return nil, fmt.Errorf("parsing embedded presets: %w", err)
	}
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets file: %w", err)
	}
	user := Presets{}
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parsing presets file %s: %w", path, err)
	}
	for name, preset := range user {
		p[name] = preset
	}
	return p, nil
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named preset.
func (p Presets) Lookup(name string) (Preset, error) {
	preset, ok := p[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(p.Names(), ", "))
	}
	return preset, nil
}

// NoiseConfig converts the preset to a validated field config.
func (p Preset) NoiseConfig() (gabor.Config, error) {
	c := gabor.Config{
		K:                 p.K,
		A:                 p.A,
		F0Min:             p.F0Min,
		F0Max:             p.F0Max,
		W0Min:             p.W0MinDeg * math.Pi / 180,
		W0Max:             p.W0MaxDeg * math.Pi / 180,
		ImpulsesPerKernel: p.Impulses,
		Offset:            p.Offset,
		Periodic:          p.Periodic,
		Period:            p.Period,
		Generator:         p.Generator,
	}
	if c.Period == 0 {
		c.Period = gabor.DefaultPeriod
	}
	if c.Generator == "" {
		c.Generator = gabor.GeneratorClassic
	}
	if err := c.Validate(); err != nil {
		return gabor.Config{}, err
	}
	return c, nil
}

// Marshal renders presets as YAML.
func (p Presets) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
