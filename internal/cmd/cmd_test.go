package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gabornoise/internal/gabor"
	"github.com/MeKo-Tech/gabornoise/internal/pipeline"
	"github.com/MeKo-Tech/gabornoise/internal/render"
	"github.com/MeKo-Tech/gabornoise/internal/tile"
)

// setConfig overrides viper keys for the duration of a test.
func setConfig(t *testing.T, kv map[string]any) {
	t.Helper()
	for k, v := range kv {
		viper.Set(k, v)
	}
	t.Cleanup(func() {
		for k := range kv {
			viper.Set(k, nil)
		}
	})
}

func TestParseBBox(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    [4]float64
		wantErr bool
	}{
		{name: "valid bbox", input: "9.7,52.3,9.9,52.4", want: [4]float64{9.7, 52.3, 9.9, 52.4}},
		{name: "valid bbox with spaces", input: "9.7, 52.3, 9.9, 52.4", want: [4]float64{9.7, 52.3, 9.9, 52.4}},
		{name: "plane coordinates", input: "-512,-256,512,256", want: [4]float64{-512, -256, 512, 256}},
		{name: "too few values", input: "9.7,52.3,9.9", wantErr: true},
		{name: "too many values", input: "9.7,52.3,9.9,52.4,10.0", wantErr: true},
		{name: "invalid number", input: "abc,52.3,9.9,52.4", wantErr: true},
		{name: "minX >= maxX", input: "10.0,52.3,9.9,52.4", wantErr: true},
		{name: "minY >= maxY", input: "9.7,52.5,9.9,52.4", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBBox(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadPresetOverrides(t *testing.T) {
	setConfig(t, map[string]any{
		"preset":       "anisotropic",
		"noise.a":      0.1,
		"noise.w0_max": 90.0,
		"noise.offset": 9,
	})

	p, err := loadPreset()
	require.NoError(t, err)
	assert.Equal(t, 0.1, p.A)
	assert.Equal(t, 0.225, p.F0Min, "unset values come from the preset")
	assert.Equal(t, 45.0, p.W0MinDeg)
	assert.Equal(t, 90.0, p.W0MaxDeg)
	assert.Equal(t, uint32(9), p.Offset)
}

func TestNoiseSettings(t *testing.T) {
	t.Run("default preset", func(t *testing.T) {
		cfg, ramp, err := noiseSettings()
		require.NoError(t, err)
		want := gabor.DefaultConfig()
		assert.InDelta(t, want.W0Max, cfg.W0Max, 1e-12)
		cfg.W0Max = want.W0Max
		assert.Equal(t, want, cfg)
		assert.NotNil(t, ramp)
	})

	t.Run("ramp override", func(t *testing.T) {
		setConfig(t, map[string]any{"ramp": "black,white"})
		_, ramp, err := noiseSettings()
		require.NoError(t, err)
		assert.Equal(t, 2, ramp.Len())
	})

	t.Run("unknown preset", func(t *testing.T) {
		setConfig(t, map[string]any{"preset": "marble"})
		_, _, err := noiseSettings()
		assert.Error(t, err)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		setConfig(t, map[string]any{"noise.a": 0.0})
		_, _, err := noiseSettings()
		assert.Error(t, err)
	})

	t.Run("presets file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "presets.yaml")
		require.NoError(t, os.WriteFile(path, []byte("fine:\n  k: 2\n  a: 0.1\n  f0_min: 0.3\n  f0_max: 0.3\n  w0_max_deg: 360\n  impulses: 16\n"), 0o644))
		setConfig(t, map[string]any{"presets_file": path, "preset": "fine"})

		cfg, ramp, err := noiseSettings()
		require.NoError(t, err)
		assert.Equal(t, 2.0, cfg.K)
		assert.Equal(t, uint32(gabor.DefaultPeriod), cfg.Period)
		assert.Nil(t, ramp, "no ramp renders grayscale")
	})
}

func TestSpectralField(t *testing.T) {
	cfg := gabor.Anisotropic(1, 0.05, 0.2, 0.5, 16)

	planar, err := spectralField(cfg, false)
	require.NoError(t, err)
	surface, err := spectralField(cfg, true)
	require.NoError(t, err)

	// The surface field is isotropic, so its spectrum has power off the
	// planar field's orientation.
	fx, fy := 0.0, 0.2
	assert.Greater(t, surface.PowerSpectrum(fx, fy), planar.PowerSpectrum(fx, fy))
}

func TestSelectTiles(t *testing.T) {
	pyramid := tile.Pyramid{WorldSize: 64, TileSize: 8}

	t.Run("whole pyramid", func(t *testing.T) {
		setConfig(t, map[string]any{"tiles.zoom_min": 0, "tiles.zoom_max": 2})
		sel, err := selectTiles(pyramid)
		require.NoError(t, err)
		assert.Len(t, sel.tiles, 1+4+16)
		assert.Equal(t, tile.BoundBBox(tile.NewCoords(0, 0, 0).LonLat()), sel.bounds)
	})

	t.Run("single tile", func(t *testing.T) {
		setConfig(t, map[string]any{"tiles.tile": "z3_x2_y5"})
		sel, err := selectTiles(pyramid)
		require.NoError(t, err)
		assert.Equal(t, []tile.Coords{tile.NewCoords(3, 2, 5)}, sel.tiles)
		assert.Equal(t, 3, sel.zoomMin)
	})

	t.Run("tile outside pyramid", func(t *testing.T) {
		setConfig(t, map[string]any{"tiles.tile": "z1_x2_y0"})
		_, err := selectTiles(pyramid)
		assert.Error(t, err)
	})

	t.Run("plane bbox", func(t *testing.T) {
		setConfig(t, map[string]any{"tiles.zoom_min": 1, "tiles.zoom_max": 1, "tiles.plane_bbox": "1,1,10,10"})
		sel, err := selectTiles(pyramid)
		require.NoError(t, err)
		assert.Equal(t, []tile.Coords{tile.NewCoords(1, 1, 0)}, sel.tiles)
	})

	t.Run("lon lat bbox", func(t *testing.T) {
		setConfig(t, map[string]any{"tiles.zoom_min": 1, "tiles.zoom_max": 1, "tiles.bbox": "10,10,20,20"})
		sel, err := selectTiles(pyramid)
		require.NoError(t, err)
		assert.Equal(t, []tile.Coords{tile.NewCoords(1, 1, 0)}, sel.tiles)
		assert.Equal(t, [4]float64{10, 10, 20, 20}, sel.bounds)
	})

	t.Run("both boxes", func(t *testing.T) {
		setConfig(t, map[string]any{"tiles.bbox": "10,10,20,20", "tiles.plane_bbox": "1,1,10,10"})
		_, err := selectTiles(pyramid)
		assert.Error(t, err)
	})

	t.Run("inverted zoom range", func(t *testing.T) {
		setConfig(t, map[string]any{"tiles.zoom_min": 3, "tiles.zoom_max": 1})
		_, err := selectTiles(pyramid)
		assert.Error(t, err)
	})

	t.Run("outside world", func(t *testing.T) {
		setConfig(t, map[string]any{"tiles.plane_bbox": "100,100,200,200"})
		_, err := selectTiles(pyramid)
		assert.Error(t, err)
	})
}

func TestRunPassWritesTiles(t *testing.T) {
	dir := t.TempDir()
	setConfig(t, map[string]any{"tiles.progress": false})

	field, err := gabor.NewPlanarField(gabor.DefaultConfig())
	require.NoError(t, err)
	pyramid := tile.Pyramid{WorldSize: 64, TileSize: 8}
	sink := suffixStripper{sink: pipeline.FolderSink{Dir: dir, Nested: true}}
	gen, err := pipeline.NewGenerator(field, pyramid, sink, render.FormatPNG, render.Options{}, nil)
	require.NoError(t, err)

	tiles := pyramid.TilesInBound(pyramid.World(), 0, 1)
	require.NoError(t, runPass(context.Background(), gen, tiles, "@2x", 2))

	for _, c := range tiles {
		img, err := render.Load(filepath.Join(dir, pipeline.FolderSink{Nested: true}.Path(c, "")))
		require.NoError(t, err, c.String())
		assert.Equal(t, 16, img.Bounds().Dx(), "@2x tiles are stored under plain names at double size")
	}
}
