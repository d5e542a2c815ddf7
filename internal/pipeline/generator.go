// Package pipeline renders single noise tiles and hands them to a sink.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/gabornoise/internal/render"
	"github.com/MeKo-Tech/gabornoise/internal/tile"
)

// MaxScale is the largest pixel density a tile suffix may request.
const MaxScale = 4

// Generator renders tiles of a noise field over a tile pyramid.
type Generator struct {
	field   render.Sampler
	sink    Sink
	logger  *slog.Logger
	opts    render.Options
	pyramid tile.Pyramid
	format  render.Format
}

// NewGenerator prepares a generator. A nil sink is allowed for callers that
// only use RenderTile or EncodeTile.
func NewGenerator(field render.Sampler, pyramid tile.Pyramid, sink Sink, format render.Format, opts render.Options, logger *slog.Logger) (*Generator, error) {
	if field == nil {
		return nil, fmt.Errorf("noise field is required")
	}
	if err := pyramid.Validate(); err != nil {
		return nil, err
	}
	if format == "" {
		format = render.FormatPNG
	}
	return &Generator{
		field:   field,
		pyramid: pyramid,
		sink:    sink,
		format:  format,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Pyramid returns the tile grid the generator renders.
func (g *Generator) Pyramid() tile.Pyramid { return g.pyramid }

// Format returns the encoding of generated tiles.
func (g *Generator) Format() render.Format { return g.format }

// Region returns the plane window of tile c rendered at scale pixels per
// tile pixel.
func (g *Generator) Region(c tile.Coords, scale int) render.Region {
	b := g.pyramid.Bound(c)
	return render.Region{
		MinX:          b.Min.X(),
		MaxY:          b.Max.Y(),
		UnitsPerPixel: g.pyramid.UnitsPerPixel(c.Z) / float64(scale),
		Width:         g.pyramid.TileSize * scale,
		Height:        g.pyramid.TileSize * scale,
	}
}

// RenderTile rasterizes tile c.
func (g *Generator) RenderTile(ctx context.Context, c tile.Coords, scale int) (*image.RGBA, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("tile %s is outside the pyramid", c)
	}
	if scale < 1 || scale > MaxScale {
		return nil, fmt.Errorf("tile scale must be in [1,%d], got %d", MaxScale, scale)
	}
	return render.Render(ctx, g.field, g.Region(c, scale), g.opts)
}

// EncodeTile renders tile c and encodes it in the generator's format.
func (g *Generator) EncodeTile(ctx context.Context, c tile.Coords, scale int) ([]byte, error) {
	img, err := g.RenderTile(ctx, c, scale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := render.Encode(&buf, img, g.format); err != nil {
		return nil, fmt.Errorf("failed to encode tile %s: %w", c, err)
	}
	return buf.Bytes(), nil
}

// Generate renders tile c at the density named by suffix and stores it in
// the sink, skipping tiles the sink already holds unless force is set.
// It returns where the tile was stored.
func (g *Generator) Generate(ctx context.Context, c tile.Coords, force bool, suffix string) (string, error) {
	if g.sink == nil {
		return "", fmt.Errorf("generator has no tile sink")
	}
	scale, err := ScaleFromSuffix(suffix)
	if err != nil {
		return "", err
	}

	if !force {
		if loc, ok := g.sink.Has(c, suffix); ok {
			g.log().Debug("Tile already exists; skipping", "coords", c.String(), "location", loc)
			return loc, nil
		}
	}

	g.log().Debug("Rendering tile", "coords", c.String(), "scale", scale)
	data, err := g.EncodeTile(ctx, c, scale)
	if err != nil {
		return "", err
	}

	loc, err := g.sink.Put(c, suffix, data)
	if err != nil {
		return "", fmt.Errorf("failed to store tile %s: %w", c, err)
	}
	g.log().Debug("Wrote tile", "coords", c.String(), "location", loc, "bytes", len(data))
	return loc, nil
}

// ScaleFromSuffix parses a retina suffix: "" is 1, "@2x" is 2.
func ScaleFromSuffix(suffix string) (int, error) {
	if suffix == "" {
		return 1, nil
	}
	n, ok := strings.CutPrefix(suffix, "@")
	if ok {
		n, ok = strings.CutSuffix(n, "x")
	}
	scale, err := strconv.Atoi(n)
	if !ok || err != nil || scale < 1 || scale > MaxScale {
		return 0, fmt.Errorf("invalid tile suffix %q", suffix)
	}
	return scale, nil
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
