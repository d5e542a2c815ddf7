package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/gabornoise/internal/mbtiles"
	"github.com/MeKo-Tech/gabornoise/internal/render"
	"github.com/MeKo-Tech/gabornoise/internal/tile"
)

// Sink stores encoded tiles.
type Sink interface {
	// Has reports whether the tile is already stored and where.
	Has(c tile.Coords, suffix string) (string, bool)
	// Put stores the tile and returns its location.
	Put(c tile.Coords, suffix string, data []byte) (string, error)
}

// FolderSink writes tiles as files below Dir, either flat
// (z3_x1_y2@2x.png) or nested (3/1/2@2x.png).
type FolderSink struct {
	Dir    string
	Format render.Format
	Nested bool
}

// Path returns the file a tile is stored in.
func (s FolderSink) Path(c tile.Coords, suffix string) string {
	ext := string(s.Format)
	if ext == "" {
		ext = string(render.FormatPNG)
	}
	if s.Nested {
		return filepath.Join(s.Dir, fmt.Sprint(c.Z), fmt.Sprint(c.X), fmt.Sprintf("%d%s.%s", c.Y, suffix, ext))
	}
	return filepath.Join(s.Dir, fmt.Sprintf("%s%s.%s", c.String(), suffix, ext))
}

func (s FolderSink) Has(c tile.Coords, suffix string) (string, bool) {
	path := s.Path(c, suffix)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func (s FolderSink) Put(c tile.Coords, suffix string, data []byte) (string, error) {
	path := s.Path(c, suffix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	// Readers must never see a partially written tile.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // nolint:errcheck
		return "", err
	}
	return path, nil
}

// MBTilesSink batches tiles into an MBTiles database. Retina tiles cannot be
// stored next to their base tiles, so only the empty suffix is accepted.
type MBTilesSink struct {
	Writer *mbtiles.Writer
}

func (s MBTilesSink) Has(tile.Coords, string) (string, bool) { return "", false }

func (s MBTilesSink) Put(c tile.Coords, suffix string, data []byte) (string, error) {
	if suffix != "" {
		return "", fmt.Errorf("mbtiles output does not support tile suffix %q", suffix)
	}
	if err := s.Writer.WriteTile(c, data); err != nil {
		return "", err
	}
	return fmt.Sprintf("mbtiles:%d/%d/%d", c.Z, c.X, c.Y), nil
}
