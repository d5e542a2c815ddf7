package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/gabornoise/internal/mbtiles"
	"github.com/MeKo-Tech/gabornoise/internal/render"
)

// MBTilesHandler serves tiles from an MBTiles database.
type MBTilesHandler struct {
	reader       *mbtiles.Reader
	logger       *slog.Logger
	metadata     mbtiles.Metadata
	cacheControl string
	format       render.Format
}

// MBTilesConfig configures the MBTiles handler.
type MBTilesConfig struct {
	MBTilesPath  string
	CacheControl string
}

// NewMBTilesHandler opens the database and reads its metadata.
func NewMBTilesHandler(cfg MBTilesConfig, logger *slog.Logger) (*MBTilesHandler, error) {
	reader, err := mbtiles.OpenReader(cfg.MBTilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MBTiles: %w", err)
	}
	meta, err := reader.Metadata()
	if err != nil {
		reader.Close()
		return nil, err
	}
	if meta.MaxZoom == 0 {
		if _, maxZoom, err := reader.ZoomRange(); err == nil {
			meta.MaxZoom = maxZoom
		}
	}
	format := render.Format(meta.Format)
	if format == "" {
		format = render.FormatPNG
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=86400"
	}

	return &MBTilesHandler{
		reader:       reader,
		logger:       logger,
		metadata:     meta,
		cacheControl: cfg.CacheControl,
		format:       format,
	}, nil
}

// Metadata returns the tileset metadata.
func (h *MBTilesHandler) Metadata() mbtiles.Metadata { return h.metadata }

// Handler serves /tiles/z{z}_x{x}_y{y}.{format}.
func (h *MBTilesHandler) Handler() http.Handler {
	return http.HandlerFunc(h.serveTile)
}

// MetadataHandler serves the tileset metadata as JSON.
func (h *MBTilesHandler) MetadataHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, h.log(), h.metadata.ToMap())
	})
}

func (h *MBTilesHandler) serveTile(w http.ResponseWriter, r *http.Request) {
	coords, suffix, ok := parseTilePath(r.URL.Path, string(h.format))
	// Retina tiles live in a separate database.
	if !ok || suffix != "" {
		http.NotFound(w, r)
		return
	}

	data, err := h.reader.ReadTile(coords)
	if errors.Is(err, mbtiles.ErrTileNotFound) {
		http.Error(w, "Tile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log().Error("Failed to read tile", "coords", coords.String(), "error", err)
		http.Error(w, "failed to read tile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Type", h.format.ContentType())
	if _, err := w.Write(data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

// Close closes the MBTiles reader.
func (h *MBTilesHandler) Close() error {
	return h.reader.Close()
}

func (h *MBTilesHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
