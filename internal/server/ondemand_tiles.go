// Package server serves noise tiles over HTTP, either rendered on demand or
// read from an MBTiles database, plus a small JSON and image API describing
// the field.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/gabornoise/internal/pipeline"
	"github.com/MeKo-Tech/gabornoise/internal/tile"
)

// OnDemandTilesConfig configures on-demand tile rendering.
type OnDemandTilesConfig struct {
	// TilesDir caches rendered tiles on disk; empty keeps tiles in memory only.
	TilesDir                 string
	CacheControl             string
	MaxConcurrentGenerations int
	GenerationTimeout        time.Duration
	// GenerateMissing renders tiles absent from the cache.
	GenerateMissing bool
	// DisableCache always renders, still writing the result to TilesDir.
	DisableCache bool
	// NestedFolders stores cached tiles as {z}/{x}/{y}.png.
	NestedFolders bool
}

// OnDemandTiles renders tiles of one noise field as they are requested.
type OnDemandTiles struct {
	gen    *pipeline.Generator
	cache  *pipeline.FolderSink
	logger *slog.Logger
	sem    chan struct{}
	locks  sync.Map
	cfg    OnDemandTilesConfig

	activeRenders  atomic.Int32
	totalRendered  atomic.Int64
	totalFailed    atomic.Int64
	currentRenders sync.Map // tile key -> start time

	queuedRenders atomic.Int32
	queuedTiles   sync.Map // tile key -> queue time
}

// TileStatus is the current state of on-demand rendering.
type TileStatus struct {
	Render RenderStatus `json:"render"`
}

// RenderStatus contains current render operation status.
type RenderStatus struct {
	ActiveRenders int      `json:"active_renders"`
	TotalRendered int64    `json:"total_rendered"`
	TotalFailed   int64    `json:"total_failed"`
	CurrentTiles  []string `json:"current_tiles"`
	MaxConcurrent int      `json:"max_concurrent"`
	QueuedRenders int      `json:"queued_renders"`
	QueuedTiles   []string `json:"queued_tiles"`
}

// NewOnDemandTiles wraps a generator. The generator's own sink is not used;
// cached tiles go to cfg.TilesDir.
func NewOnDemandTiles(gen *pipeline.Generator, cfg OnDemandTilesConfig, logger *slog.Logger) (*OnDemandTiles, error) {
	if gen == nil {
		return nil, fmt.Errorf("tile generator is required")
	}
	if cfg.MaxConcurrentGenerations <= 0 {
		cfg.MaxConcurrentGenerations = 1
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}

	t := &OnDemandTiles{
		gen:    gen,
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentGenerations),
	}
	if cfg.TilesDir != "" {
		t.cache = &pipeline.FolderSink{Dir: cfg.TilesDir, Format: gen.Format(), Nested: cfg.NestedFolders}
	}
	return t, nil
}

// Status returns the current status of on-demand rendering.
func (t *OnDemandTiles) Status() TileStatus {
	currentTiles := []string{}
	t.currentRenders.Range(func(key, _ any) bool {
		currentTiles = append(currentTiles, key.(string))
		return true
	})
	queuedTiles := []string{}
	t.queuedTiles.Range(func(key, _ any) bool {
		queuedTiles = append(queuedTiles, key.(string))
		return true
	})

	return TileStatus{
		Render: RenderStatus{
			ActiveRenders: int(t.activeRenders.Load()),
			TotalRendered: t.totalRendered.Load(),
			TotalFailed:   t.totalFailed.Load(),
			CurrentTiles:  currentTiles,
			MaxConcurrent: t.cfg.MaxConcurrentGenerations,
			QueuedRenders: int(t.queuedRenders.Load()),
			QueuedTiles:   queuedTiles,
		},
	}
}

// StatusHandler serves Status as JSON.
func (t *OnDemandTiles) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, t.log(), t.Status())
	})
}

// StatusStreamHandler pushes Status as server-sent events every 250ms.
func (t *OnDemandTiles) StatusStreamHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for {
			data, err := json.Marshal(t.Status())
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	})
}

// Handler serves /tiles/z{z}_x{x}_y{y}[@Nx].{ext}.
func (t *OnDemandTiles) Handler() http.Handler {
	return http.HandlerFunc(t.serveTile)
}

func (t *OnDemandTiles) serveTile(w http.ResponseWriter, r *http.Request) {
	coords, suffix, ok := parseTilePath(r.URL.Path, string(t.gen.Format()))
	if !ok || !coords.Valid() {
		http.NotFound(w, r)
		return
	}
	scale, err := pipeline.ScaleFromSuffix(suffix)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	key := coords.String() + suffix
	w.Header().Set("Cache-Control", t.cfg.CacheControl)

	if t.serveCached(w, r, coords, suffix) {
		return
	}
	if !t.cfg.GenerateMissing {
		http.Error(w, fmt.Sprintf("tile not found: %s", key), http.StatusNotFound)
		return
	}

	mu := t.getLock(key)
	mu.Lock()
	defer mu.Unlock()

	if t.serveCached(w, r, coords, suffix) {
		return
	}

	t.queuedRenders.Add(1)
	t.queuedTiles.Store(key, time.Now())
	select {
	case t.sem <- struct{}{}:
		t.queuedRenders.Add(-1)
		t.queuedTiles.Delete(key)
		defer func() { <-t.sem }()
	case <-r.Context().Done():
		t.queuedRenders.Add(-1)
		t.queuedTiles.Delete(key)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	t.activeRenders.Add(1)
	t.currentRenders.Store(key, start)
	data, err := t.gen.EncodeTile(ctx, coords, scale)
	t.activeRenders.Add(-1)
	t.currentRenders.Delete(key)

	if err != nil {
		t.totalFailed.Add(1)
		t.log().Error("failed to render tile", "coords", coords.String(), "suffix", suffix, "error", err)
		http.Error(w, fmt.Sprintf("failed to render tile %s: %v", key, err), http.StatusInternalServerError)
		return
	}
	t.totalRendered.Add(1)
	t.log().Info("tile rendered on-demand", "coords", coords.String(), "suffix", suffix, "ms", time.Since(start).Milliseconds())

	if t.cache != nil {
		if _, err := t.cache.Put(coords, suffix, data); err != nil {
			t.log().Warn("failed to cache tile", "coords", coords.String(), "error", err)
		}
	}

	w.Header().Set("Content-Type", t.gen.Format().ContentType())
	if _, err := w.Write(data); err != nil {
		t.log().Error("failed to write response", "error", err)
	}
}

func (t *OnDemandTiles) serveCached(w http.ResponseWriter, r *http.Request, coords tile.Coords, suffix string) bool {
	if t.cache == nil || t.cfg.DisableCache {
		return false
	}
	p, ok := t.cache.Has(coords, suffix)
	if !ok {
		return false
	}
	http.ServeFile(w, r, p)
	return true
}

func (t *OnDemandTiles) getLock(key string) *sync.Mutex {
	if v, ok := t.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	actual, _ := t.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (t *OnDemandTiles) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

// parseTilePath parses /tiles/z13_x4317_y2692.png or
// /tiles/z13_x4317_y2692@2x.png. It returns the coordinates, the density
// suffix and whether the path matched.
func parseTilePath(requestPath, ext string) (tile.Coords, string, bool) {
	if !strings.HasPrefix(requestPath, "/tiles/") {
		return tile.Coords{}, "", false
	}
	name, ok := strings.CutSuffix(path.Base(requestPath), "."+ext)
	if !ok {
		return tile.Coords{}, "", false
	}
	suffix := ""
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name, suffix = name[:i], name[i:]
	}

	coords, err := tile.ParseCoords(name)
	if err != nil || coords.String() != name {
		return tile.Coords{}, "", false
	}
	return coords, suffix, true
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
