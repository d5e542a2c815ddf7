package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gabornoise/internal/gabor"
	"github.com/MeKo-Tech/gabornoise/internal/mbtiles"
	"github.com/MeKo-Tech/gabornoise/internal/pipeline"
	"github.com/MeKo-Tech/gabornoise/internal/render"
	"github.com/MeKo-Tech/gabornoise/internal/tile"
	"github.com/MeKo-Tech/gabornoise/internal/worker"
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Generate a noise tile pyramid",
	Long: `Generate z/x/y tiles of the planar noise field. Zoom 0 is one tile covering a
--world-size square centred on the origin; every zoom halves the tile span.

Select tiles with --tile (a single z{z}_x{x}_y{y}), --plane-bbox (plane
coordinates) or --bbox (longitude/latitude, for overlaying the pyramid on a web
map). Without a selection the whole pyramid from --zoom-min to --zoom-max is
generated.`,
	RunE: runTiles,
}

func init() {
	rootCmd.AddCommand(tilesCmd)

	f := tilesCmd.Flags()
	f.String("tile", "", "Single tile to generate, e.g. z3_x2_y5")
	f.String("bbox", "", "Bounding box minLon,minLat,maxLon,maxLat")
	f.String("plane-bbox", "", "Bounding box minX,minY,maxX,maxY in plane units")
	f.Int("zoom-min", 0, "Minimum zoom level")
	f.Int("zoom-max", 3, "Maximum zoom level")
	f.Float64("world-size", 4096, "Plane width covered by the zoom 0 tile")
	f.Int("tile-size", 256, "Tile size in pixels")
	f.String("image-format", "png", "Tile encoding: png, bmp, tiff or ppm")
	f.IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	f.Int("render-workers", 1, "Goroutines per tile render")
	f.Int("supersample", 1, "Render at this factor and box-filter down")
	f.Bool("progress", true, "Show progress bar")
	f.Bool("allow-failures", false, "Exit successfully even if some tiles fail")
	f.Bool("force", false, "Regenerate tiles that already exist")
	f.Bool("hidpi", false, "Also generate @2x tiles")

	f.String("format", "folder", "Output format: folder or mbtiles")
	f.String("output-dir", "./tiles", "Output directory for folder format")
	f.String("output-file", "", "Output file for MBTiles format (e.g., noise.mbtiles)")
	f.String("folder-structure", "flat", "Folder structure: flat (z{z}_x{x}_y{y}.png) or nested ({z}/{x}/{y}.png)")

	bindFlags(f, []flagBinding{
		{"tiles.tile", "tile"},
		{"tiles.bbox", "bbox"},
		{"tiles.plane_bbox", "plane-bbox"},
		{"tiles.zoom_min", "zoom-min"},
		{"tiles.zoom_max", "zoom-max"},
		{"tiles.world_size", "world-size"},
		{"tiles.tile_size", "tile-size"},
		{"tiles.image_format", "image-format"},
		{"tiles.workers", "workers"},
		{"tiles.render_workers", "render-workers"},
		{"tiles.supersample", "supersample"},
		{"tiles.progress", "progress"},
		{"tiles.allow_failures", "allow-failures"},
		{"tiles.force", "force"},
		{"tiles.hidpi", "hidpi"},
		{"tiles.format", "format"},
		{"tiles.output_dir", "output-dir"},
		{"tiles.output_file", "output-file"},
		{"tiles.folder_structure", "folder-structure"},
	})
}

// tileSelection is the set of tiles a run covers.
type tileSelection struct {
	tiles   []tile.Coords
	bounds  [4]float64 // lon/lat for MBTiles metadata
	zoomMin int
	zoomMax int
}

func selectTiles(pyramid tile.Pyramid) (tileSelection, error) {
	zoomMin := viper.GetInt("tiles.zoom_min")
	zoomMax := viper.GetInt("tiles.zoom_max")

	if s := viper.GetString("tiles.tile"); s != "" {
		c, err := tile.ParseCoords(s)
		if err != nil {
			return tileSelection{}, err
		}
		if !c.Valid() {
			return tileSelection{}, fmt.Errorf("tile %s is outside the pyramid", c)
		}
		return tileSelection{tiles: []tile.Coords{c}, bounds: tile.BoundBBox(c.LonLat()), zoomMin: int(c.Z), zoomMax: int(c.Z)}, nil
	}

	if zoomMin < 0 || zoomMax > tile.MaxZoom {
		return tileSelection{}, fmt.Errorf("zoom levels must be in [0,%d]", tile.MaxZoom)
	}
	if zoomMin > zoomMax {
		return tileSelection{}, fmt.Errorf("--zoom-min (%d) must be <= --zoom-max (%d)", zoomMin, zoomMax)
	}
	sel := tileSelection{zoomMin: zoomMin, zoomMax: zoomMax}

	bbox, planeBBox := viper.GetString("tiles.bbox"), viper.GetString("tiles.plane_bbox")
	switch {
	case bbox != "" && planeBBox != "":
		return tileSelection{}, fmt.Errorf("--bbox and --plane-bbox are mutually exclusive")
	case bbox != "":
		b, err := parseBBox(bbox)
		if err != nil {
			return tileSelection{}, fmt.Errorf("invalid bbox: %w", err)
		}
		sel.tiles = tile.TilesInLonLat(tile.BBoxBound(b), zoomMin, zoomMax)
		sel.bounds = b
	default:
		bound := pyramid.World()
		if planeBBox != "" {
			b, err := parseBBox(planeBBox)
			if err != nil {
				return tileSelection{}, fmt.Errorf("invalid plane bbox: %w", err)
			}
			bound = tile.BBoxBound(b)
		}
		sel.tiles = pyramid.TilesInBound(bound, zoomMin, zoomMax)
		sel.bounds = tile.BoundBBox(tile.NewCoords(0, 0, 0).LonLat())
	}
	if len(sel.tiles) == 0 {
		return tileSelection{}, fmt.Errorf("selection contains no tiles")
	}
	return sel, nil
}

func runTiles(cmd *cobra.Command, args []string) error {
	cfg, ramp, err := noiseSettings()
	if err != nil {
		return err
	}
	field, err := gabor.NewPlanarField(cfg)
	if err != nil {
		return err
	}

	pyramid := tile.Pyramid{WorldSize: viper.GetFloat64("tiles.world_size"), TileSize: viper.GetInt("tiles.tile_size")}
	if err := pyramid.Validate(); err != nil {
		return err
	}
	imageFormat := render.Format(viper.GetString("tiles.image_format"))
	if _, err := render.FormatFromPath("tile." + string(imageFormat)); err != nil {
		return err
	}
	format := viper.GetString("tiles.format")
	folderStructure := viper.GetString("tiles.folder_structure")
	outputFile := viper.GetString("tiles.output_file")
	hidpi := viper.GetBool("tiles.hidpi")

	if format != "folder" && format != "mbtiles" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'mbtiles'", format)
	}
	if folderStructure != "flat" && folderStructure != "nested" {
		return fmt.Errorf("invalid folder-structure %q: must be 'flat' or 'nested'", folderStructure)
	}
	if format == "mbtiles" && outputFile == "" {
		return fmt.Errorf("--output-file is required when using --format=mbtiles")
	}

	sel, err := selectTiles(pyramid)
	if err != nil {
		return err
	}

	workers := viper.GetInt("tiles.workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	opts := render.Options{
		Ramp:        ramp,
		Supersample: viper.GetInt("tiles.supersample"),
		Workers:     viper.GetInt("tiles.render_workers"),
	}

	logger.Info("Starting tile generation",
		"tiles", len(sel.tiles),
		"zoom_range", fmt.Sprintf("%d-%d", sel.zoomMin, sel.zoomMax),
		"world_size", pyramid.WorldSize,
		"tile_size", pyramid.TileSize,
		"hidpi", hidpi,
		"workers", workers,
		"format", format,
	)

	ctx, stop := signalContext()
	defer stop()

	passes := []string{""}
	if hidpi {
		passes = append(passes, "@2x")
	}
	for _, suffix := range passes {
		sink, closeSink, err := openSink(format, suffix, imageFormat, folderStructure, outputFile, cfg, pyramid, sel)
		if err != nil {
			return err
		}
		gen, err := pipeline.NewGenerator(field, pyramid, sink, imageFormat, opts, logger)
		if err != nil {
			closeSink()
			return err
		}
		err = runPass(ctx, gen, sel.tiles, suffix, workers)
		if cerr := closeSink(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// openSink creates the tile destination of one pass. MBTiles keeps @2x
// tiles in a separate "<name>@2x.mbtiles" database.
func openSink(format, suffix string, imageFormat render.Format, folderStructure, outputFile string, cfg gabor.Config, pyramid tile.Pyramid, sel tileSelection) (pipeline.Sink, func() error, error) {
	if format == "folder" {
		sink := pipeline.FolderSink{
			Dir:    viper.GetString("tiles.output_dir"),
			Format: imageFormat,
			Nested: folderStructure == "nested",
		}
		return sink, func() error { return nil }, nil
	}

	path := outputFile
	scale := 1
	if suffix != "" {
		path = strings.TrimSuffix(outputFile, ".mbtiles") + suffix + ".mbtiles"
		scale = 2
	}
	metadata := mbtiles.Metadata{
		Name:        "Gabor noise",
		Format:      string(imageFormat),
		MinZoom:     sel.zoomMin,
		MaxZoom:     sel.zoomMax,
		Bounds:      sel.bounds,
		Center:      [3]float64{(sel.bounds[0] + sel.bounds[2]) / 2, (sel.bounds[1] + sel.bounds[3]) / 2, float64(sel.zoomMin)},
		Description: fmt.Sprintf("Gabor noise, a=%g, F0=%g-%g", cfg.A, cfg.F0Min, cfg.F0Max),
		Type:        "overlay",
		Version:     "1.0",
		Noise:       &cfg,
		WorldSize:   pyramid.WorldSize,
		TileSize:    pyramid.TileSize * scale,
	}
	w, err := mbtiles.New(path, metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create MBTiles writer: %w", err)
	}
	logger.Info("MBTiles writer created", "path", path)

	// The sink stores every tile without a suffix.
	sink := suffixStripper{sink: pipeline.MBTilesSink{Writer: w}}
	return sink, func() error {
		err := w.Close()
		logger.Info("MBTiles written", "path", path, "tiles", w.Written())
		return err
	}, nil
}

// suffixStripper stores retina tiles under their plain coordinates, for
// sinks that hold one density each.
type suffixStripper struct {
	sink pipeline.Sink
}

func (s suffixStripper) Has(c tile.Coords, _ string) (string, bool) { return s.sink.Has(c, "") }

func (s suffixStripper) Put(c tile.Coords, _ string, data []byte) (string, error) {
	return s.sink.Put(c, "", data)
}

func runPass(ctx context.Context, gen *pipeline.Generator, tiles []tile.Coords, suffix string, workers int) error {
	tasks := worker.Tasks(tiles, viper.GetBool("tiles.force"), suffix)

	var out io.Writer
	if viper.GetBool("tiles.progress") {
		out = os.Stderr
	}
	progress := worker.NewProgress(len(tasks), out)

	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
	})
	results := pool.Run(ctx, tasks)
	progress.Done()

	failed := worker.Failed(results)
	for _, r := range failed {
		logger.Error("Tile generation failed", "coords", r.Task.Coords.String(), "suffix", r.Task.Suffix, "error", r.Err)
	}
	logger.Info(progress.Summary(), "suffix", suffix)

	if len(failed) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !viper.GetBool("tiles.allow_failures") {
			return fmt.Errorf("%d tiles failed to generate", len(failed))
		}
		logger.Warn("Some tiles failed to generate, but continuing due to --allow-failures flag", "failed_count", len(failed))
	}
	return nil
}

// parseBBox parses "minX,minY,maxX,maxY" (longitude/latitude or plane units).
func parseBBox(s string) ([4]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return [4]float64{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var bbox [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return [4]float64{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		bbox[i] = val
	}

	if bbox[0] >= bbox[2] {
		return [4]float64{}, fmt.Errorf("minX (%.4f) must be < maxX (%.4f)", bbox[0], bbox[2])
	}
	if bbox[1] >= bbox[3] {
		return [4]float64{}, fmt.Errorf("minY (%.4f) must be < maxY (%.4f)", bbox[1], bbox[3])
	}

	return bbox, nil
}
