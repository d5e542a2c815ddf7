package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gabornoise/internal/gabor"
	"github.com/MeKo-Tech/gabornoise/internal/pipeline"
	"github.com/MeKo-Tech/gabornoise/internal/render"
	"github.com/MeKo-Tech/gabornoise/internal/server"
	"github.com/MeKo-Tech/gabornoise/internal/tile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve noise tiles and the noise API",
	Long: `Serve /tiles/z{z}_x{x}_y{y}[@2x].png rendered on demand (cached in --tiles-dir),
or read from an MBTiles file with --mbtiles. The API below /api/ reports the
field parameters, point intensities, sampled statistics and spectrum images.
With --mbtiles the API describes the field stored in the file when present.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	f.String("tiles-dir", "", "Directory caching rendered tiles (empty: no disk cache)")
	f.String("mbtiles", "", "Serve tiles from this MBTiles file instead of rendering")
	f.Bool("generate-missing", true, "Render missing tiles on demand")
	f.Bool("disable-cache", false, "Always re-render tiles (still writes to --tiles-dir)")
	f.Bool("nested", false, "Cache tiles as {z}/{x}/{y}.png")
	f.Int("max-concurrent-generations", runtime.NumCPU(), "Max concurrent tile renders")
	f.Duration("generation-timeout", 30*time.Second, "Timeout per tile render")
	f.String("cache-control", "no-store", "Cache-Control header for rendered tiles")
	f.Float64("world-size", 4096, "Plane width covered by the zoom 0 tile")
	f.Int("tile-size", 256, "Base tile size in pixels (@2x requests render twice as many)")

	bindFlags(f, []flagBinding{
		{"serve.addr", "addr"},
		{"serve.tiles_dir", "tiles-dir"},
		{"serve.mbtiles", "mbtiles"},
		{"serve.generate_missing", "generate-missing"},
		{"serve.disable_cache", "disable-cache"},
		{"serve.nested", "nested"},
		{"serve.max_concurrent_generations", "max-concurrent-generations"},
		{"serve.generation_timeout", "generation-timeout"},
		{"serve.cache_control", "cache-control"},
		{"serve.world_size", "world-size"},
		{"serve.tile_size", "tile-size"},
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, ramp, err := noiseSettings()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	if path := viper.GetString("serve.mbtiles"); path != "" {
		h, err := server.NewMBTilesHandler(server.MBTilesConfig{MBTilesPath: path}, logger)
		if err != nil {
			return err
		}
		defer h.Close()
		if meta := h.Metadata(); meta.Noise != nil {
			cfg = *meta.Noise
		}
		mux.Handle("/tiles/", withCORS(h.Handler()))
		mux.Handle("/tiles/metadata.json", withCORS(h.MetadataHandler()))
		logger.Info("Serving MBTiles", "path", path)
	} else {
		field, err := gabor.NewPlanarField(cfg)
		if err != nil {
			return err
		}
		pyramid := tile.Pyramid{WorldSize: viper.GetFloat64("serve.world_size"), TileSize: viper.GetInt("serve.tile_size")}
		gen, err := pipeline.NewGenerator(field, pyramid, nil, render.FormatPNG, render.Options{Ramp: ramp, Workers: 1}, logger)
		if err != nil {
			return err
		}
		od, err := server.NewOnDemandTiles(gen, server.OnDemandTilesConfig{
			TilesDir:                 viper.GetString("serve.tiles_dir"),
			CacheControl:             viper.GetString("serve.cache_control"),
			MaxConcurrentGenerations: viper.GetInt("serve.max_concurrent_generations"),
			GenerationTimeout:        viper.GetDuration("serve.generation_timeout"),
			GenerateMissing:          viper.GetBool("serve.generate_missing"),
			DisableCache:             viper.GetBool("serve.disable_cache"),
			NestedFolders:            viper.GetBool("serve.nested"),
		}, logger)
		if err != nil {
			return err
		}
		mux.Handle("/tiles/", withCORS(od.Handler()))
		mux.Handle("/api/status", withCORS(od.StatusHandler()))
		mux.Handle("/api/status/stream", withCORS(od.StatusStreamHandler()))
	}

	field, err := gabor.NewPlanarField(cfg)
	if err != nil {
		return fmt.Errorf("invalid noise parameters: %w", err)
	}
	server.NewAPI(field, logger).Register(mux)

	addr := viper.GetString("serve.addr")
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Noise server listening", "addr", addr, "variance", field.Variance())
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
