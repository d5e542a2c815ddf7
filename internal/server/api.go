package server

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MeKo-Tech/gabornoise/internal/analysis"
	"github.com/MeKo-Tech/gabornoise/internal/gabor"
	"github.com/MeKo-Tech/gabornoise/internal/render"
)

// Field is the noise field the API reports on.
type Field interface {
	analysis.Field
	render.Sampler
	render.Spectral
	Config() gabor.Config
	Scale() float64
}

// API limits.
const (
	MaxStatsSamples = 200000
	MaxImageSize    = 1024
)

// API serves parameters, point queries, statistics and spectrum images of a
// noise field.
type API struct {
	field  Field
	logger *slog.Logger
}

// NewAPI creates the API for field.
func NewAPI(field Field, logger *slog.Logger) *API {
	return &API{field: field, logger: logger}
}

// Register mounts the API endpoints below /api/.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/intensity", a.handleIntensity)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/spectrum.png", a.handleSpectrum)
	mux.HandleFunc("/api/noise.png", a.handleNoise)
}

type configResponse struct {
	K                 float64 `json:"k"`
	A                 float64 `json:"a"`
	F0Min             float64 `json:"f0_min"`
	F0Max             float64 `json:"f0_max"`
	W0Min             float64 `json:"w0_min"`
	W0Max             float64 `json:"w0_max"`
	ImpulsesPerKernel float64 `json:"impulses_per_kernel"`
	Offset            uint32  `json:"offset"`
	Periodic          bool    `json:"periodic"`
	Period            uint32  `json:"period"`
	Generator         string  `json:"generator"`

	KernelRadius   float64 `json:"kernel_radius"`
	ImpulseDensity float64 `json:"impulse_density"`
	Variance       float64 `json:"variance"`
	Scale          float64 `json:"scale"`
}

func (a *API) handleConfig(w http.ResponseWriter, r *http.Request) {
	c := a.field.Config()
	writeJSON(w, a.log(), configResponse{
		K:                 c.K,
		A:                 c.A,
		F0Min:             c.F0Min,
		F0Max:             c.F0Max,
		W0Min:             c.W0Min,
		W0Max:             c.W0Max,
		ImpulsesPerKernel: c.ImpulsesPerKernel,
		Offset:            c.Offset,
		Periodic:          c.Periodic,
		Period:            c.Period,
		Generator:         c.Generator,
		KernelRadius:      c.KernelRadius(),
		ImpulseDensity:    c.ImpulseDensity(),
		Variance:          a.field.Variance(),
		Scale:             a.field.Scale(),
	})
}

type intensityResponse struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Intensity  float64 `json:"intensity"`
	Normalized float64 `json:"normalized"`
}

func (a *API) handleIntensity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, err := queryFloat(q, "x", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	y, err := queryFloat(q, "y", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, a.log(), intensityResponse{
		X:          x,
		Y:          y,
		Intensity:  a.field.Intensity(x, y),
		Normalized: a.field.Normalized(x, y),
	})
}

type statsResponse struct {
	Samples       int     `json:"samples"`
	Mean          float64 `json:"mean"`
	Variance      float64 `json:"variance"`
	StdDev        float64 `json:"std_dev"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Analytic      float64 `json:"analytic_variance"`
	RelativeError float64 `json:"relative_error"`
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	samples, err := queryInt(q, "samples", 10000)
	if err == nil && (samples < 1 || samples > MaxStatsSamples) {
		err = fmt.Errorf("samples must be in [1,%d]", MaxStatsSamples)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts := analysis.SampleOptions{Samples: samples}
	if opts.Spacing, err = queryFloat(q, "spacing", 0); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if opts.Jitter, err = queryFloat(q, "jitter", 0.5); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	seed, err := queryInt(q, "seed", 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts.Seed = uint32(seed)

	s, err := analysis.Measure(r.Context(), a.field, opts)
	if err != nil {
		a.log().Error("failed to measure field", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, a.log(), statsResponse{
		Samples:       s.Samples,
		Mean:          s.Mean,
		Variance:      s.Variance,
		StdDev:        s.StdDev,
		Min:           s.Min,
		Max:           s.Max,
		Analytic:      s.Analytic,
		RelativeError: s.RelativeError,
	})
}

func (a *API) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, err := imageSize(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	extent, err := queryFloat(q, "extent", render.DefaultSpectrumExtent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	img, err := render.SpectrumImage(r.Context(), a.field, render.SpectrumOptions{
		Size:      size,
		Extent:    extent,
		Normalize: q.Get("normalize") == "1" || q.Get("normalize") == "true",
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", render.FormatPNG.ContentType())
	if err := render.Encode(w, img, render.FormatPNG); err != nil {
		a.log().Error("failed to encode spectrum", "error", err)
	}
}

func (a *API) handleNoise(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, err := imageSize(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var upp, cx, cy float64
	for _, p := range []struct {
		dst *float64
		key string
		def float64
	}{{&upp, "upp", 1}, {&cx, "cx", 0}, {&cy, "cy", 0}} {
		if *p.dst, err = queryFloat(q, p.key, p.def); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	img, err := render.Render(r.Context(), a.field, render.CenteredRegion(size, upp, cx, cy), render.Options{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", render.FormatPNG.ContentType())
	if err := render.Encode(w, img, render.FormatPNG); err != nil {
		a.log().Error("failed to encode noise image", "error", err)
	}
}

func (a *API) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

func imageSize(q url.Values) (int, error) {
	size, err := queryInt(q, "size", 256)
	if err != nil {
		return 0, err
	}
	if size < 1 || size > MaxImageSize {
		return 0, fmt.Errorf("size must be in [1,%d]", MaxImageSize)
	}
	return size, nil
}

func queryFloat(q url.Values, key string, def float64) (float64, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}

func queryInt(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}
