// Package mbtiles provides MBTiles format support for reading and writing tile databases.
package mbtiles

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/gabornoise/internal/gabor"
)

// Metadata contains MBTiles metadata fields.
type Metadata struct {
	Name        string // Human-readable tileset identifier
	Format      string // Tile data type (png, bmp, tiff)
	Attribution string // Attribution text
	Description string // Human-readable description
	Type        string // "baselayer" or "overlay"
	Version     string // Version string
	Bounds      [4]float64
	Center      [3]float64
	MinZoom     int // Minimum zoom level
	MaxZoom     int // Maximum zoom level

	// Noise describes the field the tiles were rendered from, if known.
	Noise *gabor.Config
	// WorldSize is the plane width covered by the zoom 0 tile.
	WorldSize float64
	// TileSize is the tile edge in pixels.
	TileSize int
}

// Metadata keys of the noise parameters.
const (
	keyK         = "noise_k"
	keyA         = "noise_a"
	keyF0Min     = "noise_f0_min"
	keyF0Max     = "noise_f0_max"
	keyW0Min     = "noise_w0_min"
	keyW0Max     = "noise_w0_max"
	keyImpulses  = "noise_impulses"
	keyOffset    = "noise_offset"
	keyPeriodic  = "noise_periodic"
	keyPeriod    = "noise_period"
	keyGenerator = "noise_generator"
	keyWorldSize = "world_size"
	keyTileSize  = "tile_size"
)

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Format != "" {
		result["format"] = m.Format
	}
	// minzoom 0 is meaningful for noise pyramids, so it is always written.
	result["minzoom"] = strconv.Itoa(m.MinZoom)
	if m.MaxZoom > 0 {
		result["maxzoom"] = strconv.Itoa(m.MaxZoom)
	}
	if m.Bounds != [4]float64{} {
		result["bounds"] = fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
			m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3])
	}
	if m.Center != [3]float64{} {
		result["center"] = fmt.Sprintf("%.6f,%.6f,%d",
			m.Center[0], m.Center[1], int(m.Center[2]))
	}
	if m.Attribution != "" {
		result["attribution"] = m.Attribution
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Type != "" {
		result["type"] = m.Type
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	if m.WorldSize > 0 {
		result[keyWorldSize] = formatFloat(m.WorldSize)
	}
	if m.TileSize > 0 {
		result[keyTileSize] = strconv.Itoa(m.TileSize)
	}

	if c := m.Noise; c != nil {
		result[keyK] = formatFloat(c.K)
		result[keyA] = formatFloat(c.A)
		result[keyF0Min] = formatFloat(c.F0Min)
		result[keyF0Max] = formatFloat(c.F0Max)
		result[keyW0Min] = formatFloat(c.W0Min)
		result[keyW0Max] = formatFloat(c.W0Max)
		result[keyImpulses] = formatFloat(c.ImpulsesPerKernel)
		result[keyOffset] = strconv.FormatUint(uint64(c.Offset), 10)
		result[keyPeriodic] = strconv.FormatBool(c.Periodic)
		result[keyPeriod] = strconv.FormatUint(uint64(c.Period), 10)
		if c.Generator != "" {
			result[keyGenerator] = c.Generator
		}
	}

	return result
}

// fromMap fills the metadata from database rows. Unparsable values are skipped.
func fromMap(metaMap map[string]string) Metadata {
	meta := Metadata{
		Name:        metaMap["name"],
		Format:      metaMap["format"],
		Attribution: metaMap["attribution"],
		Description: metaMap["description"],
		Type:        metaMap["type"],
		Version:     metaMap["version"],
	}

	if v, ok := metaMap["minzoom"]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			meta.MinZoom = i
		}
	}
	if v, ok := metaMap["maxzoom"]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			meta.MaxZoom = i
		}
	}
	if v, ok := metaMap[keyTileSize]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			meta.TileSize = i
		}
	}
	meta.WorldSize = parseFloat(metaMap[keyWorldSize])

	// Parse bounds: "minLon,minLat,maxLon,maxLat"
	if parts := strings.Split(metaMap["bounds"], ","); len(parts) == 4 {
		for i, part := range parts {
			meta.Bounds[i] = parseFloat(part)
		}
	}

	// Parse center: "lon,lat,zoom"
	if parts := strings.Split(metaMap["center"], ","); len(parts) == 3 {
		for i, part := range parts {
			meta.Center[i] = parseFloat(part)
		}
	}

	if _, ok := metaMap[keyA]; ok {
		c := gabor.Config{
			K:                 parseFloat(metaMap[keyK]),
			A:                 parseFloat(metaMap[keyA]),
			F0Min:             parseFloat(metaMap[keyF0Min]),
			F0Max:             parseFloat(metaMap[keyF0Max]),
			W0Min:             parseFloat(metaMap[keyW0Min]),
			W0Max:             parseFloat(metaMap[keyW0Max]),
			ImpulsesPerKernel: parseFloat(metaMap[keyImpulses]),
			Generator:         metaMap[keyGenerator],
		}
		if v, err := strconv.ParseUint(metaMap[keyOffset], 10, 32); err == nil {
			c.Offset = uint32(v)
		}
		if v, err := strconv.ParseUint(metaMap[keyPeriod], 10, 32); err == nil {
			c.Period = uint32(v)
		}
		c.Periodic, _ = strconv.ParseBool(metaMap[keyPeriodic])
		meta.Noise = &c
	}

	return meta
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
