package tile

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// MaxZoom is the deepest zoom level a pyramid addresses.
const MaxZoom = 24

// Pyramid lays a z/x/y tile grid over the noise plane. Zoom 0 is a single
// tile covering a WorldSize square centred on the origin, with y pointing up
// and tile rows counted from the top.
type Pyramid struct {
	WorldSize float64
	TileSize  int
}

// Validate checks the pyramid dimensions.
func (p Pyramid) Validate() error {
	if !(p.WorldSize > 0) || math.IsInf(p.WorldSize, 0) {
		return fmt.Errorf("world size must be positive, got %v", p.WorldSize)
	}
	if p.TileSize <= 0 {
		return fmt.Errorf("tile size must be positive, got %d", p.TileSize)
	}
	return nil
}

// World returns the plane area covered by the pyramid.
func (p Pyramid) World() orb.Bound {
	h := p.WorldSize / 2
	return orb.Bound{Min: orb.Point{-h, -h}, Max: orb.Point{h, h}}
}

// TileSpan is the plane width of one tile at zoom z.
func (p Pyramid) TileSpan(z uint32) float64 {
	return p.WorldSize / math.Exp2(float64(z))
}

// UnitsPerPixel is the plane distance between pixel centres at zoom z.
func (p Pyramid) UnitsPerPixel(z uint32) float64 {
	return p.TileSpan(z) / float64(p.TileSize)
}

// Bound returns the plane area of tile c.
func (p Pyramid) Bound(c Coords) orb.Bound {
	span := p.TileSpan(c.Z)
	h := p.WorldSize / 2
	minX := -h + float64(c.X)*span
	maxY := h - float64(c.Y)*span
	return orb.Bound{Min: orb.Point{minX, maxY - span}, Max: orb.Point{minX + span, maxY}}
}

// TilesInBound returns the tiles intersecting the plane bound b for every
// zoom in [zoomMin, zoomMax], clipped to the world.
func (p Pyramid) TilesInBound(b orb.Bound, zoomMin, zoomMax int) []Coords {
	var tiles []Coords
	for z := zoomMin; z <= zoomMax; z++ {
		minX, maxX, minY, maxY, ok := p.boundRange(b, uint32(z))
		if !ok {
			continue
		}
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				tiles = append(tiles, NewCoords(uint32(z), x, y))
			}
		}
	}
	return tiles
}

// CountInBound returns len(TilesInBound(b, zoomMin, zoomMax)) without
// building the list.
func (p Pyramid) CountInBound(b orb.Bound, zoomMin, zoomMax int) int {
	count := 0
	for z := zoomMin; z <= zoomMax; z++ {
		minX, maxX, minY, maxY, ok := p.boundRange(b, uint32(z))
		if ok {
			count += int(maxX-minX+1) * int(maxY-minY+1)
		}
	}
	return count
}

func (p Pyramid) boundRange(b orb.Bound, z uint32) (minX, maxX, minY, maxY uint32, ok bool) {
	world := p.World()
	if !b.Intersects(world) {
		return 0, 0, 0, 0, false
	}
	span := p.TileSpan(z)
	last := float64(uint32(1)<<z - 1)
	col := func(x float64) uint32 {
		return uint32(math.Min(math.Max(math.Floor((x-world.Min.X())/span), 0), last))
	}
	row := func(y float64) uint32 {
		return uint32(math.Min(math.Max(math.Floor((world.Max.Y()-y)/span), 0), last))
	}
	return col(b.Min.X()), col(b.Max.X()), row(b.Max.Y()), row(b.Min.Y()), true
}
