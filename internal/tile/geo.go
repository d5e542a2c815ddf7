package tile

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxLatitude is the northern edge of the Web Mercator square.
var MaxLatitude = 180 / math.Pi * math.Atan(math.Sinh(math.Pi))

// LonLat returns the geographic area tile c covers when the pyramid is
// overlaid on a Web Mercator map.
func (c Coords) LonLat() orb.Bound {
	return maptile.New(c.X, c.Y, maptile.Zoom(c.Z)).Bound()
}

// BBoxBound converts [minX, minY, maxX, maxY] to a bound.
func BBoxBound(b [4]float64) orb.Bound {
	return orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
}

// BoundBBox converts a bound to [minX, minY, maxX, maxY].
func BoundBBox(b orb.Bound) [4]float64 {
	return [4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}

// TilesInLonLat returns the tiles whose map overlay intersects the
// geographic bound, for every zoom in [zoomMin, zoomMax].
func TilesInLonLat(b orb.Bound, zoomMin, zoomMax int) []Coords {
	tiles := make([]Coords, 0, CountInLonLat(b, zoomMin, zoomMax))
	for z := zoomMin; z <= zoomMax; z++ {
		minT, maxT := lonLatRange(b, z)
		for x := minT.X; x <= maxT.X; x++ {
			for y := minT.Y; y <= maxT.Y; y++ {
				tiles = append(tiles, NewCoords(uint32(z), x, y))
			}
		}
	}
	return tiles
}

// CountInLonLat returns len(TilesInLonLat(b, zoomMin, zoomMax)) without
// building the list.
func CountInLonLat(b orb.Bound, zoomMin, zoomMax int) int {
	count := 0
	for z := zoomMin; z <= zoomMax; z++ {
		minT, maxT := lonLatRange(b, z)
		count += int(maxT.X-minT.X+1) * int(maxT.Y-minT.Y+1)
	}
	return count
}

// lonLatRange returns the top-left and bottom-right tiles of b at zoom z.
// Points beyond the Mercator square are clamped to its edge. Edges of b that
// fall on a tile border do not select the tile beyond it.
func lonLatRange(b orb.Bound, z int) (minT, maxT maptile.Tile) {
	zoom := maptile.Zoom(z)
	clampLat := func(lat float64) float64 {
		return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
	}
	clampLon := func(lon float64) float64 {
		return math.Max(-180, math.Min(180, lon))
	}
	nw := orb.Point{clampLon(math.Min(b.Min.Lon(), b.Max.Lon())), clampLat(math.Max(b.Min.Lat(), b.Max.Lat()))}
	se := orb.Point{clampLon(math.Max(b.Min.Lon(), b.Max.Lon())), clampLat(math.Min(b.Min.Lat(), b.Max.Lat()))}
	minT, maxT = maptile.At(nw, zoom), maptile.At(se, zoom)

	last := uint32(1)<<zoom - 1
	minT.X, maxT.X = min(minT.X, last), min(maxT.X, last)
	minT.Y, maxT.Y = min(minT.Y, last), min(maxT.Y, last)

	if first := minT.Bound(); minT.X < maxT.X && math.Abs(nw.Lon()-first.Max.Lon()) < edgeEpsilon {
		minT.X++
	}
	if first := minT.Bound(); minT.Y < maxT.Y && math.Abs(nw.Lat()-first.Min.Lat()) < edgeEpsilon {
		minT.Y++
	}
	if edge := maxT.Bound(); maxT.X > minT.X && math.Abs(se.Lon()-edge.Min.Lon()) < edgeEpsilon {
		maxT.X--
	}
	if edge := maxT.Bound(); maxT.Y > minT.Y && math.Abs(se.Lat()-edge.Max.Lat()) < edgeEpsilon {
		maxT.Y--
	}
	return minT, maxT
}

const edgeEpsilon = 1e-9
