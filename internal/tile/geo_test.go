package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLonLat(t *testing.T) {
	root := NewCoords(0, 0, 0).LonLat()
	assert.InDelta(t, -180, root.Min.Lon(), 1e-9)
	assert.InDelta(t, 180, root.Max.Lon(), 1e-9)
	assert.InDelta(t, MaxLatitude, root.Max.Lat(), 1e-6)
	assert.InDelta(t, -MaxLatitude, root.Min.Lat(), 1e-6)

	// z13_x4297_y2754 lies over Central Europe.
	b := NewCoords(13, 4297, 2754).LonLat()
	assert.Less(t, b.Min.Lon(), b.Max.Lon())
	assert.Less(t, b.Min.Lat(), b.Max.Lat())
	assert.Greater(t, b.Min.Lon(), -10.0)
	assert.Less(t, b.Max.Lon(), 40.0)
	assert.Greater(t, b.Min.Lat(), 35.0)
	assert.Less(t, b.Max.Lat(), 70.0)
}

func TestBBoxBoundRoundTrip(t *testing.T) {
	bbox := [4]float64{-1, -2, 3, 4}
	b := BBoxBound(bbox)
	assert.Equal(t, -1.0, b.Min.X())
	assert.Equal(t, 4.0, b.Max.Y())
	assert.Equal(t, bbox, BoundBBox(b))
}

func TestTilesInLonLat(t *testing.T) {
	t.Run("exact tile selects itself", func(t *testing.T) {
		c := NewCoords(13, 4297, 2754)
		tiles := TilesInLonLat(c.LonLat(), 13, 13)
		require.Len(t, tiles, 1)
		assert.Equal(t, c, tiles[0])
	})

	t.Run("whole world", func(t *testing.T) {
		world := NewCoords(0, 0, 0).LonLat()
		for z := 0; z <= 3; z++ {
			n := 1 << z
			assert.Equal(t, n*n, CountInLonLat(world, z, z), "zoom %d", z)
		}
		assert.Len(t, TilesInLonLat(world, 0, 2), 1+4+16)
	})

	t.Run("latitudes beyond mercator are clamped", func(t *testing.T) {
		tiles := TilesInLonLat(BBoxBound([4]float64{-180, -90, 180, 90}), 1, 1)
		assert.Len(t, tiles, 4)
		for _, c := range tiles {
			assert.True(t, c.Valid(), c.String())
		}
	})

	t.Run("count matches list", func(t *testing.T) {
		b := BBoxBound([4]float64{9.6, 52.3, 9.9, 52.45})
		tiles := TilesInLonLat(b, 10, 13)
		assert.Equal(t, CountInLonLat(b, 10, 13), len(tiles))
		assert.NotEmpty(t, tiles)
	})
}
