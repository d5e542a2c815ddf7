// Package tile addresses square noise tiles as z/x/y, both over the noise
// plane (Pyramid) and overlaid on a Web Mercator map (geo.go).
package tile

import (
	"fmt"
	"strings"
)

// Coords identifies a tile: zoom, column and row. Row 0 is the top.
type Coords struct {
	Z uint32
	X uint32
	Y uint32
}

// NewCoords creates a new Coords from zoom, x, y values
func NewCoords(z, x, y uint32) Coords {
	return Coords{Z: z, X: x, Y: y}
}

// String returns the flat tile name, "z{zoom}_x{x}_y{y}".
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Valid reports whether X and Y lie inside the grid of zoom Z.
func (c Coords) Valid() bool {
	if c.Z > MaxZoom {
		return false
	}
	n := uint32(1) << c.Z
	return c.X < n && c.Y < n
}

// Parent returns the tile one zoom level up that contains c. The root is its
// own parent.
func (c Coords) Parent() Coords {
	if c.Z == 0 {
		return c
	}
	return Coords{Z: c.Z - 1, X: c.X / 2, Y: c.Y / 2}
}

// ParseCoords accepts the flat name ("z13_x4297_y2754") or a slash separated
// path ("13/4297/2754").
func ParseCoords(s string) (Coords, error) {
	var c Coords
	format := "z%d_x%d_y%d"
	if strings.Contains(s, "/") {
		format = "%d/%d/%d"
	}
	n, err := fmt.Sscanf(s, format, &c.Z, &c.X, &c.Y)
	if err != nil || n != 3 {
		return Coords{}, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	if c.String() != s && fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y) != s {
		return Coords{}, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	return c, nil
}
