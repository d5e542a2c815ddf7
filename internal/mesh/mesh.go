// Package mesh builds simple triangle meshes, shades them with noise and
// writes them as Wavefront OBJ files with per-vertex colours.
package mesh

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh. Normals, UVs and Colors, when present,
// have one entry per position.
type Mesh struct {
	Positions []r3.Vec
	Normals   []r3.Vec
	UVs       [][2]float64
	Colors    []color.RGBA
	Triangles [][3]int
}

// Grid returns an n×n vertex grid spanning [-half, half]² in the z=0 plane,
// with normals along +z and UVs in [0,1]².
func Grid(n int, half float64) Mesh {
	if n < 2 {
		n = 2
	}
	m := Mesh{
		Positions: make([]r3.Vec, 0, n*n),
		Normals:   make([]r3.Vec, 0, n*n),
		UVs:       make([][2]float64, 0, n*n),
	}
	for j := 0; j < n; j++ {
		v := float64(j) / float64(n-1)
		for i := 0; i < n; i++ {
			u := float64(i) / float64(n-1)
			m.Positions = append(m.Positions, r3.Vec{X: -half + 2*half*u, Y: -half + 2*half*v})
			m.Normals = append(m.Normals, r3.Vec{Z: 1})
			m.UVs = append(m.UVs, [2]float64{u, v})
		}
	}
	m.Triangles = gridTriangles(n, n, false)
	return m
}

// Sphere returns a UV sphere centred on the origin, built from the south pole up.
func Sphere(radius float64, slices, stacks int) Mesh {
	slices = max(slices, 3)
	stacks = max(stacks, 2)
	var m Mesh
	for j := 0; j <= stacks; j++ {
		v := float64(j) / float64(stacks)
		theta := math.Pi * (1 - v)
		for i := 0; i <= slices; i++ {
			u := float64(i) / float64(slices)
			phi := 2 * math.Pi * u
			n := r3.Vec{
				X: math.Sin(theta) * math.Cos(phi),
				Y: math.Sin(theta) * math.Sin(phi),
				Z: math.Cos(theta),
			}
			m.Positions = append(m.Positions, r3.Scale(radius, n))
			m.Normals = append(m.Normals, n)
			m.UVs = append(m.UVs, [2]float64{u, v})
		}
	}
	m.Triangles = gridTriangles(slices+1, stacks+1, true)
	return m
}

// Cylinder returns an open cylinder of the given radius around the z axis,
// spanning z in [0, height].
func Cylinder(radius, height float64, slices, stacks int) Mesh {
	slices = max(slices, 3)
	stacks = max(stacks, 1)
	var m Mesh
	for j := 0; j <= stacks; j++ {
		v := float64(j) / float64(stacks)
		for i := 0; i <= slices; i++ {
			u := float64(i) / float64(slices)
			phi := 2 * math.Pi * u
			n := r3.Vec{X: math.Cos(phi), Y: math.Sin(phi)}
			m.Positions = append(m.Positions, r3.Vec{X: radius * n.X, Y: radius * n.Y, Z: height * v})
			m.Normals = append(m.Normals, n)
			m.UVs = append(m.UVs, [2]float64{u, v})
		}
	}
	m.Triangles = gridTriangles(slices+1, stacks+1, false)
	return m
}

// gridTriangles triangulates a cols×rows vertex grid stored row by row.
// Degenerate triangles at the poles of a sphere are skipped when poles is set.
func gridTriangles(cols, rows int, poles bool) [][3]int {
	tris := make([][3]int, 0, 2*(cols-1)*(rows-1))
	for j := 0; j < rows-1; j++ {
		for i := 0; i < cols-1; i++ {
			a := j*cols + i
			b := a + 1
			c := a + cols
			d := c + 1
			if !poles || j != 0 {
				tris = append(tris, [3]int{a, b, d})
			}
			if !poles || j != rows-2 {
				tris = append(tris, [3]int{a, d, c})
			}
		}
	}
	return tris
}

// ComputeNormals replaces the normals with area weighted averages of the
// adjacent face normals. Vertices without faces keep their current normal.
func (m *Mesh) ComputeNormals() {
	normals := make([]r3.Vec, len(m.Positions))
	for _, t := range m.Triangles {
		p0, p1, p2 := m.Positions[t[0]], m.Positions[t[1]], m.Positions[t[2]]
		face := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
		for _, idx := range t {
			normals[idx] = r3.Add(normals[idx], face)
		}
	}
	keep := len(m.Normals) == len(normals)
	for i, n := range normals {
		switch {
		case r3.Norm(n) > 0:
			normals[i] = r3.Unit(n)
		case keep:
			normals[i] = m.Normals[i]
		}
	}
	m.Normals = normals
}
