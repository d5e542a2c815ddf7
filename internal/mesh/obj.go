package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteOBJ writes m as a Wavefront OBJ. Vertex colours are appended to the
// "v" lines as r g b in [0,1], which most viewers understand.
func WriteOBJ(w io.Writer, m Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# gabornoise mesh: %d vertices, %d triangles\n", len(m.Positions), len(m.Triangles))

	hasColor := len(m.Colors) == len(m.Positions)
	for i, p := range m.Positions {
		if hasColor {
			c := m.Colors[i]
			fmt.Fprintf(bw, "v %.6f %.6f %.6f %.4f %.4f %.4f\n", p.X, p.Y, p.Z,
				float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		} else {
			fmt.Fprintf(bw, "v %.6f %.6f %.6f\n", p.X, p.Y, p.Z)
		}
	}

	hasUV := len(m.UVs) == len(m.Positions)
	if hasUV {
		for _, uv := range m.UVs {
			fmt.Fprintf(bw, "vt %.6f %.6f\n", uv[0], uv[1])
		}
	}
	hasNormal := len(m.Normals) == len(m.Positions)
	if hasNormal {
		for _, n := range m.Normals {
			fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", n.X, n.Y, n.Z)
		}
	}

	for _, t := range m.Triangles {
		bw.WriteString("f")
		for _, idx := range t {
			if idx < 0 || idx >= len(m.Positions) {
				return fmt.Errorf("triangle references vertex %d of %d", idx, len(m.Positions))
			}
			k := idx + 1
			switch {
			case hasUV && hasNormal:
				fmt.Fprintf(bw, " %d/%d/%d", k, k, k)
			case hasUV:
				fmt.Fprintf(bw, " %d/%d", k, k)
			case hasNormal:
				fmt.Fprintf(bw, " %d//%d", k, k)
			default:
				fmt.Fprintf(bw, " %d", k)
			}
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// SaveOBJ writes m to path.
func SaveOBJ(path string, m Mesh) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mesh %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteOBJ(file, m); err != nil {
		return fmt.Errorf("failed to write mesh %s: %w", path, err)
	}
	return file.Close()
}
