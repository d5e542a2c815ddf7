package render

import (
	"fmt"
	"image"
	"os"
)

// Load decodes a PNG, BMP or TIFF image from path. The decoders register
// themselves through the encoder imports of this package.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}
