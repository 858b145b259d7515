package sampling

import (
	"fmt"
	"image"
	"io"
	"os"

	_ "image/jpeg"
	_ "image/png"
)

// RegionFromImage reads the image header from r and returns its bounding region.
// Only JPEG and PNG are registered.
func RegionFromImage(r io.Reader) (Region, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return Region{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	region := Region{Width: cfg.Width, Height: cfg.Height}
	if err := region.Validate(); err != nil {
		return Region{}, err
	}
	return region, nil
}

// RegionFromFile opens path and returns the bounding region of the image in it.
func RegionFromFile(path string) (Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return Region{}, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	return RegionFromImage(f)
}
