package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	_ "image/png"

	"golang.org/x/image/draw"
)

const thumbnailQuality = 85

// Thumbnail decodes a JPEG or PNG image and re-encodes it as JPEG, scaled down
// to maxWidth pixels wide with its aspect ratio kept. Narrower images are not
// enlarged.
func Thumbnail(r io.Reader, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		return nil, fmt.Errorf("invalid thumbnail width %d", maxWidth)
	}

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxWidth {
		height = max(1, height*maxWidth/width)
		width = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
