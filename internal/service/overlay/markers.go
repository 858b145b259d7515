// Package overlay draws dot-point grids onto frames with OpenCV.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"seams/internal/logger"
	"seams/internal/sampling"
)

const (
	// MarkerRadius is the radius of a dot-point marker in pixels.
	MarkerRadius = 10
	// MarkerThickness is the stroke width of the marker ring.
	MarkerThickness = 2
)

// MarkerRenderer draws numbered circles on top of a frame.
type MarkerRenderer struct {
	marker color.RGBA
	label  color.RGBA
	logger *logger.Logger
}

// NewMarkerRenderer creates a renderer drawing red rings with yellow labels.
func NewMarkerRenderer(logger *logger.Logger) *MarkerRenderer {
	return &MarkerRenderer{
		marker: color.RGBA{R: 255, G: 0, B: 0, A: 0},
		label:  color.RGBA{R: 255, G: 255, B: 0, A: 0},
		logger: logger,
	}
}

// Render draws every point of the grid on img and returns a re-encoded JPEG buffer.
func (r *MarkerRenderer) Render(img []byte, points []sampling.DotPoint) ([]byte, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	for _, p := range points {
		center := image.Pt(p.X, p.Y)
		if err := gocv.Circle(&mat, center, MarkerRadius, r.marker, MarkerThickness); err != nil {
			return nil, fmt.Errorf("failed to draw marker %d: %v", p.ID, err)
		}

		pt := image.Pt(p.X+MarkerRadius+2, p.Y-MarkerRadius)
		if err := gocv.PutText(&mat, strconv.Itoa(p.ID), pt, gocv.FontHersheySimplex, 0.6, r.label, 2); err != nil {
			return nil, fmt.Errorf("failed to draw label %d: %v", p.ID, err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		r.logger.Error("Failed to encode overlay: %v", err)
		return nil, err
	}
	defer buf.Close()
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())

	return out, nil
}
