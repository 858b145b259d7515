// Package sampling lays out point-intercept ("dot-point") grids over image frames.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	// MinRows and MaxRows bound the number of horizontal bands in a grid.
	MinRows = 3
	MaxRows = 5
	// DefaultColumnsPerRow is the number of dot-points placed in every band.
	DefaultColumnsPerRow = 5
)

var (
	// ErrInvalidDimension is returned when the bounding region has no area.
	ErrInvalidDimension = errors.New("invalid image dimension")
	// ErrInvalidConfiguration is returned for out-of-range grid parameters.
	ErrInvalidConfiguration = errors.New("invalid grid configuration")
)

// Region is the bounding rectangle of an image, with origin at (0,0).
type Region struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DotPoint is a single sample point of a grid. IDs are 1-based and only
// unique within the grid that produced them.
type DotPoint struct {
	ID         int      `json:"id"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Biota      []string `json:"biota"`
	Substrates []string `json:"substrates"`
}

// Options controls grid generation.
type Options struct {
	Rows          int     `json:"n_rows"`
	ColumnsPerRow int     `json:"columns_per_row"`
	EnableRandom  bool    `json:"enable_random"`
	NoisePercent  float64 `json:"noise_percent"`
}

// DefaultOptions returns a deterministic three-row grid.
func DefaultOptions() Options {
	return Options{
		Rows:          MinRows,
		ColumnsPerRow: DefaultColumnsPerRow,
	}
}

// PointCount is the number of dot-points a grid built with these options holds.
func (o Options) PointCount() int {
	return o.Rows * o.ColumnsPerRow
}

// Validate checks the options against their allowed ranges.
func (o Options) Validate() error {
	if o.Rows < MinRows || o.Rows > MaxRows {
		return fmt.Errorf("%w: n_rows=%d outside [%d, %d]", ErrInvalidConfiguration, o.Rows, MinRows, MaxRows)
	}
	if o.ColumnsPerRow < 1 {
		return fmt.Errorf("%w: columns_per_row=%d must be positive", ErrInvalidConfiguration, o.ColumnsPerRow)
	}
	if math.IsNaN(o.NoisePercent) || o.NoisePercent < 0 || o.NoisePercent > 1 {
		return fmt.Errorf("%w: noise_percent=%v outside [0, 1]", ErrInvalidConfiguration, o.NoisePercent)
	}
	return nil
}

// Validate checks that the region has a positive area.
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimension, r.Width, r.Height)
	}
	return nil
}

// GenerateGrid partitions the region into opts.Rows bands of equal height and
// places opts.ColumnsPerRow evenly spaced points at the vertical centre of each
// band. Points are returned in row-major order with IDs 1..N.
//
// With EnableRandom every coordinate is shifted by a uniform offset of at most
// NoisePercent of the column spacing (x) or band height (y), then clamped back
// into [0,Width) x [0,Height).
func GenerateGrid(region Region, opts Options) ([]DotPoint, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	bandHeight := float64(region.Height) / float64(opts.Rows)
	colSpacing := float64(region.Width) / float64(opts.ColumnsPerRow)

	points := make([]DotPoint, 0, opts.PointCount())
	id := 1
	for row := 0; row < opts.Rows; row++ {
		cy := (float64(row) + 0.5) * bandHeight
		for col := 0; col < opts.ColumnsPerRow; col++ {
			x := (float64(col) + 0.5) * colSpacing
			y := cy
			if opts.EnableRandom {
				x += jitter(opts.NoisePercent * colSpacing)
				y += jitter(opts.NoisePercent * bandHeight)
			}
			points = append(points, newDotPoint(id, x, y, region))
			id++
		}
	}

	return points, nil
}

// PointIDs returns the IDs of the points in render order.
func PointIDs(points []DotPoint) []int {
	ids := make([]int, len(points))
	for i, p := range points {
		ids[i] = p.ID
	}
	return ids
}

func newDotPoint(id int, x, y float64, region Region) DotPoint {
	return DotPoint{
		ID:         id,
		X:          clamp(x, region.Width),
		Y:          clamp(y, region.Height),
		Biota:      []string{},
		Substrates: []string{},
	}
}

// jitter returns a uniform offset in [-amplitude, +amplitude].
func jitter(amplitude float64) float64 {
	if amplitude == 0 {
		return 0
	}
	return (rand.Float64()*2 - 1) * amplitude
}

// clamp truncates v to an integer in [0, limit).
func clamp(v float64, limit int) int {
	i := int(math.Floor(v))
	if i < 0 {
		return 0
	}
	if i > limit-1 {
		return limit - 1
	}
	return i
}
