package dto

import "seams/internal/sampling"

// GridData is the dot-point grid drawn over a frame.
type GridData struct {
	FrameID int                 `json:"frame_id"`
	Region  sampling.Region     `json:"region"`
	Options sampling.Options    `json:"options"`
	Points  []sampling.DotPoint `json:"points"`
}
