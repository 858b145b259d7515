// FramesData lists the frames of a station and which of them are annotated.
package dto

type FramesData struct {
	SurveyID  string      `json:"survey_id"`
	StationID string      `json:"station_id"`
	Frames    []FrameInfo `json:"frames"`
	Done      []int       `json:"done"`
	Pending   []int       `json:"pending"`
}

// FrameInfo describes one extracted frame.
type FrameInfo struct {
	FrameID    int    `json:"frame_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Annotated  int    `json:"annotated_points"`
	PointCount int    `json:"point_count,omitempty"`
}
