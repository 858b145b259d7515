package dto

import "seams/internal/model"

// ImportResult reports what a survey import produced.
type ImportResult struct {
	SurveyID      string          `json:"survey_id"`
	MediaKind     model.MediaKind `json:"media_kind"`
	Stations      int             `json:"stations"`
	UnknownVideos []string        `json:"unknown_videos"`
}
