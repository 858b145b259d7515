package dto

import (
	"seams/internal/model"
	"seams/internal/sampling"
)

// SessionSummary is the working state shown on every page.
type SessionSummary struct {
	User            model.User       `json:"user"`
	SurveyID        string           `json:"survey_id,omitempty"`
	MediaKind       model.MediaKind  `json:"media_kind,omitempty"`
	SelectedStation string           `json:"selected_station,omitempty"`
	CurrentVideo    string           `json:"current_video,omitempty"`
	Grid            sampling.Options `json:"grid"`
	Surveys         []string         `json:"surveys"`
}
