// SessionUpdate selects a survey, a station or grid options. Nil fields are left unchanged.
package dto

import "seams/internal/sampling"

type SessionUpdate struct {
	SurveyID  *string           `json:"survey_id,omitempty"`
	StationID *string           `json:"station_id,omitempty"`
	Grid      *sampling.Options `json:"grid,omitempty"`
}
