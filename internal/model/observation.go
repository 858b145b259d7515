package model

import (
	"sort"
	"time"

	"seams/internal/annotation"
)

const (
	ObservationTaxon     = "taxon"
	ObservationSubstrate = "substrate"
)

// Observation is one row of the flat observation index: a single taxon or
// substrate recorded under a dot-point.
type Observation struct {
	ID          int64     `json:"id"`
	SurveyID    string    `json:"survey_id"`
	StationID   string    `json:"station_id"`
	FrameID     int       `json:"frame_id"`
	PointID     int       `json:"point_id"`
	Kind        string    `json:"kind"`
	Value       string    `json:"value"`
	AnnotatedBy string    `json:"annotated_by"`
	AnnotatedAt time.Time `json:"annotated_at"`
}

// TaxonCount is the number of dot-points a taxon was recorded under.
type TaxonCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ObservationsFromFrame flattens the dot-point annotations of a frame into
// index rows, ordered by point id.
func ObservationsFromFrame(surveyID, stationID string, frame *annotation.Frame) []Observation {
	if frame == nil {
		return nil
	}

	ids := make([]int, 0, len(frame.DotPoints))
	for id := range frame.DotPoints {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []Observation
	for _, id := range ids {
		p := frame.DotPoints[id]
		if p == nil {
			continue
		}
		row := Observation{
			SurveyID:    surveyID,
			StationID:   stationID,
			FrameID:     frame.FrameID,
			PointID:     id,
			AnnotatedBy: p.AnnotatedBy,
			AnnotatedAt: p.AnnotatedAt,
		}
		for _, taxon := range p.Taxa {
			row.Kind, row.Value = ObservationTaxon, taxon
			out = append(out, row)
		}
		for _, sub := range p.Substrates {
			row.Kind, row.Value = ObservationSubstrate, sub
			out = append(out, row)
		}
	}
	return out
}
