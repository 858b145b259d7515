package survey

import (
	"fmt"
	"io"
	"time"

	"seams/internal/model"
)

// Request carries the inputs of a survey import.
type Request struct {
	SurveyID     string
	StationsName string
	Stations     io.Reader
	Videos       io.Reader
	Kind         model.MediaKind
	CreatedBy    string
	Options      CSVOptions
}

// Result is an imported survey plus the video site names that matched no station.
type Result struct {
	Survey        *model.Survey
	UnknownVideos []string
}

// Import parses the stations file (and the videos file for video surveys) into
// a new survey. When SurveyID is empty it is derived from StationsName.
func Import(req Request, now time.Time) (*Result, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: media kind %q", ErrInvalidOptions, req.Kind)
	}
	if req.Stations == nil {
		return nil, fmt.Errorf("%w: stations file is required", ErrInvalidValue)
	}

	id := req.SurveyID
	if id == "" {
		id = SurveyIDFromFilename(req.StationsName)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: survey id could not be determined", ErrInvalidValue)
	}

	stations, err := ParseStations(req.Stations, req.Options)
	if err != nil {
		return nil, fmt.Errorf("stations file: %w", err)
	}
	EnsureMedia(stations, req.Kind)

	res := &Result{
		Survey: &model.Survey{
			SurveyID:  id,
			MediaKind: req.Kind,
			CreatedBy: req.CreatedBy,
			CreatedAt: now.UTC(),
			Stations:  stations,
		},
	}

	if req.Kind == model.MediaVideo && req.Videos != nil {
		videos, err := ParseVideos(req.Videos, req.Options)
		if err != nil {
			return nil, fmt.Errorf("videos file: %w", err)
		}
		res.UnknownVideos = AttachVideos(stations, videos)
	}

	return res, nil
}
