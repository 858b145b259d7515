package service

import (
	"bytes"
	"fmt"

	"seams/internal/annotation"
	"seams/internal/dto"
	"seams/internal/model"
	"seams/internal/service/websocket"
	"seams/internal/session"
	"seams/internal/survey"
)

// ImportRequest carries the uploaded survey files.
type ImportRequest struct {
	SurveyID     string
	StationsName string
	Stations     []byte
	VideosName   string
	Videos       []byte
	Kind         model.MediaKind
	Options      survey.CSVOptions
}

// ImportSurvey parses the uploaded files into a survey, stores it as the
// current survey and selects it for the session. Re-importing a survey keeps
// the frames and annotations of stations that still exist.
func (m *Manager) ImportSurvey(st *session.State, req ImportRequest) (*dto.ImportResult, error) {
	in := survey.Request{
		SurveyID:     req.SurveyID,
		StationsName: req.StationsName,
		Stations:     bytes.NewReader(req.Stations),
		Kind:         req.Kind,
		CreatedBy:    st.User.Name,
		Options:      req.Options,
	}
	if len(req.Videos) > 0 {
		in.Videos = bytes.NewReader(req.Videos)
	}

	res, err := survey.Import(in, m.now())
	if err != nil {
		return nil, err
	}
	imported := res.Survey

	if _, err := m.media.SaveUpload(imported.SurveyID, req.StationsName, bytes.NewReader(req.Stations)); err != nil {
		m.logger.Warning("Could not keep stations file of %s: %v", imported.SurveyID, err)
	}
	if in.Videos != nil {
		if _, err := m.media.SaveUpload(imported.SurveyID, req.VideosName, bytes.NewReader(req.Videos)); err != nil {
			m.logger.Warning("Could not keep videos file of %s: %v", imported.SurveyID, err)
		}
	}

	_, err = m.surveys.Update(func(book *model.SurveyBook) error {
		if previous, err := book.Survey(imported.SurveyID); err == nil {
			carryOver(previous, imported)
		}
		book.PutSurvey(imported)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save survey: %w", err)
	}

	if _, err := m.sessions.Update(st.ID, func(s *session.State) error {
		s.SurveyID = imported.SurveyID
		s.MediaKind = imported.MediaKind
		s.SelectedStation = ""
		s.CurrentVideo = ""
		return nil
	}); err != nil {
		return nil, err
	}

	for _, name := range res.UnknownVideos {
		m.logger.Warning("Video entry for unknown station %s in survey %s", name, imported.SurveyID)
	}
	m.logger.Info("Imported survey %s with %d stations", imported.SurveyID, len(imported.Stations))
	m.hub.Broadcast(websocket.Event{
		Type:     websocket.EventSurveyImported,
		SurveyID: imported.SurveyID,
		Total:    len(imported.Stations),
	})

	unknown := res.UnknownVideos
	if unknown == nil {
		unknown = []string{}
	}
	return &dto.ImportResult{
		SurveyID:      imported.SurveyID,
		MediaKind:     imported.MediaKind,
		Stations:      len(imported.Stations),
		UnknownVideos: unknown,
	}, nil
}

// carryOver copies extracted frames and annotations of previous into the
// matching stations of next. Videos from the new import win; without any the
// previous ones are kept.
func carryOver(previous, next *model.Survey) {
	for id, station := range next.Stations {
		old, ok := previous.Stations[id]
		if !ok || old.Media == nil {
			continue
		}
		md := station.EnsureMedia()
		if len(md.Videos) == 0 {
			md.Videos = old.Media.Videos
		}
		if len(md.Photos) == 0 {
			md.Photos = old.Media.Photos
		}
		md.Frames = old.Media.Frames
		md.InterpretedFrames = old.Media.InterpretedFrames
	}
}

// ListStations summarizes every station of a survey with its annotation progress.
func (m *Manager) ListStations(surveyID string) ([]dto.StationSummary, error) {
	book, err := m.surveys.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load surveys: %w", err)
	}
	s, err := book.Survey(surveyID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.StationSummary, 0, len(s.Stations))
	for _, id := range s.StationIDs() {
		station := s.Stations[id]
		summary := dto.StationSummary{
			StationID:     station.StationID,
			SiteName:      station.SiteName,
			EventDate:     station.EventDate,
			MaximumDepthM: station.MaximumDepthM,
			Latitude:      station.Location.DecimalLatitude,
			Longitude:     station.Location.DecimalLongitude,
			HasMedia:      station.HasMedia(s.MediaKind),
		}
		if station.Media != nil {
			done, pending := annotation.CompletionSummary(station.Media.InterpretedFrames)
			summary.FramesDone = len(done)
			summary.FramesTotal = len(done) + len(pending)
			summary.Complete = summary.FramesTotal > 0 && len(pending) == 0
		}
		out = append(out, summary)
	}
	return out, nil
}

// TaxonCounts returns how many dot-points each taxon was recorded under.
func (m *Manager) TaxonCounts(surveyID string) ([]model.TaxonCount, error) {
	book, err := m.surveys.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load surveys: %w", err)
	}
	if _, err := book.Survey(surveyID); err != nil {
		return nil, err
	}
	counts, err := m.observations.TaxonCounts(surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count taxa: %w", err)
	}
	if counts == nil {
		counts = []model.TaxonCount{}
	}
	return counts, nil
}
