package service

import (
	"fmt"
	"strings"

	"seams/internal/annotation"
	"seams/internal/catalog"
	"seams/internal/model"
	"seams/internal/service/websocket"
	"seams/internal/session"
)

// Catalog returns the annotation vocabularies.
func (m *Manager) Catalog() catalog.Catalog {
	return catalog.Default()
}

// FrameAnnotation returns the annotation record of a frame of the selected station.
func (m *Manager) FrameAnnotation(st *session.State, frameID int) (*annotation.Frame, error) {
	_, station, err := m.locate(st, st.SelectedStation)
	if err != nil {
		return nil, err
	}
	if station.Media == nil {
		return nil, fmt.Errorf("%w: frame %d", annotation.ErrDocumentInconsistency, frameID)
	}
	return annotation.Lookup(station.Media.InterpretedFrames, frameID)
}

// SubmitAnnotation records sub on a frame of the selected station, saves the
// survey file and refreshes the observation index of the frame. Point ids are
// checked against the grid last drawn on the frame in this session.
func (m *Manager) SubmitAnnotation(st *session.State, frameID int, sub annotation.Submission) (*annotation.Frame, error) {
	if st.SurveyID == "" {
		return nil, ErrNoSurveySelected
	}
	if st.SelectedStation == "" {
		return nil, ErrNoStationSelected
	}

	substrates, err := catalog.NormalizeSubstrates(compact(sub.Substrates))
	if err != nil {
		return nil, err
	}
	if err := catalog.ValidateNotes(sub.Notes); err != nil {
		return nil, err
	}
	sub.Substrates = substrates
	sub.Taxa = compact(sub.Taxa)
	for _, taxon := range sub.Taxa {
		if !catalog.IsTaxon(taxon) {
			m.logger.Warning("Taxon %q on frame %d of station %s is not in the catalog", taxon, frameID, st.SelectedStation)
		}
	}
	sub.AnnotatedBy = st.User.Name
	sub.AnnotatedAt = m.now().UTC()

	pointCount := len(st.Grids[frameID])
	if pointCount == 0 {
		pointCount = st.Grid.PointCount()
	}

	surveyID, stationID := st.SurveyID, st.SelectedStation
	var saved annotation.Frame
	if _, err := m.surveys.Update(func(book *model.SurveyBook) error {
		station, err := stationIn(book, surveyID, stationID)
		if err != nil {
			return err
		}
		md := station.EnsureMedia()
		doc := annotation.EnsureInitialized(md.InterpretedFrames, md.Frames)
		doc, err = annotation.Submit(doc, frameID, pointCount, sub)
		if err != nil {
			return err
		}
		md.InterpretedFrames = doc
		saved = *doc[frameID]
		return nil
	}); err != nil {
		return nil, err
	}

	obs := model.ObservationsFromFrame(surveyID, stationID, &saved)
	if err := m.observations.ReplaceFrame(surveyID, stationID, frameID, obs); err != nil {
		return nil, fmt.Errorf("annotation saved but not indexed: %w", err)
	}

	m.logger.Info("%s annotated %d point(s) on frame %d of %s/%s", st.User.Name, len(sub.PointIDs), frameID, surveyID, stationID)
	m.hub.Broadcast(websocket.Event{
		Type:      websocket.EventAnnotation,
		SurveyID:  surveyID,
		StationID: stationID,
		FrameID:   frameID,
		Done:      len(saved.DotPoints),
		Total:     pointCount,
	})
	return &saved, nil
}

// Reindex rebuilds the observation index of a survey from the survey file and
// returns the number of observations written.
func (m *Manager) Reindex(surveyID string) (int, error) {
	book, err := m.surveys.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load surveys: %w", err)
	}
	s, err := book.Survey(surveyID)
	if err != nil {
		return 0, err
	}

	if err := m.observations.DeleteBySurvey(surveyID); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}

	total := 0
	for _, stationID := range s.StationIDs() {
		station := s.Stations[stationID]
		if station.Media == nil {
			continue
		}
		doc := station.Media.InterpretedFrames
		for _, frameID := range annotation.FrameIDs(doc) {
			frame := doc[frameID]
			if frame == nil || frame.Status != annotation.StatusDone {
				continue
			}
			obs := model.ObservationsFromFrame(surveyID, stationID, frame)
			if err := m.observations.ReplaceFrame(surveyID, stationID, frameID, obs); err != nil {
				return total, fmt.Errorf("failed to index frame %d of %s: %w", frameID, stationID, err)
			}
			total += len(obs)
		}
	}

	m.logger.Info("Reindexed survey %s: %d observations", surveyID, total)
	return total, nil
}

// compact trims entries and drops empty ones.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
