package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"seams/internal/annotation"
	"seams/internal/dto"
	"seams/internal/media"
	"seams/internal/model"
	"seams/internal/sampling"
	"seams/internal/service/websocket"
	"seams/internal/session"
)

// VideoInfo reports the capture properties of the first video of a station.
func (m *Manager) VideoInfo(st *session.State, stationID string) (*media.VideoInfo, error) {
	_, station, err := m.locate(st, stationID)
	if err != nil {
		return nil, err
	}
	_, path, ok := station.Media.FirstVideo()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMedia, stationID)
	}
	info, err := m.video.Info(path)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ConvertVideo re-encodes the first video of a station to the target codec
// when it is not already in it, and points the station at the new file.
func (m *Manager) ConvertVideo(ctx context.Context, st *session.State, stationID string) (*media.VideoInfo, error) {
	s, station, err := m.locate(st, stationID)
	if err != nil {
		return nil, err
	}
	name, path, ok := station.Media.FirstVideo()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMedia, stationID)
	}

	info, err := m.video.Info(path)
	if err != nil {
		return nil, err
	}
	if !media.NeedsConversion(info, m.cfg.Video.TargetCodec) {
		return &info, nil
	}

	out := m.media.ConvertedVideoPath(s.SurveyID, stationID, name)
	if err := m.video.ConvertCodec(ctx, path, out); err != nil {
		return nil, err
	}

	if _, err := m.surveys.Update(func(book *model.SurveyBook) error {
		station, err := stationIn(book, s.SurveyID, stationID)
		if err != nil {
			return err
		}
		station.EnsureMedia().Videos[name] = out
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to save survey: %w", err)
	}

	if st.SelectedStation == stationID {
		if _, err := m.sessions.Update(st.ID, func(state *session.State) error {
			state.CurrentVideo = out
			return nil
		}); err != nil {
			return nil, err
		}
	}

	m.hub.Broadcast(websocket.Event{
		Type:      websocket.EventVideoConverted,
		SurveyID:  s.SurveyID,
		StationID: stationID,
		Message:   filepath.Base(out),
	})

	converted, err := m.video.Info(out)
	if err != nil {
		return nil, err
	}
	return &converted, nil
}

// PrepareFrames selects the station and makes sure it has frames to annotate.
// Video stations get a random sample of frames extracted every
// frames.interval_seconds; photo stations use their photos, numbered from 1.
// Frames are only produced once; later calls return the existing ones.
func (m *Manager) PrepareFrames(ctx context.Context, st *session.State, stationID string) (*dto.FramesData, error) {
	s, station, err := m.locate(st, stationID)
	if err != nil {
		return nil, err
	}
	if _, err := m.sessions.Update(st.ID, func(state *session.State) error {
		selectStation(state, station)
		return nil
	}); err != nil {
		return nil, err
	}

	if station.Media != nil && len(station.Media.Frames) > 0 {
		return framesData(s.SurveyID, station), nil
	}

	var frames map[int]string
	switch s.MediaKind {
	case model.MediaPhotos:
		frames, err = photoFrames(station)
	default:
		frames, err = m.extractFrames(ctx, s.SurveyID, station)
	}
	if err != nil {
		return nil, err
	}

	book, err := m.surveys.Update(func(book *model.SurveyBook) error {
		station, err := stationIn(book, s.SurveyID, stationID)
		if err != nil {
			return err
		}
		md := station.EnsureMedia()
		if len(md.Frames) == 0 {
			md.Frames = frames
		}
		md.InterpretedFrames = annotation.EnsureInitialized(md.InterpretedFrames, md.Frames)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save survey: %w", err)
	}

	station, err = stationIn(book, s.SurveyID, stationID)
	if err != nil {
		return nil, err
	}

	m.hub.Broadcast(websocket.Event{
		Type:      websocket.EventFramesReady,
		SurveyID:  s.SurveyID,
		StationID: stationID,
		Total:     len(station.Media.Frames),
	})
	m.logger.Info("Station %s/%s has %d frames to annotate", s.SurveyID, stationID, len(station.Media.Frames))
	return framesData(s.SurveyID, station), nil
}

func photoFrames(station *model.Station) (map[int]string, error) {
	if !station.HasMedia(model.MediaPhotos) {
		return nil, fmt.Errorf("%w: %s", ErrNoMedia, station.StationID)
	}
	frames := make(map[int]string, len(station.Media.Photos))
	for i, path := range station.Media.Photos {
		frames[i+1] = path
	}
	return frames, nil
}

func (m *Manager) extractFrames(ctx context.Context, surveyID string, station *model.Station) (map[int]string, error) {
	_, path, ok := station.Media.FirstVideo()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMedia, station.StationID)
	}

	progress := func(done, total int) {
		m.hub.Broadcast(websocket.Event{
			Type:      websocket.EventFrameExtracted,
			SurveyID:  surveyID,
			StationID: station.StationID,
			Done:      done,
			Total:     total,
		})
	}

	outDir := m.media.FrameDir(surveyID, station.StationID)
	all, err := m.video.ExtractFrames(ctx, path, outDir, m.cfg.Frames.IntervalSeconds, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to extract frames: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no frame could be read from %s", ErrNoMedia, filepath.Base(path))
	}

	selected := media.SelectRandom(all, m.cfg.Frames.SampleSize)
	for id, file := range all {
		if _, keep := selected[id]; keep {
			continue
		}
		if err := os.Remove(file); err != nil {
			m.logger.Warning("Could not remove unused frame %s: %v", file, err)
		}
	}
	return selected, nil
}

// Frames lists the frames of a station with their annotation state.
func (m *Manager) Frames(st *session.State, stationID string) (*dto.FramesData, error) {
	s, station, err := m.locate(st, stationID)
	if err != nil {
		return nil, err
	}
	return framesData(s.SurveyID, station), nil
}

func framesData(surveyID string, station *model.Station) *dto.FramesData {
	data := &dto.FramesData{
		SurveyID:  surveyID,
		StationID: station.StationID,
		Frames:    []dto.FrameInfo{},
		Done:      []int{},
		Pending:   []int{},
	}
	if station.Media == nil {
		return data
	}

	ids := make([]int, 0, len(station.Media.Frames))
	for id := range station.Media.Frames {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	doc := station.Media.InterpretedFrames
	for _, id := range ids {
		info := dto.FrameInfo{
			FrameID: id,
			Name:    filepath.Base(station.Media.Frames[id]),
			Status:  annotation.StatusUnset.String(),
		}
		if frame, err := annotation.Lookup(doc, id); err == nil {
			info.Status = frame.Status.String()
			info.Annotated = len(frame.DotPoints)
			info.PointCount = frame.PointCount
		}
		data.Frames = append(data.Frames, info)
	}
	data.Done, data.Pending = annotation.CompletionSummary(doc)
	return data
}

// Photos lists the photos of a station.
func (m *Manager) Photos(st *session.State, stationID string) ([]string, error) {
	_, station, err := m.locate(st, stationID)
	if err != nil {
		return nil, err
	}
	if station.Media == nil || station.Media.Photos == nil {
		return []string{}, nil
	}
	return station.Media.Photos, nil
}

// AddPhoto stores an uploaded photo and appends it to the station.
func (m *Manager) AddPhoto(st *session.State, stationID, name string, r io.Reader) (string, error) {
	s, _, err := m.locate(st, stationID)
	if err != nil {
		return "", err
	}
	path, err := m.media.SaveUpload(filepath.Join(s.SurveyID, stationID), name, r)
	if err != nil {
		return "", err
	}
	if _, err := m.surveys.Update(func(book *model.SurveyBook) error {
		station, err := stationIn(book, s.SurveyID, stationID)
		if err != nil {
			return err
		}
		md := station.EnsureMedia()
		md.Photos = append(md.Photos, path)
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to save survey: %w", err)
	}
	return path, nil
}

// framePath resolves a frame of the station selected in the session.
func (m *Manager) framePath(st *session.State, frameID int) (string, error) {
	_, station, err := m.locate(st, st.SelectedStation)
	if err != nil {
		return "", err
	}
	if station.Media == nil {
		return "", fmt.Errorf("%w: %d", ErrFrameNotFound, frameID)
	}
	path, ok := station.Media.Frames[frameID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrFrameNotFound, frameID)
	}
	return path, nil
}

// Grid lays a fresh grid over a frame with the session's grid options and
// remembers it, so later submissions are checked against the points shown.
func (m *Manager) Grid(st *session.State, frameID int) (*dto.GridData, error) {
	path, err := m.framePath(st, frameID)
	if err != nil {
		return nil, err
	}
	region, err := sampling.RegionFromFile(path)
	if err != nil {
		return nil, err
	}
	points, err := sampling.GenerateGrid(region, st.Grid)
	if err != nil {
		return nil, err
	}

	if _, err := m.sessions.Update(st.ID, func(s *session.State) error {
		if s.Grids == nil {
			s.Grids = map[int][]sampling.DotPoint{}
		}
		s.Grids[frameID] = points
		return nil
	}); err != nil {
		return nil, err
	}

	return &dto.GridData{
		FrameID: frameID,
		Region:  region,
		Options: st.Grid,
		Points:  points,
	}, nil
}

// Overlay draws the grid last shown for the frame, or a new one, onto the frame.
func (m *Manager) Overlay(st *session.State, frameID int) ([]byte, error) {
	points, ok := st.Grids[frameID]
	if !ok {
		grid, err := m.Grid(st, frameID)
		if err != nil {
			return nil, err
		}
		points = grid.Points
	}

	path, err := m.framePath(st, frameID)
	if err != nil {
		return nil, err
	}
	img, err := m.media.ReadImage(path)
	if err != nil {
		return nil, err
	}
	return m.overlay.Render(img, points)
}

// Thumbnail returns a small JPEG of the frame.
func (m *Manager) Thumbnail(st *session.State, frameID int) ([]byte, error) {
	path, err := m.framePath(st, frameID)
	if err != nil {
		return nil, err
	}
	return m.media.Thumbnail(path)
}

func stationIn(book *model.SurveyBook, surveyID, stationID string) (*model.Station, error) {
	s, err := book.Survey(surveyID)
	if err != nil {
		return nil, err
	}
	return s.Station(stationID)
}
