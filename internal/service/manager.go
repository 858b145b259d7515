package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seams/internal/config"
	"seams/internal/datastore"
	"seams/internal/dto"
	"seams/internal/logger"
	"seams/internal/media"
	"seams/internal/model"
	"seams/internal/repository"
	"seams/internal/sampling"
	"seams/internal/service/storage"
	"seams/internal/service/websocket"
	"seams/internal/session"
)

var (
	ErrNoSurveySelected  = errors.New("no survey selected")
	ErrNoStationSelected = errors.New("no station selected")
	ErrNoMedia           = errors.New("station has no media")
	ErrFrameNotFound     = errors.New("frame not found")
)

// OverlayRenderer draws a grid on an encoded image.
type OverlayRenderer interface {
	Render(img []byte, points []sampling.DotPoint) ([]byte, error)
}

// VideoProcessor reads and converts station videos.
type VideoProcessor interface {
	Info(path string) (media.VideoInfo, error)
	ExtractFrames(ctx context.Context, path, outDir string, everySeconds float64, progress func(done, total int)) (map[int]string, error)
	ConvertCodec(ctx context.Context, in, out string) error
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Surveys      *datastore.YAMLStore[model.SurveyBook]
	Sessions     *session.Manager
	Users        repository.UserRepository
	Tables       repository.TableAdmin
	Observations repository.ObservationRepository
	Overlay      OverlayRenderer
	Video        VideoProcessor
	Media        *storage.MediaStore
	Hub          *websocket.HubService
	Now          func() time.Time
}

// Manager runs every operation of the annotation workflow on behalf of a session.
type Manager struct {
	cfg          *config.Config
	logger       *logger.Logger
	surveys      *datastore.YAMLStore[model.SurveyBook]
	sessions     *session.Manager
	users        repository.UserRepository
	tables       repository.TableAdmin
	observations repository.ObservationRepository
	overlay      OverlayRenderer
	video        VideoProcessor
	media        *storage.MediaStore
	hub          *websocket.HubService
	now          func() time.Time
}

func NewManager(d Deps) *Manager {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:          d.Config,
		logger:       d.Logger,
		surveys:      d.Surveys,
		sessions:     d.Sessions,
		users:        d.Users,
		tables:       d.Tables,
		observations: d.Observations,
		overlay:      d.Overlay,
		video:        d.Video,
		media:        d.Media,
		hub:          d.Hub,
		now:          now,
	}
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

func (m *Manager) GetSessionManager() *session.Manager {
	return m.sessions
}

func (m *Manager) GetMediaStore() *storage.MediaStore {
	return m.media
}

// Login registers the user (an existing user is fine) and opens a session.
// The survey marked current in the survey file is preselected.
func (m *Manager) Login(user model.User) (*session.State, error) {
	user.Normalize()
	if !user.Complete() {
		return nil, repository.ErrInvalidUser
	}
	user.CreatedAt = m.now().UTC()

	if created, err := m.users.CreateTable(); err != nil {
		return nil, fmt.Errorf("failed to prepare users table: %w", err)
	} else if created {
		m.logger.Warning("Users table was missing and has been recreated")
	}
	if _, err := m.users.Insert(&user); err != nil && !errors.Is(err, repository.ErrUserExists) {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	st := m.sessions.Create(user)

	book, err := m.surveys.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load surveys: %w", err)
	}
	if current, err := book.Survey(book.CurrentSurveyID); err == nil {
		st, err = m.sessions.Update(st.ID, func(s *session.State) error {
			s.SurveyID = current.SurveyID
			s.MediaKind = current.MediaKind
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	m.logger.Info("User %s (%s) logged in", user.Name, user.Affiliation)
	return st, nil
}

// Logout closes the session.
func (m *Manager) Logout(st *session.State) {
	m.sessions.Delete(st.ID)
	m.logger.Info("User %s logged out", st.User.Name)
}

// Summary describes the working session.
func (m *Manager) Summary(st *session.State) (*dto.SessionSummary, error) {
	book, err := m.surveys.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load surveys: %w", err)
	}
	return &dto.SessionSummary{
		User:            st.User,
		SurveyID:        st.SurveyID,
		MediaKind:       st.MediaKind,
		SelectedStation: st.SelectedStation,
		CurrentVideo:    st.CurrentVideo,
		Grid:            st.Grid,
		Surveys:         book.SurveyIDs(),
	}, nil
}

// UpdateSession selects a survey, a station and grid options. Changing the
// survey clears the station; changing the station or the grid options drops
// the grids drawn so far, since dot-point ids are only valid within one grid.
func (m *Manager) UpdateSession(st *session.State, upd dto.SessionUpdate) (*session.State, error) {
	book, err := m.surveys.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load surveys: %w", err)
	}
	if upd.Grid != nil {
		if err := upd.Grid.Validate(); err != nil {
			return nil, err
		}
	}

	return m.sessions.Update(st.ID, func(s *session.State) error {
		if upd.SurveyID != nil && *upd.SurveyID != s.SurveyID {
			survey, err := book.Survey(*upd.SurveyID)
			if err != nil {
				return err
			}
			s.SurveyID = survey.SurveyID
			s.MediaKind = survey.MediaKind
			s.SelectedStation = ""
			s.CurrentVideo = ""
			s.Grids = map[int][]sampling.DotPoint{}
		}
		if upd.StationID != nil {
			if s.SurveyID == "" {
				return ErrNoSurveySelected
			}
			survey, err := book.Survey(s.SurveyID)
			if err != nil {
				return err
			}
			station, err := survey.Station(*upd.StationID)
			if err != nil {
				return err
			}
			selectStation(s, station)
		}
		if upd.Grid != nil && *upd.Grid != s.Grid {
			s.Grid = *upd.Grid
			s.Grids = map[int][]sampling.DotPoint{}
		}
		return nil
	})
}

func selectStation(s *session.State, station *model.Station) {
	if s.SelectedStation != station.StationID {
		s.Grids = map[int][]sampling.DotPoint{}
	}
	s.SelectedStation = station.StationID
	s.CurrentVideo = ""
	if _, path, ok := station.Media.FirstVideo(); ok {
		s.CurrentVideo = path
	}
}

// locate resolves the session survey and one of its stations.
func (m *Manager) locate(st *session.State, stationID string) (*model.Survey, *model.Station, error) {
	if st.SurveyID == "" {
		return nil, nil, ErrNoSurveySelected
	}
	if stationID == "" {
		return nil, nil, ErrNoStationSelected
	}
	book, err := m.surveys.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load surveys: %w", err)
	}
	survey, err := book.Survey(st.SurveyID)
	if err != nil {
		return nil, nil, err
	}
	station, err := survey.Station(stationID)
	if err != nil {
		return nil, nil, err
	}
	return survey, station, nil
}
