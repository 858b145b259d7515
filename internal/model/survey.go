package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"seams/internal/annotation"
)

var (
	ErrSurveyNotFound  = errors.New("survey not found")
	ErrStationNotFound = errors.New("station not found")
)

// MediaKind is the kind of imagery collected at the stations of a survey.
type MediaKind string

const (
	MediaVideo  MediaKind = "video"
	MediaPhotos MediaKind = "photos"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == MediaVideo || k == MediaPhotos
}

// SurveyBook is the root of the survey YAML document.
type SurveyBook struct {
	CurrentSurveyID string             `yaml:"current_survey_id" json:"current_survey_id"`
	Surveys         map[string]*Survey `yaml:"surveys" json:"surveys"`
}

// Survey is one field campaign.
type Survey struct {
	SurveyID  string              `yaml:"survey_id" json:"survey_id"`
	MediaKind MediaKind           `yaml:"media_kind" json:"media_kind"`
	CreatedBy string              `yaml:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time           `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	Stations  map[string]*Station `yaml:"stations" json:"stations"`
}

// Station is a sampling site, keyed by its site name.
type Station struct {
	StationID     string            `yaml:"station_id" json:"station_id"`
	SiteName      string            `yaml:"site_name" json:"site_name"`
	EventDate     string            `yaml:"event_date" json:"event_date"`
	GeodeticDatum string            `yaml:"geodetic_datum" json:"geodetic_datum"`
	MaximumDepthM float64           `yaml:"maximum_depth_m" json:"maximum_depth_m"`
	Location      Location          `yaml:"location" json:"location"`
	Measurements  map[string]string `yaml:"measurements,omitempty" json:"measurements,omitempty"`
	Media         *Media            `yaml:"media,omitempty" json:"media,omitempty"`
}

// Location holds both the recorded and the projected coordinates of a station.
type Location struct {
	Country          string  `yaml:"country,omitempty" json:"country,omitempty"`
	CountryCode      string  `yaml:"country_code" json:"country_code"`
	DecimalLatitude  float64 `yaml:"decimal_latitude" json:"decimal_latitude"`
	DecimalLongitude float64 `yaml:"decimal_longitude" json:"decimal_longitude"`
	SwerefX          float64 `yaml:"sweref99tm_x,omitempty" json:"sweref99tm_x,omitempty"`
	SwerefY          float64 `yaml:"sweref99tm_y,omitempty" json:"sweref99tm_y,omitempty"`
}

// Media lists the imagery of a station and its interpretation state.
type Media struct {
	Videos            map[string]string   `yaml:"videos,omitempty" json:"videos,omitempty"`
	Photos            []string            `yaml:"photos,omitempty" json:"photos,omitempty"`
	Frames            map[int]string      `yaml:"frames,omitempty" json:"frames,omitempty"`
	InterpretedFrames annotation.Document `yaml:"interpreted_frames,omitempty" json:"interpreted_frames,omitempty"`
}

// Survey returns the survey with the given id.
func (b *SurveyBook) Survey(id string) (*Survey, error) {
	if b == nil || b.Surveys == nil {
		return nil, fmt.Errorf("%w: %s", ErrSurveyNotFound, id)
	}
	s, ok := b.Surveys[id]
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSurveyNotFound, id)
	}
	return s, nil
}

// PutSurvey stores s, replacing any survey with the same id, and makes it current.
func (b *SurveyBook) PutSurvey(s *Survey) {
	if b.Surveys == nil {
		b.Surveys = make(map[string]*Survey)
	}
	b.Surveys[s.SurveyID] = s
	b.CurrentSurveyID = s.SurveyID
}

// SurveyIDs returns the ids of all surveys in ascending order.
func (b *SurveyBook) SurveyIDs() []string {
	ids := make([]string, 0, len(b.Surveys))
	for id := range b.Surveys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Station returns the station with the given id.
func (s *Survey) Station(id string) (*Station, error) {
	st, ok := s.Stations[id]
	if !ok || st == nil {
		return nil, fmt.Errorf("%w: %s in survey %s", ErrStationNotFound, id, s.SurveyID)
	}
	return st, nil
}

// StationIDs returns the ids of all stations in ascending order.
func (s *Survey) StationIDs() []string {
	ids := make([]string, 0, len(s.Stations))
	for id := range s.Stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EnsureMedia returns the station media record, creating it if needed.
func (st *Station) EnsureMedia() *Media {
	if st.Media == nil {
		st.Media = &Media{}
	}
	return st.Media
}

// HasMedia reports whether the station has imagery of the given kind.
func (st *Station) HasMedia(kind MediaKind) bool {
	if st.Media == nil {
		return false
	}
	switch kind {
	case MediaVideo:
		return len(st.Media.Videos) > 0
	case MediaPhotos:
		return len(st.Media.Photos) > 0
	}
	return false
}

// FirstVideo returns the lexically first video of the station.
func (m *Media) FirstVideo() (name, path string, ok bool) {
	if m == nil || len(m.Videos) == 0 {
		return "", "", false
	}
	names := make([]string, 0, len(m.Videos))
	for n := range m.Videos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names[0], m.Videos[names[0]], true
}
