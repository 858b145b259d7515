package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"seams/internal/annotation"
)

func TestSurveyBook_Lookup(t *testing.T) {
	var book SurveyBook
	_, err := book.Survey("HANO")
	assert.ErrorIs(t, err, ErrSurveyNotFound)

	book.PutSurvey(&Survey{
		SurveyID:  "HANO",
		MediaKind: MediaVideo,
		Stations: map[string]*Station{
			"ST02": {StationID: "ST02", SiteName: "ST02"},
			"ST01": {StationID: "ST01", SiteName: "ST01"},
		},
	})
	assert.Equal(t, "HANO", book.CurrentSurveyID)

	s, err := book.Survey("HANO")
	require.NoError(t, err)
	assert.Equal(t, []string{"ST01", "ST02"}, s.StationIDs())

	_, err = s.Station("ST09")
	assert.ErrorIs(t, err, ErrStationNotFound)
}

func TestStation_HasMedia(t *testing.T) {
	st := &Station{}
	assert.False(t, st.HasMedia(MediaVideo))

	st.EnsureMedia().Videos = map[string]string{"b.mp4": "/v/b.mp4", "a.mp4": "/v/a.mp4"}
	assert.True(t, st.HasMedia(MediaVideo))
	assert.False(t, st.HasMedia(MediaPhotos))

	name, path, ok := st.Media.FirstVideo()
	assert.True(t, ok)
	assert.Equal(t, "a.mp4", name)
	assert.Equal(t, "/v/a.mp4", path)
}

func TestSurveyBook_YAMLLayout(t *testing.T) {
	book := SurveyBook{}
	book.PutSurvey(&Survey{
		SurveyID:  "S1",
		MediaKind: MediaVideo,
		Stations: map[string]*Station{
			"A": {
				StationID: "A",
				SiteName:  "A",
				Media: &Media{
					Frames:            map[int]string{10: "f10.png"},
					InterpretedFrames: annotation.EnsureInitialized(nil, map[int]string{10: "f10.png"}),
				},
			},
		},
	})

	raw, err := yaml.Marshal(&book)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "current_survey_id: S1")
	assert.Contains(t, text, "interpreted_frames:")
	assert.Contains(t, text, "status: -1")

	var decoded SurveyBook
	require.NoError(t, yaml.Unmarshal(raw, &decoded))
	assert.Equal(t, annotation.StatusUnset, decoded.Surveys["S1"].Stations["A"].Media.InterpretedFrames[10].Status)
}

func TestObservationsFromFrame(t *testing.T) {
	doc := annotation.EnsureInitialized(nil, map[int]string{7: ""})
	_, err := annotation.Submit(doc, 7, 15, annotation.Submission{
		PointIDs:   []int{3, 1},
		Taxa:       []string{"Mytilus edulis"},
		Substrates: []string{"Sa", "Gr"},
	})
	require.NoError(t, err)

	rows := ObservationsFromFrame("S1", "A", doc[7])
	require.Len(t, rows, 6)
	assert.Equal(t, 1, rows[0].PointID)
	assert.Equal(t, ObservationTaxon, rows[0].Kind)
	assert.Equal(t, "Mytilus edulis", rows[0].Value)
	assert.Equal(t, ObservationSubstrate, rows[2].Kind)
	assert.Equal(t, "Gr", rows[2].Value)
	assert.Equal(t, 3, rows[5].PointID)

	assert.Nil(t, ObservationsFromFrame("S1", "A", nil))
}

func TestUser_Normalize(t *testing.T) {
	u := User{Name: "  Ada ", Email: "ada@example.org", Affiliation: " "}
	u.Normalize()
	assert.Equal(t, "Ada", u.Name)
	assert.False(t, u.Complete())
	u.Affiliation = "SGU"
	assert.True(t, u.Complete())
}
