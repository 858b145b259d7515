package service_test

import (
	"bytes"
	"context"
	"image"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seams/internal/annotation"
	"seams/internal/catalog"
	"seams/internal/dto"
	"seams/internal/logger"
	"seams/internal/model"
	"seams/internal/repository"
	"seams/internal/sampling"
	"seams/internal/service"
	"seams/internal/service/servicetest"
	"seams/internal/session"
	"seams/internal/survey"
)

func TestManager_LoginRegistersUserOnce(t *testing.T) {
	f := servicetest.New(t)

	first := f.Login(t)
	second := f.Login(t)
	assert.NotEqual(t, first.ID, second.ID)

	users, err := f.Manager.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Name)

	_, err = f.Manager.Login(model.User{Name: "Ada"})
	assert.ErrorIs(t, err, repository.ErrInvalidUser)
}

func TestManager_ImportSurvey(t *testing.T) {
	f := servicetest.New(t)
	st := f.Login(t)

	res, err := f.Manager.ImportSurvey(st, service.ImportRequest{
		StationsName: "BAS2023__stations.tsv",
		Stations:     []byte(servicetest.StationsTSV),
		VideosName:   "videos.tsv",
		Videos:       []byte(servicetest.VideosTSV),
		Kind:         model.MediaVideo,
		Options:      survey.DefaultCSVOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, "BAS2023", res.SurveyID)
	assert.Equal(t, 2, res.Stations)
	assert.Equal(t, []string{"ST99"}, res.UnknownVideos)

	st = f.Session(t, st)
	assert.Equal(t, "BAS2023", st.SurveyID)
	assert.Equal(t, model.MediaVideo, st.MediaKind)

	stations, err := f.Manager.ListStations("BAS2023")
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "ST01", stations[0].StationID)
	assert.True(t, stations[0].HasMedia)
	assert.False(t, stations[1].HasMedia)

	// A new session starts on the current survey.
	other := f.Login(t)
	assert.Equal(t, "BAS2023", other.SurveyID)

	_, err = f.Manager.ListStations("nope")
	assert.ErrorIs(t, err, model.ErrSurveyNotFound)
}

func TestManager_ImportSurveyRejectsBadCSV(t *testing.T) {
	f := servicetest.New(t)
	st := f.Login(t)

	_, err := f.Manager.ImportSurvey(st, service.ImportRequest{
		SurveyID:     "X",
		StationsName: "x.tsv",
		Stations:     []byte("siteName\nST01\n"),
		Kind:         model.MediaVideo,
		Options:      survey.DefaultCSVOptions(),
	})
	assert.ErrorIs(t, err, survey.ErrMissingColumns)
}

func TestManager_UpdateSession(t *testing.T) {
	f := servicetest.New(t)
	st := f.Import(t, f.Login(t))

	station := "ST01"
	st, err := f.Manager.UpdateSession(st, dto.SessionUpdate{StationID: &station})
	require.NoError(t, err)
	assert.Equal(t, "ST01", st.SelectedStation)
	assert.Equal(t, "/videos/st01.avi", st.CurrentVideo)

	bad := sampling.Options{Rows: 6, ColumnsPerRow: 5}
	_, err = f.Manager.UpdateSession(st, dto.SessionUpdate{Grid: &bad})
	assert.ErrorIs(t, err, sampling.ErrInvalidConfiguration)

	unknown := "ST42"
	_, err = f.Manager.UpdateSession(st, dto.SessionUpdate{StationID: &unknown})
	assert.ErrorIs(t, err, model.ErrStationNotFound)

	missing := "NOPE"
	_, err = f.Manager.UpdateSession(st, dto.SessionUpdate{SurveyID: &missing})
	assert.ErrorIs(t, err, model.ErrSurveyNotFound)

	grid := sampling.Options{Rows: 4, ColumnsPerRow: 5, EnableRandom: true, NoisePercent: 0.1}
	st, err = f.Manager.UpdateSession(st, dto.SessionUpdate{Grid: &grid})
	require.NoError(t, err)
	assert.Equal(t, grid, st.Grid)
	assert.Equal(t, "ST01", st.SelectedStation, "failed updates leave the session untouched")
}

func TestManager_StationOperationsNeedSurvey(t *testing.T) {
	f := servicetest.New(t)
	st := f.Login(t)

	_, err := f.Manager.PrepareFrames(context.Background(), st, "ST01")
	assert.ErrorIs(t, err, service.ErrNoSurveySelected)

	_, err = f.Manager.Grid(st, 0)
	assert.ErrorIs(t, err, service.ErrNoSurveySelected)
}

func TestManager_PrepareFramesOnce(t *testing.T) {
	f := servicetest.New(t)
	st := f.Import(t, f.Login(t))

	data, err := f.Manager.PrepareFrames(context.Background(), st, "ST01")
	require.NoError(t, err)
	require.Len(t, data.Frames, 3)
	assert.Len(t, data.Pending, 3)
	assert.Empty(t, data.Done)
	for _, fr := range data.Frames {
		assert.Equal(t, "unset", fr.Status)
		assert.Zero(t, fr.FrameID%servicetest.FPS)
	}

	entries, err := os.ReadDir(f.Manager.GetMediaStore().FrameDir("BAS2023", "ST01"))
	require.NoError(t, err)
	assert.Len(t, entries, 3, "frames outside the sample are removed")

	again, err := f.Manager.PrepareFrames(context.Background(), st, "ST01")
	require.NoError(t, err)
	assert.Equal(t, data.Frames, again.Frames)
	assert.Equal(t, 1, f.Video.Extractions)

	st = f.Session(t, st)
	assert.Equal(t, "ST01", st.SelectedStation)

	_, err = f.Manager.PrepareFrames(context.Background(), st, "ST02")
	assert.ErrorIs(t, err, service.ErrNoMedia)
}

func prepared(t *testing.T, f *servicetest.Fixture) (*session.State, int) {
	t.Helper()
	st := f.Import(t, f.Login(t))
	data, err := f.Manager.PrepareFrames(context.Background(), st, "ST01")
	require.NoError(t, err)
	return f.Session(t, st), data.Frames[0].FrameID
}

func TestManager_GridAndOverlay(t *testing.T) {
	f := servicetest.New(t)
	st, frameID := prepared(t, f)

	grid, err := f.Manager.Grid(st, frameID)
	require.NoError(t, err)
	assert.Equal(t, sampling.Region{Width: servicetest.FrameWidth, Height: servicetest.FrameHeight}, grid.Region)
	require.Len(t, grid.Points, 15)
	assert.Equal(t, 1, grid.Points[0].ID)
	assert.Equal(t, 15, grid.Points[14].ID)

	st = f.Session(t, st)
	img, err := f.Manager.Overlay(st, frameID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("overlay:")))
	assert.Equal(t, grid.Points, f.Overlay.Last(), "overlay reuses the grid shown")

	thumb, err := f.Manager.Thumbnail(st, frameID)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 50, cfg.Width)

	_, err = f.Manager.Grid(st, 9999)
	assert.ErrorIs(t, err, service.ErrFrameNotFound)
}

func TestManager_SubmitAnnotation(t *testing.T) {
	f := servicetest.New(t)
	st, frameID := prepared(t, f)

	notes := annotation.DefaultNotes()
	notes.ShellScale = 2
	frame, err := f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{
		PointIDs:   []int{1, 2},
		Substrates: []string{"sand (0.06-2mm)", " "},
		Taxa:       []string{"Fucus vesiculosus", "Mytilus edulis"},
		Notes:      notes,
	})
	require.NoError(t, err)
	assert.Equal(t, annotation.StatusDone, frame.Status)
	require.Contains(t, frame.DotPoints, 1)
	assert.Equal(t, []string{"Sa"}, frame.DotPoints[1].Substrates)
	assert.Equal(t, "Ada", frame.DotPoints[1].AnnotatedBy)
	assert.Equal(t, f.Now, frame.DotPoints[1].AnnotatedAt)
	assert.Equal(t, 15, frame.PointCount)

	stored, err := f.Manager.FrameAnnotation(st, frameID)
	require.NoError(t, err)
	assert.Equal(t, frame.DotPoints[2].Taxa, stored.DotPoints[2].Taxa)

	data, err := f.Manager.Frames(st, "ST01")
	require.NoError(t, err)
	assert.Equal(t, []int{frameID}, data.Done)
	assert.Len(t, data.Pending, 2)

	counts, err := f.Manager.TaxonCounts("BAS2023")
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.TaxonCount{
		{Name: "Fucus vesiculosus", Count: 2},
		{Name: "Mytilus edulis", Count: 2},
	}, counts)

	// Resubmitting a point overwrites it and the frame stays done.
	frame, err = f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{
		PointIDs:   []int{2},
		Substrates: []string{"Gr"},
		Taxa:       []string{"Zostera marina"},
		Notes:      annotation.DefaultNotes(),
	})
	require.NoError(t, err)
	assert.Equal(t, annotation.StatusDone, frame.Status)
	assert.Equal(t, []string{"Zostera marina"}, frame.DotPoints[2].Taxa)
	assert.Equal(t, []string{"Fucus vesiculosus", "Mytilus edulis"}, frame.DotPoints[1].Taxa)

	n, err := f.Manager.Reindex("BAS2023")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	counts, err = f.Manager.TaxonCounts("BAS2023")
	require.NoError(t, err)
	assert.Len(t, counts, 3)
}

func TestManager_SubmitAnnotationErrors(t *testing.T) {
	f := servicetest.New(t)
	st, frameID := prepared(t, f)
	notes := annotation.DefaultNotes()

	_, err := f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{Notes: notes})
	assert.ErrorIs(t, err, annotation.ErrEmptySelection)

	_, err = f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{PointIDs: []int{16}, Notes: notes})
	assert.ErrorIs(t, err, annotation.ErrUnknownPointID)

	_, err = f.Manager.SubmitAnnotation(st, 9999, annotation.Submission{PointIDs: []int{1}, Notes: notes})
	assert.ErrorIs(t, err, annotation.ErrDocumentInconsistency)

	_, err = f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{PointIDs: []int{1}, Substrates: []string{"lava"}, Notes: notes})
	assert.ErrorIs(t, err, catalog.ErrUnknownSubstrate)

	notes.SandwaveHeightCm = 9000
	_, err = f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{PointIDs: []int{1}, Notes: notes})
	assert.ErrorIs(t, err, catalog.ErrInvalidNotes)

	data, err := f.Manager.Frames(st, "ST01")
	require.NoError(t, err)
	assert.Empty(t, data.Done, "rejected submissions change nothing")
}

func TestManager_SubmitWarnsAboutUnlistedTaxa(t *testing.T) {
	f := servicetest.New(t)
	st, frameID := prepared(t, f)

	frame, err := f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{
		PointIDs: []int{1},
		Taxa:     []string{"Zostera marina", "Laminaria sp. nov."},
		Notes:    annotation.DefaultNotes(),
	})
	require.NoError(t, err, "unlisted taxa are kept")
	assert.Equal(t, []string{"Zostera marina", "Laminaria sp. nov."}, frame.DotPoints[1].Taxa)

	content, err := f.Logger.ReadLog(logger.WarningFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"Laminaria sp. nov."`)
	assert.NotContains(t, string(content), `"Zostera marina"`)
}

func TestManager_SubmitUsesGridShown(t *testing.T) {
	f := servicetest.New(t)
	st, frameID := prepared(t, f)

	grid := sampling.Options{Rows: 5, ColumnsPerRow: 5}
	st, err := f.Manager.UpdateSession(st, dto.SessionUpdate{Grid: &grid})
	require.NoError(t, err)
	_, err = f.Manager.Grid(st, frameID)
	require.NoError(t, err)
	st = f.Session(t, st)

	frame, err := f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{PointIDs: []int{25}, Notes: annotation.DefaultNotes()})
	require.NoError(t, err)
	assert.Equal(t, 25, frame.PointCount)
}

func TestManager_ConvertVideo(t *testing.T) {
	f := servicetest.New(t)
	st := f.Import(t, f.Login(t))

	info, err := f.Manager.VideoInfo(st, "ST01")
	require.NoError(t, err)
	assert.Equal(t, "mp4v", info.Codec)
	assert.Equal(t, 5.0, info.DurationSeconds)

	converted, err := f.Manager.ConvertVideo(context.Background(), st, "ST01")
	require.NoError(t, err)
	assert.Equal(t, "avc1", converted.Codec)
	assert.Equal(t, 1, f.Video.Conversions)

	info, err = f.Manager.VideoInfo(st, "ST01")
	require.NoError(t, err)
	assert.Equal(t, converted.Path, info.Path)

	// Already in the target codec.
	_, err = f.Manager.ConvertVideo(context.Background(), st, "ST01")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Video.Conversions)

	_, err = f.Manager.VideoInfo(st, "ST02")
	assert.ErrorIs(t, err, service.ErrNoMedia)
}

func TestManager_ReimportKeepsFrames(t *testing.T) {
	f := servicetest.New(t)
	st, frameID := prepared(t, f)
	_, err := f.Manager.SubmitAnnotation(st, frameID, annotation.Submission{PointIDs: []int{3}, Taxa: []string{"Red algae"}, Notes: annotation.DefaultNotes()})
	require.NoError(t, err)

	st = f.Import(t, st)
	stations, err := f.Manager.ListStations("BAS2023")
	require.NoError(t, err)
	assert.Equal(t, 3, stations[0].FramesTotal)
	assert.Equal(t, 1, stations[0].FramesDone)
	assert.False(t, stations[0].Complete)
}

func TestManager_PhotoSurvey(t *testing.T) {
	f := servicetest.New(t)
	st := f.Login(t)
	_, err := f.Manager.ImportSurvey(st, service.ImportRequest{
		SurveyID:     "DROP2024",
		StationsName: "stations.tsv",
		Stations:     []byte(servicetest.StationsTSV),
		Kind:         model.MediaPhotos,
		Options:      survey.DefaultCSVOptions(),
	})
	require.NoError(t, err)
	st = f.Session(t, st)

	for _, name := range []string{"a.png", "b.png"} {
		_, err := f.Manager.AddPhoto(st, "ST02", name, bytes.NewReader(servicetest.PNG(80, 60)))
		require.NoError(t, err)
	}
	photos, err := f.Manager.Photos(st, "ST02")
	require.NoError(t, err)
	assert.Len(t, photos, 2)

	data, err := f.Manager.PrepareFrames(context.Background(), st, "ST02")
	require.NoError(t, err)
	require.Len(t, data.Frames, 2)
	assert.Equal(t, 1, data.Frames[0].FrameID)
	assert.Equal(t, 2, data.Frames[1].FrameID)
	assert.Equal(t, 0, f.Video.Extractions)
}
