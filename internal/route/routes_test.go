package route

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seams/internal/annotation"
	"seams/internal/dto"
	"seams/internal/model"
	"seams/internal/service/servicetest"
	progress "seams/internal/service/websocket"
	"seams/internal/session"
)

type testServer struct {
	handler http.Handler
	cookie  *http.Cookie
}

func newTestServer(t *testing.T) (*testServer, *servicetest.Fixture) {
	t.Helper()
	f := servicetest.New(t)
	f.Config.StaticDirectory = filepath.Join(f.Dir, "static")
	require.NoError(t, os.MkdirAll(f.Config.StaticDirectory, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(f.Config.StaticDirectory, "survey.html"), []byte("<h1>Survey</h1>"), 0644))

	return &testServer{handler: SetupRoutes(f.Manager, f.Config, f.Logger, Activities())}, f
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(t *testing.T, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return s.do(t, method, path, "application/json", body)
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	rec := s.json(t, http.MethodPost, "/auth/login", servicetest.User())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			s.cookie = c
		}
	}
	require.NotNil(t, s.cookie)
}

func (s *testServer) importSurvey(t *testing.T) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("survey_id", "BAS2023"))
	for field, content := range map[string]string{
		"stations": servicetest.StationsTSV,
		"videos":   servicetest.VideosTSV,
	} {
		fw, err := mw.CreateFormFile(field, field+".tsv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	rec := s.do(t, http.MethodPost, "/api/surveys", mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res dto.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "BAS2023", res.SurveyID)
	assert.Equal(t, model.MediaVideo, res.MediaKind)
	assert.Equal(t, 2, res.Stations)
	assert.Equal(t, []string{"lost.avi"}, res.UnknownVideos)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRoutes_WithoutSession(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/session", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/catalog", "", nil).Code)

	rec := s.do(t, http.MethodGet, "/survey", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRoutes_LoginForm(t *testing.T) {
	s, _ := newTestServer(t)

	form := "name=Ada&email=ada%40example.org&affiliation=SGU"
	rec := s.do(t, http.MethodPost, "/auth/login", "application/x-www-form-urlencoded", strings.NewReader(form))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = s.do(t, http.MethodPost, "/auth/login", "application/json", strings.NewReader(`{"name":"Ada"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_SessionAndPages(t *testing.T) {
	s, _ := newTestServer(t)
	s.login(t)

	summary := decode[dto.SessionSummary](t, s.do(t, http.MethodGet, "/api/session", "", nil))
	assert.Equal(t, "Ada", summary.User.Name)
	assert.Empty(t, summary.SurveyID)

	rec := s.do(t, http.MethodGet, "/survey", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Survey")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/nowhere", "", nil).Code)

	activities := decode[[]Activity](t, s.do(t, http.MethodGet, "/api/activities", "", nil))
	assert.Equal(t, Activities(), activities)

	rec = s.json(t, http.MethodPut, "/api/session", map[string]any{
		"grid": map[string]any{"n_rows": 1, "columns_per_row": 5},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/session", "", nil).Code)
}

func TestRoutes_AnnotationWorkflow(t *testing.T) {
	s, _ := newTestServer(t)
	s.login(t)
	s.importSurvey(t)

	stations := decode[[]dto.StationSummary](t, s.do(t, http.MethodGet, "/api/surveys/BAS2023/stations", "", nil))
	require.Len(t, stations, 2)
	assert.Equal(t, "ST01", stations[0].StationID)
	assert.True(t, stations[0].HasMedia)
	assert.False(t, stations[1].HasMedia)

	rec := s.do(t, http.MethodPost, "/api/stations/ST01/frames", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	frames := decode[dto.FramesData](t, rec)
	require.Len(t, frames.Frames, 3)
	assert.Len(t, frames.Pending, 3)
	frameID := frames.Frames[0].FrameID
	base := "/api/frames/" + strconv.Itoa(frameID)

	grid := decode[dto.GridData](t, s.do(t, http.MethodGet, base+"/grid", "", nil))
	assert.Len(t, grid.Points, 15)

	rec = s.do(t, http.MethodGet, base+"/overlay", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "overlay:"))

	rec = s.json(t, http.MethodPost, base+"/annotations", map[string]any{
		"point_ids":  []int{1, 2},
		"substrates": []string{"Sa"},
		"taxa":       []string{"Mytilus edulis"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	frame := decode[annotation.Frame](t, rec)
	assert.Equal(t, annotation.StatusDone, frame.Status)
	assert.Equal(t, -1, frame.DotPoints[1].Notes.SandwaveHeightCm)

	got := decode[annotation.Frame](t, s.do(t, http.MethodGet, base+"/annotations", "", nil))
	assert.Equal(t, frame.DotPoints[2].Taxa, got.DotPoints[2].Taxa)

	counts := decode[[]model.TaxonCount](t, s.do(t, http.MethodGet, "/api/surveys/BAS2023/observations", "", nil))
	assert.Equal(t, []model.TaxonCount{{Name: "Mytilus edulis", Count: 2}}, counts)

	frames = decode[dto.FramesData](t, s.do(t, http.MethodGet, "/api/stations/ST01/frames", "", nil))
	assert.Equal(t, []int{frameID}, frames.Done)
	assert.Len(t, frames.Pending, 2)
}

func TestRoutes_ErrorStatus(t *testing.T) {
	s, _ := newTestServer(t)
	s.login(t)

	rec := s.do(t, http.MethodGet, "/api/frames/1/grid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no survey selected")

	s.importSurvey(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/stations/ST01/frames", "", nil).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"frame id not a number", http.MethodGet, "/api/frames/abc/grid", "", http.StatusBadRequest},
		{"unknown frame", http.MethodGet, "/api/frames/9999/grid", "", http.StatusNotFound},
		{"unknown survey", http.MethodGet, "/api/surveys/NOPE/stations", "", http.StatusNotFound},
		{"unknown station", http.MethodGet, "/api/stations/ST77/video", "", http.StatusNotFound},
		{"station without media", http.MethodPost, "/api/stations/ST02/frames", "", http.StatusNotFound},
		{"empty selection", http.MethodPost, "/api/frames/0/annotations", `{"point_ids":[]}`, http.StatusBadRequest},
		{"frame not extracted", http.MethodPost, "/api/frames/9999/annotations", `{"point_ids":[1]}`, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/api/frames/0/annotations", `{`, http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/api/session", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			rec := s.do(t, tt.method, tt.path, "application/json", body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutes_Admin(t *testing.T) {
	s, _ := newTestServer(t)
	s.login(t)

	rec := s.json(t, http.MethodPost, "/api/admin/users", servicetest.User())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.json(t, http.MethodPost, "/api/admin/users", model.User{Name: "Bo", Email: "bo@example.org", Affiliation: "SU"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	users := decode[[]model.User](t, s.do(t, http.MethodGet, "/api/admin/users", "", nil))
	assert.Len(t, users, 2)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/admin/users?name=Bo", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/admin/users?name=Bo", "", nil).Code)

	rec = s.do(t, http.MethodGet, "/api/admin/tables", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "users")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/admin/tables?name=users;--", "", nil).Code)
}

func TestRoutes_Logs(t *testing.T) {
	s, f := newTestServer(t)
	s.login(t)
	f.Logger.Info("hello from the test")

	rec := s.do(t, http.MethodGet, "/logs/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello from the test")

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/logs/info/clear", "", nil).Code)
	rec = s.do(t, http.MethodGet, "/logs/info", "", nil)
	assert.NotContains(t, rec.Body.String(), "hello from the test")
}

func TestRoutes_ProgressFollowsSessionSurvey(t *testing.T) {
	s, f := newTestServer(t)
	s.login(t)
	s.importSurvey(t)

	hub := f.Manager.GetWebsocketService()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(s.handler)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/progress"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Cookie", s.cookie.Name+"="+s.cookie.Value)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(progress.Event{Type: progress.EventFramesReady, SurveyID: "HANO2024"})
	hub.Broadcast(progress.Event{Type: progress.EventFramesReady, SurveyID: "BAS2023", StationID: "ST01"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev progress.Event
	for ev.Type != progress.EventFramesReady {
		require.NoError(t, conn.ReadJSON(&ev))
		require.Equal(t, "BAS2023", ev.SurveyID)
	}
	assert.Equal(t, "ST01", ev.StationID)
}
