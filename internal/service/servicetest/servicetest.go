// Package servicetest builds a service.Manager backed by temporary storage and
// fake media collaborators, for tests of the service and HTTP layers.
package servicetest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"seams/internal/config"
	"seams/internal/datastore"
	"seams/internal/logger"
	"seams/internal/media"
	"seams/internal/model"
	"seams/internal/repository/sqlite"
	"seams/internal/sampling"
	"seams/internal/service"
	"seams/internal/service/storage"
	"seams/internal/service/websocket"
	"seams/internal/session"
	"seams/internal/survey"
)

// Frame size of the fake video.
const (
	FrameWidth  = 200
	FrameHeight = 120
	FPS         = 25
)

const StationsTSV = "siteName\tdecimalLatitude\tdecimalLongitude\tgeodeticDatum\tcountryCode\teventDate\tmaximumDepthInMeters\n" +
	"ST01\t55.9\t14.6\tWGS84\tSE\t2023-06-01\t12.5\n" +
	"ST02\t56.1\t14.9\tWGS84\tSE\t2023-06-02\t8\n"

const VideosTSV = "siteName\tfilename\tfilepath\n" +
	"ST01\tst01.avi\t/videos/st01.avi\n" +
	"ST99\tlost.avi\t/videos/lost.avi\n"

// Video fakes a video processor. Extraction writes Frames PNGs, one per
// second of video.
type Video struct {
	mu          sync.Mutex
	Frames      int
	Codec       string
	Extractions int
	Conversions int
}

func (v *Video) Info(path string) (media.VideoInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	codec := v.Codec
	if strings.HasSuffix(path, "_h264.mp4") {
		codec = media.DefaultTargetCodec
	}
	info := media.NewVideoInfo(path, FPS, v.Frames*FPS, 0, 1<<20, FrameWidth, FrameHeight)
	info.Codec = codec
	return info, nil
}

func (v *Video) ExtractFrames(ctx context.Context, path, outDir string, everySeconds float64, progress func(done, total int)) (map[int]string, error) {
	v.mu.Lock()
	v.Extractions++
	n := v.Frames
	v.mu.Unlock()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	frames := make(map[int]string, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index := i * FPS
		target := filepath.Join(outDir, media.FrameFileName(index))
		if err := os.WriteFile(target, PNG(FrameWidth, FrameHeight), 0644); err != nil {
			return nil, err
		}
		frames[index] = target
		if progress != nil {
			progress(i+1, n)
		}
	}
	return frames, nil
}

func (v *Video) ConvertCodec(ctx context.Context, in, out string) error {
	v.mu.Lock()
	v.Conversions++
	v.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	return os.WriteFile(out, []byte("h264"), 0644)
}

// Overlay fakes an overlay renderer and remembers the last points drawn.
type Overlay struct {
	mu     sync.Mutex
	Points []sampling.DotPoint
}

func (o *Overlay) Render(img []byte, points []sampling.DotPoint) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Points = append([]sampling.DotPoint(nil), points...)
	return append([]byte("overlay:"), img[:8]...), nil
}

func (o *Overlay) Last() []sampling.DotPoint {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Points
}

// Fixture is a manager wired to temporary storage.
type Fixture struct {
	Dir      string
	Config   *config.Config
	Logger   *logger.Logger
	Manager  *service.Manager
	Sessions *session.Manager
	Surveys  *datastore.YAMLStore[model.SurveyBook]
	Video    *Video
	Overlay  *Overlay
	Now      time.Time
}

// New creates a fixture with a three-row grid, a sample of three frames and a
// five-frame fake video in a non-browser codec.
func New(t testing.TB) *Fixture {
	t.Helper()
	dir := t.TempDir()

	l, err := logger.NewQuiet(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	db, err := sqlite.New(filepath.Join(dir, "seams.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Port:              8080,
		DataDirectory:     filepath.Join(dir, "data"),
		LogDirectory:      filepath.Join(dir, "logs"),
		SurveyFile:        filepath.Join(dir, "data", "survey.yaml"),
		DatabasePath:      filepath.Join(dir, "seams.db"),
		SessionTTLMinutes: 60,
		MaxUploadMB:       4,
		Grid: config.GridConfig{
			Rows:          sampling.MinRows,
			ColumnsPerRow: sampling.DefaultColumnsPerRow,
		},
		Frames:    config.FramesConfig{IntervalSeconds: 1, SampleSize: 3},
		Video:     config.VideoConfig{FFmpegPath: "ffmpeg", TargetCodec: media.DefaultTargetCodec},
		Thumbnail: config.ThumbnailConfig{Width: 50},
	}

	f := &Fixture{
		Dir:      dir,
		Config:   cfg,
		Logger:   l,
		Sessions: session.NewManager(cfg.SessionTTL(), cfg.GridOptions()),
		Surveys:  datastore.NewYAMLStore[model.SurveyBook](cfg.SurveyFile),
		Video:    &Video{Frames: 5, Codec: "mp4v"},
		Overlay:  &Overlay{},
		Now:      time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC),
	}
	f.Manager = service.NewManager(service.Deps{
		Config:       cfg,
		Logger:       l,
		Surveys:      f.Surveys,
		Sessions:     f.Sessions,
		Users:        sqlite.NewUserRepository(db),
		Tables:       sqlite.NewTableAdmin(db),
		Observations: sqlite.NewObservationRepository(db),
		Overlay:      f.Overlay,
		Video:        f.Video,
		Media:        storage.NewMediaStore(cfg.DataDirectory, cfg.Thumbnail.Width, l),
		Hub:          websocket.NewHubService(l),
		Now:          func() time.Time { return f.Now },
	})
	return f
}

// User is the annotator used by Login.
func User() model.User {
	return model.User{Name: "Ada", Email: "ada@example.org", Affiliation: "SGU - Geological Survey of Sweden"}
}

// Login opens a session for User.
func (f *Fixture) Login(t testing.TB) *session.State {
	t.Helper()
	st, err := f.Manager.Login(User())
	require.NoError(t, err)
	return st
}

// Import loads StationsTSV and VideosTSV as video survey BAS2023 and returns
// the refreshed session.
func (f *Fixture) Import(t testing.TB, st *session.State) *session.State {
	t.Helper()
	_, err := f.Manager.ImportSurvey(st, service.ImportRequest{
		SurveyID:     "BAS2023",
		StationsName: "stations.tsv",
		Stations:     []byte(StationsTSV),
		VideosName:   "videos.tsv",
		Videos:       []byte(VideosTSV),
		Kind:         model.MediaVideo,
		Options:      survey.DefaultCSVOptions(),
	})
	require.NoError(t, err)
	return f.Session(t, st)
}

// Session returns the current state of st.
func (f *Fixture) Session(t testing.TB, st *session.State) *session.State {
	t.Helper()
	fresh, err := f.Sessions.Get(st.ID)
	require.NoError(t, err)
	return fresh
}

// PNG encodes a w x h test image.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 40, G: 120, B: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
