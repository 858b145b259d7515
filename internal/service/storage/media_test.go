package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seams/internal/logger"
)

func newTestStore(t *testing.T) (*MediaStore, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := logger.NewQuiet(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return NewMediaStore(filepath.Join(dir, "data"), 40, l), dir
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestMediaStore_Paths(t *testing.T) {
	s, _ := newTestStore(t)

	dir := s.FrameDir("BAS2023", "ST 01/../x")
	assert.True(t, strings.HasSuffix(dir, filepath.Join("media", "BAS2023", "ST_01_.._x", "frames")), dir)
	assert.NotContains(t, filepath.Clean(dir), filepath.Join("media", "x"))

	out := s.ConvertedVideoPath("BAS2023", "ST01", "/videos/dive.avi")
	assert.Equal(t, "dive_h264.mp4", filepath.Base(out))
}

func TestMediaStore_SaveUpload(t *testing.T) {
	s, _ := newTestStore(t)

	path, err := s.SaveUpload("BAS2023", "../stations.tsv", strings.NewReader("siteName\n"))
	require.NoError(t, err)
	assert.Equal(t, "stations.tsv", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "siteName\n", string(data))
}

func TestMediaStore_ThumbnailBufferedThenFlushed(t *testing.T) {
	s, dir := newTestStore(t)
	frame := filepath.Join(dir, "frames", "frame000010.png")
	writePNG(t, frame, 200, 100)

	first, err := s.Thumbnail(frame)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
	assert.Equal(t, 1, s.Pending())

	s.Flush()
	assert.Equal(t, 0, s.Pending())
	assert.FileExists(t, s.thumbnailPath(frame))

	// Served from disk once flushed, even if the source is gone.
	require.NoError(t, os.Remove(frame))
	second, err := s.Thumbnail(frame)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMediaStore_ThumbnailMissingSource(t *testing.T) {
	s, dir := newTestStore(t)
	_, err := s.Thumbnail(filepath.Join(dir, "nope.png"))
	assert.Error(t, err)
}

func TestMediaStore_RunFlushesOnCancel(t *testing.T) {
	s, dir := newTestStore(t)
	frame := filepath.Join(dir, "frames", "frame000000.png")
	writePNG(t, frame, 80, 40)
	_, err := s.Thumbnail(frame)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, s.Pending())
}
