package storage

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"seams/internal/logger"
	"seams/internal/media"
)

const (
	// ThumbnailBufferLimit limits how many rendered thumbnails are held before flushing.
	ThumbnailBufferLimit = 50
	// ThumbnailFlushInterval defines how often (seconds) buffered thumbnails are flushed to disk.
	ThumbnailFlushInterval = 30
)

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// MediaStore lays out station media under the data directory and caches
// frame thumbnails, keeping new ones in memory until the next flush.
type MediaStore struct {
	dataDir        string
	thumbnailWidth int
	pending        map[string][]byte
	mu             sync.Mutex
	logger         *logger.Logger
}

// NewMediaStore creates a store rooted at dataDir.
func NewMediaStore(dataDir string, thumbnailWidth int, logger *logger.Logger) *MediaStore {
	return &MediaStore{
		dataDir:        dataDir,
		thumbnailWidth: thumbnailWidth,
		pending:        make(map[string][]byte),
		logger:         logger,
	}
}

// Run starts a ticker loop that periodically flushes thumbnails to disk.
// It returns after a final flush when ctx is done.
func (s *MediaStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = ThumbnailFlushInterval * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// FrameDir is the directory extracted frames of a station are written to.
func (s *MediaStore) FrameDir(surveyID, stationID string) string {
	return filepath.Join(s.dataDir, "media", segment(surveyID), segment(stationID), "frames")
}

// ConvertedVideoPath is where the H.264 copy of a station video is written.
func (s *MediaStore) ConvertedVideoPath(surveyID, stationID, videoName string) string {
	base := strings.TrimSuffix(filepath.Base(videoName), filepath.Ext(videoName))
	return filepath.Join(s.dataDir, "media", segment(surveyID), segment(stationID), "converted", segment(base)+"_h264.mp4")
}

// SaveUpload stores an uploaded file under uploads/<survey>/ and returns its path.
func (s *MediaStore) SaveUpload(surveyID, name string, r io.Reader) (string, error) {
	dir := filepath.Join(s.dataDir, "uploads", segment(surveyID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	target := filepath.Join(dir, segment(filepath.Base(name)))
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	s.logger.Info("Saved upload %s", target)
	return target, nil
}

// ReadImage returns the bytes of an image file.
func (s *MediaStore) ReadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return data, nil
}

// Thumbnail returns a downscaled JPEG of the image at path. Rendered
// thumbnails are served from memory until flushed, then from disk.
func (s *MediaStore) Thumbnail(path string) ([]byte, error) {
	target := s.thumbnailPath(path)

	s.mu.Lock()
	if data, ok := s.pending[target]; ok {
		s.mu.Unlock()
		return data, nil
	}
	s.mu.Unlock()

	if data, err := os.ReadFile(target); err == nil {
		return data, nil
	}

	src, err := s.ReadImage(path)
	if err != nil {
		return nil, err
	}
	data, err := media.Thumbnail(bytes.NewReader(src), s.thumbnailWidth)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.pending) < ThumbnailBufferLimit {
		s.pending[target] = data
	}
	s.mu.Unlock()

	return data, nil
}

// Flush writes buffered thumbnails to disk and resets the buffer.
func (s *MediaStore) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return
	}

	savedCount := 0
	for target, data := range s.pending {
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			s.logger.Error("Error creating directory: %v", err)
			continue
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			s.logger.Error("Error saving thumbnail %s: %v", target, err)
			continue
		}
		savedCount++
	}

	s.logger.Info("Flushed %d thumbnails to disk", savedCount)
	s.pending = make(map[string][]byte)
}

// Pending returns the number of thumbnails waiting to be flushed.
func (s *MediaStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// thumbnailPath names the cached thumbnail of path by a hash of its full path,
// so frames with the same file name in different stations never collide.
func (s *MediaStore) thumbnailPath(path string) string {
	h := fnv.New64a()
	h.Write([]byte(filepath.Clean(path)))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(s.dataDir, "thumbnails", fmt.Sprintf("%s_%016x.jpg", segment(name), h.Sum64()))
}

func segment(s string) string {
	s = unsafeSegment.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return "_"
	}
	return s
}
