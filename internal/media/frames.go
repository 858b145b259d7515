// Package media holds the codec-independent parts of frame extraction and
// image handling.
package media

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"sort"
)

// DefaultTargetCodec is the FourCC browsers can play back.
const DefaultTargetCodec = "avc1"

var ErrInvalidVideo = errors.New("invalid video parameters")

// VideoInfo describes a video file.
type VideoInfo struct {
	Name            string  `json:"name"`
	Path            string  `json:"path"`
	FPS             float64 `json:"fps"`
	FrameCount      int     `json:"frame_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	DurationMinutes float64 `json:"duration_minutes"`
	SizeBytes       int64   `json:"size_bytes"`
	SizeGB          float64 `json:"size_gb"`
	SizePerMinuteMB float64 `json:"size_per_minute_mb"`
	Codec           string  `json:"codec"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

// NewVideoInfo derives durations and size ratios from the raw capture properties.
func NewVideoInfo(path string, fps float64, frameCount int, fourcc float64, sizeBytes int64, width, height int) VideoInfo {
	info := VideoInfo{
		Name:       filepath.Base(path),
		Path:       path,
		FPS:        fps,
		FrameCount: frameCount,
		SizeBytes:  sizeBytes,
		SizeGB:     float64(sizeBytes) / (1 << 30),
		Codec:      DecodeFourCC(fourcc),
		Width:      width,
		Height:     height,
	}
	if fps > 0 {
		info.DurationSeconds = float64(frameCount) / fps
		info.DurationMinutes = info.DurationSeconds / 60
	}
	if info.DurationMinutes > 0 {
		info.SizePerMinuteMB = float64(sizeBytes) / (1 << 20) / info.DurationMinutes
	}
	return info
}

// NeedsConversion reports whether the video must be re-encoded to play as target.
func NeedsConversion(info VideoInfo, target string) bool {
	if target == "" {
		target = DefaultTargetCodec
	}
	return info.Codec != target
}

// DecodeFourCC turns the numeric FourCC reported by a capture backend into its
// four character code.
func DecodeFourCC(v float64) string {
	code := uint32(int64(v))
	b := []byte{
		byte(code & 0xff),
		byte(code >> 8 & 0xff),
		byte(code >> 16 & 0xff),
		byte(code >> 24 & 0xff),
	}
	out := make([]byte, 0, 4)
	for _, c := range b {
		if c != 0 {
			out = append(out, c)
		}
	}
	return string(out)
}

// FramePlan returns the indices of the frames to extract, one every
// everySeconds seconds starting at frame 0.
func FramePlan(frameCount int, fps, everySeconds float64) ([]int, error) {
	if frameCount <= 0 {
		return nil, fmt.Errorf("%w: frame count %d", ErrInvalidVideo, frameCount)
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, fmt.Errorf("%w: fps %v", ErrInvalidVideo, fps)
	}
	if everySeconds <= 0 || math.IsNaN(everySeconds) {
		return nil, fmt.Errorf("%w: interval %v s", ErrInvalidVideo, everySeconds)
	}

	step := int(math.Round(fps * everySeconds))
	if step < 1 {
		step = 1
	}

	plan := make([]int, 0, frameCount/step+1)
	for i := 0; i < frameCount; i += step {
		plan = append(plan, i)
	}
	return plan, nil
}

// FrameFileName is the file name an extracted frame is written under.
func FrameFileName(index int) string {
	return fmt.Sprintf("frame%06d.png", index)
}

// SelectRandom returns n frames of frames chosen uniformly at random. All
// frames are returned when n is not smaller than len(frames).
func SelectRandom(frames map[int]string, n int) map[int]string {
	if n < 0 {
		n = 0
	}
	if n >= len(frames) {
		out := make(map[int]string, len(frames))
		for k, v := range frames {
			out[k] = v
		}
		return out
	}

	keys := make([]int, 0, len(frames))
	for k := range frames {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	out := make(map[int]string, n)
	for _, k := range keys[:n] {
		out[k] = frames[k]
	}
	return out
}
