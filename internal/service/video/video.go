// Package video reads station videos with OpenCV and re-encodes them with ffmpeg.
package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gocv.io/x/gocv"

	"seams/internal/logger"
	"seams/internal/media"
)

// Processor extracts frames and metadata from video files.
type Processor struct {
	ffmpegPath string
	logger     *logger.Logger
}

// NewProcessor creates a processor. ffmpegPath is used for codec conversion only.
func NewProcessor(ffmpegPath string, logger *logger.Logger) *Processor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Processor{ffmpegPath: ffmpegPath, logger: logger}
}

// Info opens the video and reports its capture properties.
func (p *Processor) Info(path string) (media.VideoInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return media.VideoInfo{}, fmt.Errorf("failed to stat video: %w", err)
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return media.VideoInfo{}, fmt.Errorf("failed to open video %s: %v", path, err)
	}
	defer vc.Close()

	return media.NewVideoInfo(
		path,
		vc.Get(gocv.VideoCaptureFPS),
		int(vc.Get(gocv.VideoCaptureFrameCount)),
		vc.Get(gocv.VideoCaptureFOURCC),
		stat.Size(),
		int(vc.Get(gocv.VideoCaptureFrameWidth)),
		int(vc.Get(gocv.VideoCaptureFrameHeight)),
	), nil
}

// ExtractFrames writes one PNG every everySeconds seconds of video into outDir
// and returns the written files keyed by frame index. progress, when set, is
// called after every planned frame.
func (p *Processor) ExtractFrames(ctx context.Context, path, outDir string, everySeconds float64, progress func(done, total int)) (map[int]string, error) {
	info, err := p.Info(path)
	if err != nil {
		return nil, err
	}
	plan, err := media.FramePlan(info.FrameCount, info.FPS, everySeconds)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %v", path, err)
	}
	defer vc.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	frames := make(map[int]string, len(plan))
	for i, index := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vc.Set(gocv.VideoCapturePosFrames, float64(index))
		if ok := vc.Read(&mat); !ok || mat.Empty() {
			p.logger.Warning("Could not read frame %d of %s", index, info.Name)
			continue
		}

		target := filepath.Join(outDir, media.FrameFileName(index))
		if ok := gocv.IMWrite(target, mat); !ok {
			return nil, fmt.Errorf("failed to write frame %s", target)
		}
		frames[index] = target

		if progress != nil {
			progress(i+1, len(plan))
		}
	}

	p.logger.Info("Extracted %d/%d frames from %s", len(frames), len(plan), info.Name)
	return frames, nil
}

// ConvertCodec re-encodes in to H.264 at out, overwriting out.
func (p *Processor) ConvertCodec(ctx context.Context, in, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-y", "-i", in,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-c:a", "copy",
		"-movflags", "+faststart",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Info("Converting %s to H.264", filepath.Base(in))
	if err := cmd.Run(); err != nil {
		p.logger.Error("ffmpeg failed for %s: %s", in, stderr.String())
		return fmt.Errorf("failed to convert video: %w", err)
	}
	return nil
}
