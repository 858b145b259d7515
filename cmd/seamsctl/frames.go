package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"seams/internal/media"
	"seams/internal/service/video"
)

func framesCommand(e *env) *cobra.Command {
	framesCmd := &cobra.Command{
		Use:   "frames",
		Short: "Inspect, convert and sample station videos offline",
	}

	framesCmd.AddCommand(&cobra.Command{
		Use:   "info VIDEO",
		Short: "Print the capture properties of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.processor()
			if err != nil {
				return err
			}
			info, err := p.Info(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	})

	var (
		outDir string
		every  float64
		sample int
	)
	extractCmd := &cobra.Command{
		Use:   "extract VIDEO",
		Short: "Extract frames at a fixed interval and keep a random sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.config()
			if err != nil {
				return err
			}
			if every <= 0 {
				every = cfg.Frames.IntervalSeconds
			}
			if sample <= 0 {
				sample = cfg.Frames.SampleSize
			}
			p, err := e.processor()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			frames, err := p.ExtractFrames(cmd.Context(), args[0], outDir, every, func(done, total int) {
				fmt.Fprintf(out, "\rExtracting %d/%d", done, total)
			})
			fmt.Fprintln(out)
			if err != nil {
				return err
			}

			keep := media.SelectRandom(frames, sample)
			for index, path := range frames {
				if _, ok := keep[index]; ok {
					continue
				}
				if err := os.Remove(path); err != nil {
					return fmt.Errorf("failed to remove unselected frame: %w", err)
				}
			}
			fmt.Fprintf(out, "Kept %d of %d frames in %s\n", len(keep), len(frames), outDir)
			return nil
		},
	}
	extractCmd.Flags().StringVarP(&outDir, "out", "o", "frames", "Output directory")
	extractCmd.Flags().Float64Var(&every, "every", 0, "Seconds between extracted frames (default from config)")
	extractCmd.Flags().IntVar(&sample, "sample", 0, "Frames to keep (default from config)")
	framesCmd.AddCommand(extractCmd)

	framesCmd.AddCommand(&cobra.Command{
		Use:   "convert VIDEO OUTPUT",
		Short: "Re-encode a video to H.264 with ffmpeg",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.processor()
			if err != nil {
				return err
			}
			if err := p.ConvertCodec(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[1])
			return nil
		},
	})

	return framesCmd
}

func (e *env) processor() (*video.Processor, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	log, err := e.logger()
	if err != nil {
		return nil, err
	}
	return video.NewProcessor(cfg.Video.FFmpegPath, log), nil
}
