package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"seams/internal/sampling"
	"seams/internal/service/overlay"
)

func gridCommand(e *env) *cobra.Command {
	var (
		imagePath string
		overlayTo string
		region    sampling.Region
		opts      = sampling.DefaultOptions()
		asJSON    bool
	)

	gridCmd := &cobra.Command{
		Use:   "grid",
		Short: "Lay out a dot-point grid over an image or a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if imagePath != "" {
				r, err := sampling.RegionFromFile(imagePath)
				if err != nil {
					return err
				}
				region = r
			}
			points, err := sampling.GenerateGrid(region, opts)
			if err != nil {
				return err
			}

			if overlayTo != "" {
				if imagePath == "" {
					return errors.New("--overlay needs --image")
				}
				if err := writeOverlay(e, imagePath, overlayTo, points); err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(points)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tX\tY")
			for _, p := range points {
				fmt.Fprintf(w, "%d\t%d\t%d\n", p.ID, p.X, p.Y)
			}
			return w.Flush()
		},
	}

	f := gridCmd.Flags()
	f.StringVar(&imagePath, "image", "", "Image whose size bounds the grid")
	f.IntVar(&region.Width, "width", 0, "Region width when no image is given")
	f.IntVar(&region.Height, "height", 0, "Region height when no image is given")
	f.IntVar(&opts.Rows, "rows", opts.Rows, "Number of rows")
	f.IntVar(&opts.ColumnsPerRow, "cols", opts.ColumnsPerRow, "Dot-points per row")
	f.BoolVar(&opts.EnableRandom, "random", opts.EnableRandom, "Jitter point positions")
	f.Float64Var(&opts.NoisePercent, "noise", opts.NoisePercent, "Jitter amplitude as a fraction of the cell size")
	f.StringVar(&overlayTo, "overlay", "", "Write the image with the grid drawn on it to this JPEG file")
	f.BoolVar(&asJSON, "json", false, "Print points as JSON")

	return gridCmd
}

func writeOverlay(e *env, imagePath, out string, points []sampling.DotPoint) error {
	log, err := e.logger()
	if err != nil {
		return err
	}
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}
	data, err := overlay.NewMarkerRenderer(log).Render(img, points)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0644)
}
