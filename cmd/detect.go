package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geograb/internal/clip"
	"github.com/sells-group/geograb/internal/detect"
	"github.com/sells-group/geograb/internal/registry"
	"github.com/sells-group/geograb/internal/safety"
)

var detectCmd = &cobra.Command{
	Use:   "detect --bbox <xmin,ymin,xmax,ymax>",
	Short: "Suggest saved services for a working extent",
	Long: `Matches a WGS84 extent against the registry's known regions and lists
the saved services of the regions that overlap it, strongest match first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bbox, _ := cmd.Flags().GetString("bbox")
		if bbox == "" {
			return eris.New("detect: --bbox is required")
		}

		env, err := clip.ParseBBox(bbox, 4326)
		if err != nil {
			return eris.Wrap(err, "detect")
		}

		reg, err := registry.Load(cfg.Registry.Path)
		if err != nil {
			return eris.Wrap(err, "detect")
		}

		matches := detect.Regions(reg, safety.Extent{
			XMin: env.XMin, YMin: env.YMin, XMax: env.XMax, YMax: env.YMax,
		})
		if len(matches) == 0 {
			fmt.Println("No known region overlaps this extent.")
			return nil
		}

		for _, m := range matches {
			fmt.Printf("%s (%.0f%% overlap)\n", m.Region.Name, m.Score*100)
			for _, svc := range m.Services {
				fmt.Printf("  %-13s %s\n", svc.Type, svc.URL)
			}
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().String("bbox", "", "WGS84 extent: xmin,ymin,xmax,ymax")
	rootCmd.AddCommand(detectCmd)
}
