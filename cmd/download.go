package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geograb/internal/clip"
	"github.com/sells-group/geograb/internal/convert"
	"github.com/sells-group/geograb/internal/download"
	"github.com/sells-group/geograb/internal/safety"
	"github.com/sells-group/geograb/internal/sink"
	"github.com/sells-group/geograb/pkg/arcgis"
)

var downloadCmd = &cobra.Command{
	Use:   "download <service-url>",
	Short: "Safety-checked bulk feature download",
	Long: `Runs the pre-flight safety gate against the requested layer and filter,
then downloads all matching features in OID-paginated batches and writes them
to a GeoPackage (.gpkg) or GeoJSON (.geojson) file.

A spatial filter is mandatory: pass --bbox, --clip (GeoJSON polygon file) or
--clip-shp (shapefile). Unfiltered whole-layer downloads are always refused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceURL := args[0]
		layerID, _ := cmd.Flags().GetInt("layer")
		outPath, _ := cmd.Flags().GetString("out")
		layerName, _ := cmd.Flags().GetString("layer-name")
		layerType, _ := cmd.Flags().GetString("layer-type")
		yes, _ := cmd.Flags().GetBool("yes")

		if outPath == "" {
			return eris.New("download: --out is required")
		}

		filter, extent, err := resolveFilter(cmd)
		if err != nil {
			return err
		}

		client := newClient()
		ctx := cmd.Context()

		gate := safety.NewGate(cfg.Safety)
		verdict := gate.Check(ctx, client, safety.CheckRequest{
			ServiceURL: serviceURL,
			LayerID:    layerID,
			Filter:     filter,
			LayerType:  layerType,
			Extent:     extent,
		})

		zap.L().Info("safety verdict", zap.String("summary", verdict.Summary()))

		if verdict.Blocked() {
			fmt.Fprintln(os.Stderr, "Download blocked:")
			for _, r := range verdict.Reasons {
				fmt.Fprintln(os.Stderr, "  "+r)
			}
			return &safety.BlockedError{Verdict: verdict}
		}

		if verdict.NeedsConfirmation() && !yes {
			fmt.Println(safety.FormatConfirmation(verdict))
			if !confirm() {
				fmt.Println("Aborted.")
				return nil
			}
		}

		schema, err := client.LayerSchema(ctx, serviceURL, layerID)
		if err != nil {
			return eris.Wrap(err, "download")
		}

		batchSize, _ := cmd.Flags().GetInt("batch-size")
		if batchSize == 0 {
			batchSize = cfg.Download.BatchSize
		}
		outWKID, _ := cmd.Flags().GetInt("out-wkid")
		if outWKID == 0 {
			outWKID = cfg.Download.OutWKID
		}

		result, err := download.Run(ctx, client, download.Request{
			ServiceURL: serviceURL,
			LayerID:    layerID,
			Filter:     filter,
			OutWKID:    outWKID,
			BatchSize:  batchSize,
			Progress: func(pct, total int, msg string) {
				fmt.Printf("[%3d%%] %s\n", pct, msg)
			},
		})
		if err != nil {
			return eris.Wrap(err, "download")
		}

		if len(result.Features) == 0 {
			fmt.Println("No features found in query area; nothing written.")
			return nil
		}

		set := convert.Convert(schema, result.Features, result.SpatialRef)
		if layerName != "" {
			set.Name = layerName
		}
		if set.Skipped > 0 {
			fmt.Printf("Skipped %d features with null or invalid geometry.\n", set.Skipped)
		}

		out, err := buildSink(outPath, set.Name)
		if err != nil {
			return err
		}
		if err := out.Write(ctx, set); err != nil {
			return eris.Wrap(err, "download")
		}

		fmt.Printf("Wrote %d features to %s\n", len(set.Records), outPath)
		return nil
	},
}

// resolveFilter builds the spatial filter from whichever clip flag was
// given, plus the WGS84 extent used by the safety gate's area check.
func resolveFilter(cmd *cobra.Command) (arcgis.Filter, *safety.Extent, error) {
	bbox, _ := cmd.Flags().GetString("bbox")
	clipPath, _ := cmd.Flags().GetString("clip")
	clipShp, _ := cmd.Flags().GetString("clip-shp")
	inWKID, _ := cmd.Flags().GetInt("in-wkid")

	given := 0
	for _, s := range []string{bbox, clipPath, clipShp} {
		if s != "" {
			given++
		}
	}
	if given > 1 {
		return nil, nil, eris.New("download: --bbox, --clip and --clip-shp are mutually exclusive")
	}

	var filter arcgis.Filter
	switch {
	case bbox != "":
		f, err := clip.ParseBBox(bbox, inWKID)
		if err != nil {
			return nil, nil, err
		}
		filter = f
	case clipPath != "":
		f, err := clip.FromGeoJSON(clipPath, inWKID)
		if err != nil {
			return nil, nil, err
		}
		filter = f
	case clipShp != "":
		f, err := clip.FromShapefile(clipShp, inWKID)
		if err != nil {
			return nil, nil, err
		}
		filter = f
	default:
		// No filter: the gate blocks this, with a better message than
		// a flag error would give.
		return nil, nil, nil
	}

	var extent *safety.Extent
	if inWKID == 0 || inWKID == 4326 {
		xmin, ymin, xmax, ymax := filter.Bounds()
		extent = &safety.Extent{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}
	}
	return filter, extent, nil
}

func buildSink(path, layerName string) (sink.Sink, error) {
	switch {
	case strings.HasSuffix(path, ".gpkg"):
		return &sink.GeoPackage{Path: path, LayerName: layerName}, nil
	case strings.HasSuffix(path, ".geojson"), strings.HasSuffix(path, ".json"):
		return &sink.GeoJSON{Path: path}, nil
	default:
		return nil, eris.Errorf("download: unsupported output extension on %s (use .gpkg or .geojson)", path)
	}
}

func confirm() bool {
	fmt.Print("Type 'yes' to continue: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func init() {
	downloadCmd.Flags().Int("layer", 0, "layer id to download")
	downloadCmd.Flags().String("out", "", "output file (.gpkg or .geojson)")
	downloadCmd.Flags().String("layer-name", "", "layer name inside the output container (defaults to the service layer name)")
	downloadCmd.Flags().String("layer-type", "", "density hint for the safety gate, e.g. parcels or contours")
	downloadCmd.Flags().String("bbox", "", "envelope filter: xmin,ymin,xmax,ymax")
	downloadCmd.Flags().String("clip", "", "GeoJSON polygon file used as the spatial filter")
	downloadCmd.Flags().String("clip-shp", "", "shapefile whose first polygon is used as the spatial filter")
	downloadCmd.Flags().Int("in-wkid", 4326, "spatial reference of the filter coordinates")
	downloadCmd.Flags().Int("out-wkid", 0, "output spatial reference override")
	downloadCmd.Flags().Int("batch-size", 0, "OID batch size (default from config)")
	downloadCmd.Flags().Bool("yes", false, "skip the confirmation prompt on warnings")
	_ = downloadCmd.MarkFlagRequired("layer")
	rootCmd.AddCommand(downloadCmd)
}
