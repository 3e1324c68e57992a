package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <service-url> <layer-id>",
	Short: "Show one layer's schema: fields, geometry type, spatial reference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		layerID, err := strconv.Atoi(args[1])
		if err != nil {
			return eris.Wrapf(err, "describe: layer id %q", args[1])
		}

		client := newClient()
		schema, err := client.LayerSchema(cmd.Context(), args[0], layerID)
		if err != nil {
			return eris.Wrap(err, "describe")
		}

		fmt.Printf("Layer %d: %s\n", schema.ID, schema.Name)
		fmt.Printf("Geometry:          %s\n", schema.GeometryType)
		fmt.Printf("Spatial reference: %d\n", schema.SpatialReference.ID())
		if schema.MaxRecordCount > 0 {
			fmt.Printf("Max record count:  %d\n", schema.MaxRecordCount)
		}
		fmt.Printf("Fields (%d):\n", len(schema.Fields))
		for _, f := range schema.Fields {
			length := ""
			if f.Length > 0 {
				length = fmt.Sprintf(" (%d)", f.Length)
			}
			fmt.Printf("  %-32s %s%s\n", f.Name, f.Type, length)
		}
		return nil
	},
}

func init() { rootCmd.AddCommand(describeCmd) }
