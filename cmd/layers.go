package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var layersCmd = &cobra.Command{
	Use:   "layers <service-url>",
	Short: "List the layers of a map/feature service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		layers, err := client.ServiceLayers(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "layers")
		}

		if len(layers) == 0 {
			fmt.Println("Service declares no layers.")
			return nil
		}

		for _, l := range layers {
			parent := ""
			if l.ParentID >= 0 {
				parent = fmt.Sprintf("  (parent %d)", l.ParentID)
			}
			fmt.Printf("%4d  %-40s %s%s\n", l.ID, l.Name, l.Type, parent)
		}
		return nil
	},
}

func init() { rootCmd.AddCommand(layersCmd) }
