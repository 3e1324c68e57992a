package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geograb/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the saved-service store",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved services",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(cfg.Registry.Path)
		if err != nil {
			return eris.Wrap(err, "registry list")
		}

		keys := reg.ServiceKeys()
		if len(keys) == 0 {
			fmt.Println("No saved services.")
			return nil
		}
		for _, key := range keys {
			svc := reg.Services[key]
			region := ""
			if svc.Region != "" {
				region = "  [" + svc.Region + "]"
			}
			fmt.Printf("%-24s %-13s %s%s\n", key, svc.Type, svc.URL, region)
		}
		return nil
	},
}

var registryAddCmd = &cobra.Command{
	Use:   "add <key> <url>",
	Short: "Save a service under a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(cfg.Registry.Path)
		if err != nil {
			return eris.Wrap(err, "registry add")
		}

		name, _ := cmd.Flags().GetString("name")
		svcType, _ := cmd.Flags().GetString("type")
		region, _ := cmd.Flags().GetString("region")
		layerType, _ := cmd.Flags().GetString("layer-type")

		if name == "" {
			name = args[0]
		}
		if err := reg.AddService(args[0], registry.Service{
			Name:      name,
			URL:       args[1],
			Type:      svcType,
			Region:    region,
			LayerType: layerType,
		}); err != nil {
			return eris.Wrap(err, "registry add")
		}
		if err := reg.Save(); err != nil {
			return eris.Wrap(err, "registry add")
		}

		fmt.Printf("Saved %s\n", args[0])
		return nil
	},
}

var registryRemoveCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove a saved service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(cfg.Registry.Path)
		if err != nil {
			return eris.Wrap(err, "registry remove")
		}
		if err := reg.RemoveService(args[0]); err != nil {
			return eris.Wrap(err, "registry remove")
		}
		if err := reg.Save(); err != nil {
			return eris.Wrap(err, "registry remove")
		}

		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

func init() {
	registryAddCmd.Flags().String("name", "", "display name")
	registryAddCmd.Flags().String("type", "MapServer", "service type (MapServer or FeatureServer)")
	registryAddCmd.Flags().String("region", "", "region key this service belongs to")
	registryAddCmd.Flags().String("layer-type", "", "density hint for the safety gate")
	registryCmd.AddCommand(registryListCmd, registryAddCmd, registryRemoveCmd)
	rootCmd.AddCommand(registryCmd)
}
