package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var servicesCmd = &cobra.Command{
	Use:   "services <directory-url>",
	Short: "List the map/feature services of a REST directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		entries, err := client.DirectoryServices(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "services")
		}

		if len(entries) == 0 {
			fmt.Println("No map or feature services found.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%-40s %-13s %s\n", e.DisplayName, e.Type, e.URL)
		}
		return nil
	},
}

func init() { rootCmd.AddCommand(servicesCmd) }
