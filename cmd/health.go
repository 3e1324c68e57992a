package main

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geograb/internal/registry"
	"github.com/sells-group/geograb/pkg/arcgis"
)

var healthCmd = &cobra.Command{
	Use:   "health [service-url...]",
	Short: "Probe service reachability and latency",
	Long: `Probes one or more REST services with a short timeout and reports
reachability, round-trip latency and layer count. With --all, probes every
saved service in the registry concurrently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		probeAll, _ := cmd.Flags().GetBool("all")

		urls := map[string]string{}
		for _, u := range args {
			urls[u] = u
		}
		if probeAll {
			reg, err := registry.Load(cfg.Registry.Path)
			if err != nil {
				return eris.Wrap(err, "health")
			}
			for _, key := range reg.ServiceKeys() {
				urls[reg.Services[key].URL] = key
			}
		}
		if len(urls) == 0 {
			return eris.New("health: no service URLs given (pass URLs or --all)")
		}

		cache := arcgis.NewMemoryHealthCache()
		client := newClient(arcgis.WithHealthCache(cache))

		// Probes run concurrently; the cache carries its own lock.
		var mu sync.Mutex
		results := map[string]arcgis.HealthStatus{}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(8)
		for u := range urls {
			u := u
			g.Go(func() error {
				status := client.Health(ctx, u)
				mu.Lock()
				results[u] = status
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "health")
		}

		sorted := make([]string, 0, len(results))
		for u := range results {
			sorted = append(sorted, u)
		}
		sort.Strings(sorted)

		for _, u := range sorted {
			s := results[u]
			label := urls[u]
			if s.Alive {
				fmt.Printf("OK    %-20s %6dms  %d layers  %s\n", label, s.RTT.Milliseconds(), s.LayerCount, u)
			} else {
				fmt.Printf("DEAD  %-20s %6dms  %s  (%s)\n", label, s.RTT.Milliseconds(), u, s.Err)
			}
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().Bool("all", false, "probe every saved service in the registry")
	rootCmd.AddCommand(healthCmd)
}
