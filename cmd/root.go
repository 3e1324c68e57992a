package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geograb/internal/config"
	"github.com/sells-group/geograb/pkg/arcgis"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geograb",
	Short: "Safety-gated ArcGIS REST feature downloader",
	Long: "Browses ArcGIS-style REST map services, checks prospective downloads against " +
		"safety thresholds, and pulls features in OID-paginated batches into GeoPackage or GeoJSON.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newClient builds the REST client from config.
func newClient(opts ...arcgis.Option) arcgis.Client {
	base := []arcgis.Option{
		arcgis.WithTimeout(cfg.ArcGIS.Timeout()),
		arcgis.WithHealthTimeout(cfg.ArcGIS.HealthTimeout()),
		arcgis.WithUserAgent(cfg.ArcGIS.UserAgent),
		arcgis.WithTLSVerification(cfg.ArcGIS.VerifyTLS),
		arcgis.WithRateLimit(cfg.ArcGIS.RateLimitRPS),
	}
	return arcgis.New(append(base, opts...)...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
