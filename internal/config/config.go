package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geograb/internal/safety"
)

// Config holds the full application configuration.
type Config struct {
	ArcGIS   ArcGISConfig   `yaml:"arcgis" mapstructure:"arcgis"`
	Safety   safety.Config  `yaml:"safety" mapstructure:"safety"`
	Download DownloadConfig `yaml:"download" mapstructure:"download"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ArcGISConfig configures the REST client.
type ArcGISConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	HealthTimeoutSecs int     `yaml:"health_timeout_secs" mapstructure:"health_timeout_secs"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	VerifyTLS         bool    `yaml:"verify_tls" mapstructure:"verify_tls"`
	RateLimitRPS      float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// Timeout returns the bulk request timeout.
func (c ArcGISConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// HealthTimeout returns the health probe timeout.
func (c ArcGISConfig) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSecs) * time.Second
}

// DownloadConfig configures the batch downloader.
type DownloadConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	OutWKID   int `yaml:"out_wkid" mapstructure:"out_wkid"`
}

// RegistryConfig locates the saved-service store.
type RegistryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.geograb")

	// Environment
	v.SetEnvPrefix("GEOGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("arcgis.timeout_secs", 60)
	v.SetDefault("arcgis.health_timeout_secs", 10)
	v.SetDefault("arcgis.user_agent", "geograb/1.0")
	v.SetDefault("arcgis.verify_tls", false)
	v.SetDefault("arcgis.rate_limit_rps", 4.0)
	v.SetDefault("download.batch_size", 500)
	v.SetDefault("download.out_wkid", 0)
	v.SetDefault("registry.path", defaultRegistryPath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	defaults := safety.DefaultConfig()
	v.SetDefault("safety.warn_feature_count", defaults.WarnFeatureCount)
	v.SetDefault("safety.block_feature_count", defaults.BlockFeatureCount)
	v.SetDefault("safety.warn_extent_sq_deg", defaults.WarnExtentSqDeg)
	v.SetDefault("safety.block_extent_sq_deg", defaults.BlockExtentSqDeg)
	v.SetDefault("safety.est_bytes_per_feature", defaults.EstBytesPerFeat)
	v.SetDefault("safety.count_timeout", defaults.CountTimeout.String())
	v.SetDefault("safety.high_density_layer_types", defaults.HighDensityLayerTypes)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func defaultRegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".geograb/services.json"
	}
	return home + "/.geograb/services.json"
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
