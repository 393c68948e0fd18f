// Package config provides a viper-backed loader for the canon host daemon,
// grounded on pkg/config/config.go from the teacher repo (same
// config-file-plus-env-override shape, narrowed from a full node config to
// the handful of settings a content-addressed store daemon actually needs).
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"synnergy-canon/pkg/utils"
)

// Config is the unified configuration for a canon host process: which Store
// backend to run against, where the HTTP daemon listens, and how verbosely
// it logs.
type Config struct {
	Store struct {
		Backend  string `mapstructure:"backend" json:"backend"` // "mem" | "disk"
		DiskPath string `mapstructure:"disk_path" json:"disk_path"`
	} `mapstructure:"store" json:"store"`

	Pinning struct {
		Enabled        bool   `mapstructure:"enabled" json:"enabled"`
		GatewayURL     string `mapstructure:"gateway_url" json:"gateway_url"`
		CacheDir       string `mapstructure:"cache_dir" json:"cache_dir"`
		CacheEntries   int    `mapstructure:"cache_entries" json:"cache_entries"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	} `mapstructure:"pinning" json:"pinning"`

	HTTP struct {
		ListenAddr      string  `mapstructure:"listen_addr" json:"listen_addr"`
		RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec" json:"rate_limit_per_sec"`
		RateLimitBurst  int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
		MetricsAddr     string  `mapstructure:"metrics_addr" json:"metrics_addr"`
	} `mapstructure:"http" json:"http"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads the base configuration file plus any environment-specific
// overlay named by env (e.g. "prod" reads prod.yaml over default.yaml), then
// applies environment variable overrides. The result is stored in AppConfig
// and returned.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("CANON")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the CANON_ENV environment variable
// to select the overlay, defaulting to no overlay.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("CANON_ENV", ""))
}

// Default returns a Config populated with fixed defaults, for callers that
// run without a config file: cmd/canon-host uses it when Load fails. Load
// itself sets no defaults and returns an error when default.yaml is absent.
func Default() Config {
	var c Config
	c.Store.Backend = "mem"
	c.Store.DiskPath = "./canon-data"
	c.HTTP.ListenAddr = ":8080"
	c.HTTP.RateLimitPerSec = 50
	c.HTTP.RateLimitBurst = 100
	c.HTTP.MetricsAddr = ":9090"
	c.Logging.Level = "info"
	return c
}
