// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Score    ScoreConfig    `yaml:"score" mapstructure:"score"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CatalogConfig configures catalog seed loading and remote sync.
type CatalogConfig struct {
	SeedURL string `yaml:"seed_url" mapstructure:"seed_url"`
	// SyncRatePerSec caps outbound seed requests; remote catalogs are
	// third-party services.
	SyncRatePerSec float64 `yaml:"sync_rate_per_sec" mapstructure:"sync_rate_per_sec"`
	SyncRetries    int     `yaml:"sync_retries" mapstructure:"sync_retries"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ResolverConfig holds the affix resolution tunables. The acceptance
// threshold and range tolerance are deliberately configuration, not
// constants.
type ResolverConfig struct {
	// MinSimilarity is the acceptance threshold for fuzzy name matching,
	// in [0,1].
	MinSimilarity float64 `yaml:"min_similarity" mapstructure:"min_similarity"`
	// RangeTolerancePct widens the catalog range by this fraction of its
	// width before an observed value is rejected.
	RangeTolerancePct float64 `yaml:"range_tolerance_pct" mapstructure:"range_tolerance_pct"`
	// TrigramMin is the minimum trigram overlap for a catalog entry to
	// enter the candidate set.
	TrigramMin int `yaml:"trigram_min" mapstructure:"trigram_min"`
}

// ScoreConfig holds scoring numerics.
type ScoreConfig struct {
	// Epsilon is the equality band for comparing two totals.
	Epsilon float64 `yaml:"epsilon" mapstructure:"epsilon"`
}

// ServerConfig configures the compare server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
	// BuildsDir is scanned for build profile YAML files at startup.
	BuildsDir string `yaml:"builds_dir" mapstructure:"builds_dir"`
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

	// Environment
	v.SetEnvPrefix("LOOTHOUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "loothound.db")
	v.SetDefault("catalog.sync_rate_per_sec", 0.5)
	v.SetDefault("catalog.sync_retries", 3)
	v.SetDefault("catalog.timeout_secs", 30)
	v.SetDefault("resolver.min_similarity", 0.72)
	v.SetDefault("resolver.range_tolerance_pct", 0.25)
	v.SetDefault("resolver.trigram_min", 1)
	v.SetDefault("score.epsilon", 1e-9)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.builds_dir", "builds")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
