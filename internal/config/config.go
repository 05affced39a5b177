package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourcesConfig configures the external data providers.
type SourcesConfig struct {
	UserAgent      string      `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int         `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	LiveBaseURL    string      `yaml:"live_base_url" mapstructure:"live_base_url"`
	StatsBaseURL   string      `yaml:"stats_base_url" mapstructure:"stats_base_url"`
	ESPNBaseURL    string      `yaml:"espn_base_url" mapstructure:"espn_base_url"`
	CoversBaseURL  string      `yaml:"covers_base_url" mapstructure:"covers_base_url"`
	InjuryURL      string      `yaml:"injury_url" mapstructure:"injury_url"`
	RatePerSec     float64     `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst      int         `yaml:"rate_burst" mapstructure:"rate_burst"`
	LiveMaxAgeDays int         `yaml:"live_max_age_days" mapstructure:"live_max_age_days"`
	Retry          RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures the per-source retry policy.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// SyncConfig configures the staged pipeline.
type SyncConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Timeout returns the source request timeout as a duration.
func (s SourcesConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// LiveMaxAge returns the live-endpoint validity window as a duration.
func (s SourcesConfig) LiveMaxAge() time.Duration {
	return time.Duration(s.LiveMaxAgeDays) * 24 * time.Hour
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HOOPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "hoopsync.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("sources.user_agent", "hoopsync/1.0 (+https://github.com/hoopsight/hoopsync)")
	v.SetDefault("sources.timeout_secs", 30)
	v.SetDefault("sources.live_base_url", "https://cdn.nba.com/static/json/liveData")
	v.SetDefault("sources.stats_base_url", "https://stats.nba.com/stats")
	v.SetDefault("sources.espn_base_url", "https://site.api.espn.com/apis/site/v2/sports/basketball/nba")
	v.SetDefault("sources.covers_base_url", "https://www.covers.com/sport/basketball/nba")
	v.SetDefault("sources.injury_url", "https://cdn.nba.com/static/json/staticData/injuryReport.json")
	v.SetDefault("sources.rate_per_sec", 2.0)
	v.SetDefault("sources.rate_burst", 1)
	v.SetDefault("sources.live_max_age_days", 2)
	v.SetDefault("sources.retry.max_attempts", 4)
	v.SetDefault("sources.retry.base_delay_ms", 500)
	v.SetDefault("sources.retry.max_delay_ms", 15000)
	v.SetDefault("sync.workers", 4)
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

// Validate checks configuration consistency before a command that needs
// a store runs.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Sync.Workers < 1 || c.Sync.Workers > 32 {
		problems = append(problems, "sync.workers must be between 1 and 32")
	}
	if c.Sources.RatePerSec <= 0 {
		problems = append(problems, "sources.rate_per_sec must be > 0")
	}
	if c.Sources.Retry.MaxAttempts < 1 {
		problems = append(problems, "sources.retry.max_attempts must be >= 1")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
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
