// Package config loads recordlink settings from config.yaml and RECORDLINK_*
// environment variables, and configures the global logger.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	SPARQL SPARQLConfig `yaml:"sparql" mapstructure:"sparql"`
	Remote RemoteConfig `yaml:"remote" mapstructure:"remote"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Merge  MergeConfig  `yaml:"merge" mapstructure:"merge"`
	Derive DeriveConfig `yaml:"derive" mapstructure:"derive"`
	Report ReportConfig `yaml:"report" mapstructure:"report"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SPARQLConfig configures the query endpoint used by fetch.
type SPARQLConfig struct {
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RemoteConfig configures downloads of http(s) merge sources. Unlike the
// SPARQL endpoint these are retried on 429 and 5xx responses.
type RemoteConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// StoreConfig configures where merge results are persisted.
type StoreConfig struct {
	// Driver is "sqlite", "postgres" or "none".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
}

// MergeConfig holds merge defaults applied when a job omits them.
type MergeConfig struct {
	Role string `yaml:"role" mapstructure:"role"`
}

// DeriveConfig holds derived-metric defaults.
type DeriveConfig struct {
	AgeMin    float64   `yaml:"age_min" mapstructure:"age_min"`
	AgeMax    float64   `yaml:"age_max" mapstructure:"age_max"`
	Quantiles []float64 `yaml:"quantiles" mapstructure:"quantiles"`
	Seed      uint64    `yaml:"seed" mapstructure:"seed"`
}

// ReportConfig holds reporting defaults.
type ReportConfig struct {
	Alpha float64 `yaml:"alpha" mapstructure:"alpha"`
}

// Load reads configuration from config.yaml in the working directory and
// RECORDLINK_* environment variables. Missing files are not an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RECORDLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sparql.endpoint", "https://query.wikidata.org/sparql")
	v.SetDefault("sparql.user_agent", "recordlink/1.0")
	v.SetDefault("sparql.timeout_secs", 60)
	v.SetDefault("remote.user_agent", "recordlink/1.0")
	v.SetDefault("remote.timeout_secs", 120)
	v.SetDefault("remote.max_attempts", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "recordlink.db")
	v.SetDefault("store.schema", "public")
	v.SetDefault("merge.role", "any")
	v.SetDefault("derive.age_min", 18)
	v.SetDefault("derive.age_max", 70)
	v.SetDefault("derive.quantiles", []float64{0.25, 0.5, 0.75})
	v.SetDefault("derive.seed", 1)
	v.SetDefault("report.alpha", 0.05)

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

// Validate checks the settings a command mode depends on. All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "fetch":
		if c.SPARQL.Endpoint == "" {
			errs = append(errs, "sparql.endpoint is required")
		}
		if c.SPARQL.TimeoutSecs <= 0 {
			errs = append(errs, "sparql.timeout_secs must be positive")
		}
	case "merge":
		if c.Remote.TimeoutSecs <= 0 {
			errs = append(errs, "remote.timeout_secs must be positive")
		}
		if c.Remote.MaxAttempts < 1 {
			errs = append(errs, "remote.max_attempts must be at least 1")
		}
		switch c.Store.Driver {
		case "none":
		case "sqlite":
			if c.Store.Path == "" {
				errs = append(errs, "store.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for the postgres driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
		}
	case "derive":
		if c.Derive.AgeMin > c.Derive.AgeMax {
			errs = append(errs, "derive.age_min must not exceed derive.age_max")
		}
		for _, q := range c.Derive.Quantiles {
			if q < 0 || q > 1 {
				errs = append(errs, fmt.Sprintf("derive.quantiles value %v is outside [0, 1]", q))
			}
		}
	case "stats":
		if c.Report.Alpha <= 0 || c.Report.Alpha >= 1 {
			errs = append(errs, "report.alpha must be in (0, 1)")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger builds the global zap logger from cfg.
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
