package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout" validate:"required"`
	} `yaml:"log"`
	Feed struct {
		Provider       string        `yaml:"provider" default:"binance" validate:"oneof=binance yahoo mock"`
		BaseURL        string        `yaml:"base_url" validate:"omitempty,url"`
		Symbols        []string      `yaml:"symbols"`
		QuoteAsset     string        `yaml:"quote_asset" default:"USDT"`
		Timeout        time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
		RequestsPerSec float64       `yaml:"requests_per_sec" default:"10" validate:"gt=0"`
		MaxRetries     uint64        `yaml:"max_retries" default:"2" validate:"lte=10"`
	} `yaml:"feed"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/target_sentinel.db"`
	} `yaml:"database"`
	Ingest struct {
		Workers  int           `yaml:"workers" default:"20" validate:"min=1,max=256"`
		Lookback time.Duration `yaml:"lookback" default:"24h" validate:"gt=0"`
	} `yaml:"ingest"`
	Schedule struct {
		IngestCron string `yaml:"ingest_cron" default:"0 * * * * *" validate:"required"`
		ReportCron string `yaml:"report_cron" default:"0 0 0 * * *" validate:"required"`
	} `yaml:"schedule"`
	Stats struct {
		TrendDays int `yaml:"trend_days" default:"14" validate:"min=2,max=366"`
	} `yaml:"stats"`
	Cache struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis"`
		TTL     time.Duration `yaml:"ttl" default:"30s" validate:"gte=0"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"gte=0"`
			Prefix   string `yaml:"prefix" default:"targetsentinel:"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" default:":9090"`
		Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load applies struct defaults, then the YAML file (a missing file is not an
// error), then environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FEED_BASE_URL"); v != "" {
		cfg.Feed.BaseURL = v
	}
	if v := os.Getenv("FEED_PROVIDER"); v != "" {
		cfg.Feed.Provider = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("INGEST_CRON"); v != "" {
		cfg.Schedule.IngestCron = v
	}
	if v := os.Getenv("INGEST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.Workers = n
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}

	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Feed.Provider == "yahoo" && len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("invalid config: feed.symbols is required for the yahoo provider")
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("invalid config: cache.redis.addr is required for the redis backend")
	}
	return nil
}
