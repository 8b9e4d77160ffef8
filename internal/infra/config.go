package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration. Values loaded from
// the YAML file can be overridden by OBV_* environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		RestURL        string `yaml:"rest_url"`
		WSURL          string `yaml:"ws_url"`
		Symbol         string `yaml:"symbol"`
		DepthLimit     int    `yaml:"depth_limit"`
		DiffIntervalMS int    `yaml:"diff_interval_ms"`
	} `yaml:"feed"`

	View struct {
		UpdateIntervalMS int   `yaml:"update_interval_ms"`
		Rows             int   `yaml:"rows"`
		Grouping         int64 `yaml:"grouping"`
		TradeCapacity    int   `yaml:"trade_capacity"`
		TradeFreshMS     int   `yaml:"trade_fresh_ms"`
		StartPaused      bool  `yaml:"start_paused"`
	} `yaml:"view"`

	Publish struct {
		Enabled   bool   `yaml:"enabled"`
		RedisAddr string `yaml:"redis_addr"`
		Channel   string `yaml:"channel"`
	} `yaml:"publish"`

	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`

	Storage struct {
		MetaDBPath string `yaml:"meta_db_path"`
		MetaTTLSec int    `yaml:"meta_ttl_sec"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "orderbook-visualizer"
	}
	if cfg.Feed.RestURL == "" {
		cfg.Feed.RestURL = "https://api.binance.com"
	}
	if cfg.Feed.WSURL == "" {
		cfg.Feed.WSURL = "wss://stream.binance.com:9443"
	}
	if cfg.Feed.DepthLimit == 0 {
		cfg.Feed.DepthLimit = 1000
	}
	if cfg.Feed.DiffIntervalMS == 0 {
		cfg.Feed.DiffIntervalMS = 100
	}
	if cfg.View.UpdateIntervalMS == 0 {
		cfg.View.UpdateIntervalMS = 100
	}
	if cfg.View.Rows == 0 {
		cfg.View.Rows = 20
	}
	if cfg.View.Grouping == 0 {
		cfg.View.Grouping = 1
	}
	if cfg.View.TradeCapacity == 0 {
		cfg.View.TradeCapacity = 50
	}
	if cfg.View.TradeFreshMS == 0 {
		cfg.View.TradeFreshMS = 300
	}
	if cfg.Publish.Channel == "" {
		cfg.Publish.Channel = "orderbook:projection"
	}
	if cfg.Storage.MetaTTLSec == 0 {
		cfg.Storage.MetaTTLSec = 86400
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Feed.Symbol == "" {
		return fmt.Errorf("feed symbol is required")
	}
	if !hasPrefix(c.Feed.WSURL, "ws://") && !hasPrefix(c.Feed.WSURL, "wss://") {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}
	if !hasPrefix(c.Feed.RestURL, "http://") && !hasPrefix(c.Feed.RestURL, "https://") {
		return fmt.Errorf("invalid feed REST URL: %s", c.Feed.RestURL)
	}
	if c.View.UpdateIntervalMS <= 0 {
		return fmt.Errorf("update interval must be positive")
	}
	if c.View.Rows < 0 {
		return fmt.Errorf("view rows must be non-negative")
	}
	if c.Publish.Enabled && c.Publish.RedisAddr == "" {
		return fmt.Errorf("publish enabled but redis_addr is empty")
	}
	return nil
}

// UpdateInterval returns the display refresh cadence.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.View.UpdateIntervalMS) * time.Millisecond
}

// TradeFreshFor returns how long a trade row is flagged as new.
func (c *Config) TradeFreshFor() time.Duration {
	return time.Duration(c.View.TradeFreshMS) * time.Millisecond
}

// MetaTTL returns how long cached symbol metadata stays valid.
func (c *Config) MetaTTL() time.Duration {
	return time.Duration(c.Storage.MetaTTLSec) * time.Second
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies OBV_* environment variables on top of the
// file values. Environment wins over the file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("OBV_SYMBOL"); v != "" {
		cfg.Feed.Symbol = v
	}
	if v := os.Getenv("OBV_REST_URL"); v != "" {
		cfg.Feed.RestURL = v
	}
	if v := os.Getenv("OBV_WS_URL"); v != "" {
		cfg.Feed.WSURL = v
	}
	if v := os.Getenv("OBV_REDIS_ADDR"); v != "" {
		cfg.Publish.RedisAddr = v
		cfg.Publish.Enabled = true
	}
	if v := os.Getenv("OBV_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := os.Getenv("OBV_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OBV_VIEW_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.View.Rows = n
		}
	}
}
