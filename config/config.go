// Package config loads asset cache settings from YAML files and the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/assetcache/errors"
)

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"`
}

// Config is the central configuration struct
type Config struct {
	AssetRoot     string        `yaml:"asset_root"`
	UserDataRoot  string        `yaml:"user_data_root"`
	LogLevel      string        `yaml:"log_level"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	Metrics       MetricsConfig `yaml:"metrics"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		AssetRoot:     "assets",
		UserDataRoot:  "userdata",
		LogLevel:      "info",
		FrameInterval: 16 * time.Millisecond,
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "assetcache",
			Addr:      ":9090",
		},
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config("read "+path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Config("parse yaml", err)
	}
	return cfg, nil
}

// ApplyEnv applies environment variable overrides to the config
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ASSETCACHE_ASSET_ROOT"); v != "" {
		c.AssetRoot = v
	}
	if v := os.Getenv("ASSETCACHE_USER_DATA_ROOT"); v != "" {
		c.UserDataRoot = v
	}
	if v := os.Getenv("ASSETCACHE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ASSETCACHE_FRAME_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.FrameInterval = d
		}
	}
	if v := os.Getenv("ASSETCACHE_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("ASSETCACHE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// Validate checks the config for values the engine cannot run with
func (c *Config) Validate() error {
	if c.FrameInterval <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, "frame_interval must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.InvalidInput(errors.PhaseConfig, "unknown log_level "+strconv.Quote(c.LogLevel))
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.InvalidInput(errors.PhaseConfig, "metrics.namespace is required when metrics are enabled")
	}
	return nil
}

// Marshal encodes the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
