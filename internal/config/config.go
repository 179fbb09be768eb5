// Package config loads runtime settings from an optional YAML file,
// an optional .env file, and environment variables, in that order of
// increasing precedence. Bad settings fail at load, not at first use.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// StorePath is the SQLite database file for local persistence.
	StorePath string `yaml:"store_path" env:"KAPESYNC_STORE_PATH" envDefault:"kapesync.db" validate:"required"`

	// RemoteURI is the MongoDB connection string. Empty selects demo
	// mode: no network is ever touched and every write stays local.
	RemoteURI string `yaml:"remote_uri" env:"KAPESYNC_REMOTE_URI"`

	// RemoteDB is the database name on the remote deployment.
	RemoteDB string `yaml:"remote_db" env:"KAPESYNC_REMOTE_DB" envDefault:"kapesync"`

	// DevicePrefix namespaces order ids minted on this device.
	DevicePrefix string `yaml:"device_prefix" env:"KAPESYNC_DEVICE_PREFIX" envDefault:"KS"`

	// ProbeTimeoutSec bounds a single connectivity check.
	ProbeTimeoutSec int `yaml:"probe_timeout_sec" env:"KAPESYNC_PROBE_TIMEOUT_SEC" envDefault:"3" validate:"gt=0"`

	// ProbeTTLSec is how long a probe result is trusted.
	ProbeTTLSec int `yaml:"probe_ttl_sec" env:"KAPESYNC_PROBE_TTL_SEC" envDefault:"2" validate:"gte=0"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"KAPESYNC_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// DemoMode reports whether the config selects the no-network mode.
func (c *Config) DemoMode() bool {
	return c.RemoteURI == ""
}

// ProbeTimeout returns the per-check bound as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSec) * time.Second
}

// ProbeTTL returns the probe cache lifetime as a duration.
func (c *Config) ProbeTTL() time.Duration {
	return time.Duration(c.ProbeTTLSec) * time.Second
}

// SlogLevel maps the configured level to a slog level.
func (c *Config) SlogLevel() string {
	return c.LogLevel
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration. yamlPath may be empty or point at a
// missing file; both mean YAML contributes nothing. A .env file in the
// working directory is loaded when present. Environment variables win
// over everything.
func Load(yamlPath string) (*Config, error) {
	cfg := &Config{}

	if yamlPath != "" {
		raw, err := os.ReadFile(yamlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", yamlPath, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", yamlPath, err)
		}
	}

	// .env never overrides variables already exported.
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// env.Parse writes defaults over zero values, which would clobber
	// YAML settings. Re-apply YAML on top for any variable that is not
	// actually exported.
	if yamlPath != "" {
		raw, err := os.ReadFile(yamlPath)
		if err == nil {
			overlay := &Config{}
			if err := yaml.Unmarshal(raw, overlay); err == nil {
				applyYAMLOverlay(cfg, overlay)
			}
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyYAMLOverlay restores YAML-provided values that env defaults
// overwrote, skipping any field whose env var is exported.
func applyYAMLOverlay(cfg, overlay *Config) {
	set := func(envName string) bool {
		_, ok := os.LookupEnv(envName)
		return !ok
	}
	if overlay.StorePath != "" && set("KAPESYNC_STORE_PATH") {
		cfg.StorePath = overlay.StorePath
	}
	if overlay.RemoteURI != "" && set("KAPESYNC_REMOTE_URI") {
		cfg.RemoteURI = overlay.RemoteURI
	}
	if overlay.RemoteDB != "" && set("KAPESYNC_REMOTE_DB") {
		cfg.RemoteDB = overlay.RemoteDB
	}
	if overlay.DevicePrefix != "" && set("KAPESYNC_DEVICE_PREFIX") {
		cfg.DevicePrefix = overlay.DevicePrefix
	}
	if overlay.ProbeTimeoutSec != 0 && set("KAPESYNC_PROBE_TIMEOUT_SEC") {
		cfg.ProbeTimeoutSec = overlay.ProbeTimeoutSec
	}
	if overlay.ProbeTTLSec != 0 && set("KAPESYNC_PROBE_TTL_SEC") {
		cfg.ProbeTTLSec = overlay.ProbeTTLSec
	}
	if overlay.LogLevel != "" && set("KAPESYNC_LOG_LEVEL") {
		cfg.LogLevel = overlay.LogLevel
	}
}
