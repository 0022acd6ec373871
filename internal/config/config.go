// Package config provides configuration management for jfscan.
//
// Config file locations (priority order):
//  1. $JFSCAN_CONFIG
//  2. ./jfscan.yaml
//  3. ~/.config/jfscan/config.yaml
//
// Command line flags override values loaded from the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDSN      = ":memory:"
	DefaultWorkers  = 32
	DefaultTimeout  = 2 * time.Second
	DefaultLogLevel = "info"
)

// DefaultResolvers are used when no nameserver is configured
var DefaultResolvers = []string{
	"1.1.1.1:53",
	"8.8.8.8:53",
	"1.0.0.1:53",
	"8.8.4.4:53",
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = DefaultDSN
	}
	if len(c.Resolver.Servers) == 0 {
		c.Resolver.Servers = append([]string(nil), DefaultResolvers...)
	}
	if c.Resolver.Timeout <= 0 {
		c.Resolver.Timeout = Duration(DefaultTimeout)
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = DefaultWorkers
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
