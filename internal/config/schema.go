package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Log      LoggerConfig   `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Resolver ResolverConfig `yaml:"resolver"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LoggerConfig controls log output
type LoggerConfig struct {
	Level       string   `yaml:"level"`  // debug, info, warn, error
	Format      string   `yaml:"format"` // json or console
	OutputPaths []string `yaml:"output_paths,omitempty"`
}

// DatabaseConfig holds the result store settings.
// The store lives for one scan session, so the default is an in-memory database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ResolverConfig holds DNS resolution settings
type ResolverConfig struct {
	Servers []string `yaml:"servers"` // host:port, tried in order
	Timeout Duration `yaml:"timeout"`
}

// IngestConfig controls target ingestion
type IngestConfig struct {
	Workers int `yaml:"workers"` // concurrent domain resolutions
}

// MetricsConfig controls progress metrics export
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
