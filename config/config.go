// Package config loads dddkit settings from an optional YAML file and the
// environment.
//
// Precedence, lowest first: Default(), the YAML file, environment variables.
// Environment variables are grouped by prefix:
//
//	DDDKIT_LOG_LEVEL, DDDKIT_LOG_FORMAT, DDDKIT_LOG_BACKEND, DDDKIT_LOG_ADD_SOURCE
//	DDDKIT_METRICS_ENABLED, DDDKIT_METRICS_APP_NAME, DDDKIT_METRICS_PREFIX,
//	DDDKIT_METRICS_LABELS (k1:v1,k2:v2), DDDKIT_METRICS_BUCKETS (10,50,100)
//	DDDKIT_TRACING_ENABLED, DDDKIT_TRACING_ENDPOINT, DDDKIT_TRACING_SERVICE_NAME
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/hupe1980/dddkit/logging"
	"github.com/hupe1980/dddkit/metrics"
	"github.com/hupe1980/dddkit/tracing"
	"gopkg.in/yaml.v3"
)

// Config is the complete dddkit configuration.
type Config struct {
	Logging LoggingConfig  `yaml:"logging" envPrefix:"DDDKIT_LOG_"`
	Metrics metrics.Config `yaml:"metrics" envPrefix:"DDDKIT_METRICS_"`
	Tracing tracing.Config `yaml:"tracing" envPrefix:"DDDKIT_TRACING_"`
}

// LoggingConfig selects the logging backend and its settings.
type LoggingConfig struct {
	Level     string `yaml:"level" env:"LEVEL"`
	Format    string `yaml:"format" env:"FORMAT"`   // json or text
	Backend   string `yaml:"backend" env:"BACKEND"` // slog or zap
	AddSource bool   `yaml:"add_source" env:"ADD_SOURCE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "json", Backend: "slog"},
		Metrics: metrics.DefaultConfig(),
		Tracing: tracing.DefaultConfig(),
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports settings no component could act on.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}

	switch c.Logging.Backend {
	case "", "slog", "zap":
	default:
		return fmt.Errorf("logging: unknown backend %q", c.Logging.Backend)
	}

	for i := 1; i < len(c.Metrics.Buckets); i++ {
		if c.Metrics.Buckets[i] <= c.Metrics.Buckets[i-1] {
			return fmt.Errorf("metrics: buckets must be strictly increasing")
		}
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing: enabled without endpoint")
	}

	return nil
}

// NewLogger builds the configured logger writing to w.
func (c LoggingConfig) NewLogger(w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	format := c.Format
	if format == "" {
		format = "json"
	}

	if c.Backend == "zap" {
		return logging.NewZapLogger(level, format, w), nil
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    format,
		Output:    w,
		AddSource: c.AddSource,
	}), nil
}
