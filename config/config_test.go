package config_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/dddkit/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dddkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "dddkit_stories", cfg.Metrics.Prefix)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
logging:
  level: debug
  backend: zap
metrics:
  prefix: shop
  labels:
    env: staging
  buckets: [5, 50, 500]
tracing:
  enabled: true
  endpoint: http://collector:4318
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "zap", cfg.Logging.Backend)
	assert.Equal(t, "shop", cfg.Metrics.Prefix)
	assert.Equal(t, "dddkit_stories", cfg.Metrics.AppName)
	assert.Equal(t, map[string]string{"env": "staging"}, cfg.Metrics.Labels)
	assert.Equal(t, []float64{5, 50, 500}, cfg.Metrics.Buckets)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "http://collector:4318", cfg.Tracing.Endpoint)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "logging:\n  level: debug\nmetrics:\n  prefix: shop\n")

	t.Setenv("DDDKIT_LOG_LEVEL", "warn")
	t.Setenv("DDDKIT_METRICS_LABELS", "region:eu,tier:gold")
	t.Setenv("DDDKIT_METRICS_BUCKETS", "1,2,3")
	t.Setenv("DDDKIT_TRACING_SERVICE_NAME", "billing")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "shop", cfg.Metrics.Prefix)
	assert.Equal(t, map[string]string{"region": "eu", "tier": "gold"}, cfg.Metrics.Labels)
	assert.Equal(t, []float64{1, 2, 3}, cfg.Metrics.Buckets)
	assert.Equal(t, "billing", cfg.Tracing.ServiceName)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "logging: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("unknown level", func(t *testing.T) {
		t.Setenv("DDDKIT_LOG_LEVEL", "verbose")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "unknown log level")
	})

	t.Run("unsorted buckets", func(t *testing.T) {
		t.Setenv("DDDKIT_METRICS_BUCKETS", "10,5")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "strictly increasing")
	})

	t.Run("tracing without endpoint", func(t *testing.T) {
		t.Setenv("DDDKIT_TRACING_ENABLED", "true")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "endpoint")
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("DDDKIT_METRICS_ENABLED", "maybe")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "parse env")
	})
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	for _, backend := range []string{"slog", "zap"} {
		t.Run(backend, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := config.LoggingConfig{Level: "info", Format: "json", Backend: backend}.NewLogger(&buf)
			require.NoError(t, err)

			logger.Debug("hidden")
			logger.Info("story progress", "story", "Checkout")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
			assert.Equal(t, "story progress", entry["msg"])
			assert.Equal(t, "Checkout", entry["story"])
		})
	}

	_, err := config.LoggingConfig{Level: "loud"}.NewLogger(&bytes.Buffer{})
	assert.Error(t, err)
}
