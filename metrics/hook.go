package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/dddkit/story"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultAppName is the default value of the service attribute.
	DefaultAppName = "dddkit_stories"
	// DefaultPrefix is the default instrument name prefix.
	DefaultPrefix = "dddkit_stories"

	instrumentationName = "github.com/hupe1980/dddkit/metrics"
)

// DefaultBuckets are the histogram boundaries in milliseconds.
var DefaultBuckets = []float64{10, 25, 50, 100, 300, 500, 1000, 2000, 5000, 10000}

// Config configures the metrics hook. It is embedded in config.Config and
// can be loaded from YAML or the environment.
type Config struct {
	Enabled bool              `yaml:"enabled" env:"ENABLED"`
	AppName string            `yaml:"app_name" env:"APP_NAME"`
	Prefix  string            `yaml:"prefix" env:"PREFIX"`
	Labels  map[string]string `yaml:"labels" env:"LABELS"`
	Buckets []float64         `yaml:"buckets" env:"BUCKETS"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		AppName: DefaultAppName,
		Prefix:  DefaultPrefix,
	}
}

// Options configures a Hook beyond its Config.
type Options struct {
	// MeterProvider defaults to the global provider.
	MeterProvider metric.MeterProvider
}

// Hook records latency histograms for every reached step.
type Hook struct {
	stories metric.Float64Histogram
	steps   metric.Float64Histogram
	base    []attribute.KeyValue
}

// NewHook creates the instruments described by cfg. Empty fields fall back
// to their defaults.
func NewHook(cfg Config, optFns ...func(o *Options)) (*Hook, error) {
	opts := Options{MeterProvider: otel.GetMeterProvider()}
	for _, fn := range optFns {
		fn(&opts)
	}

	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}

	meter := opts.MeterProvider.Meter(instrumentationName)

	stories, err := meter.Float64Histogram(cfg.Prefix+"_executions_latency_ms",
		metric.WithDescription("Story Execution Time"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: create story histogram: %w", err)
	}

	steps, err := meter.Float64Histogram(cfg.Prefix+"_step_executions_latency_ms",
		metric.WithDescription("Story step execution time"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: create step histogram: %w", err)
	}

	base := []attribute.KeyValue{attribute.String("service", cfg.AppName)}

	keys := make([]string, 0, len(cfg.Labels))
	for k := range cfg.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		base = append(base, attribute.String(k, cfg.Labels[k]))
	}

	return &Hook{stories: stories, steps: steps, base: base}, nil
}

// String implements fmt.Stringer.
func (h *Hook) String() string { return "MetricsHook" }

// After implements story.AfterHook.
func (h *Hook) After(ctx context.Context, ec *story.ExecutionContext, step *story.StepExecutionInfo) error {
	h.record(ctx, ec, step)
	return nil
}

// OnError implements story.ErrorHook.
func (h *Hook) OnError(ctx context.Context, ec *story.ExecutionContext, step *story.StepExecutionInfo) error {
	h.record(ctx, ec, step)
	return nil
}

func (h *Hook) record(ctx context.Context, ec *story.ExecutionContext, step *story.StepExecutionInfo) {
	status := step.Status.String()

	stepAttrs := h.attrs(
		attribute.String("story_name", ec.StoryName),
		attribute.String("step_name", step.StepName),
		attribute.String("status", status),
	)
	h.steps.Record(ctx, millis(step.Elapsed()), metric.WithAttributes(stepAttrs...))

	if ec.Last(step) || step.Status == story.StatusError {
		storyAttrs := h.attrs(
			attribute.String("story_name", ec.StoryName),
			attribute.String("status", status),
		)
		h.stories.Record(ctx, millis(ec.Elapsed()), metric.WithAttributes(storyAttrs...))
	}
}

func (h *Hook) attrs(kv ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(h.base)+len(kv))
	out = append(out, h.base...)
	return append(out, kv...)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
