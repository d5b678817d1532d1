// Package dddkit provides a high-level façade over the story engine and its
// observability hooks. Most applications interact with this package by:
//  1. Loading a config.Config (defaults, YAML file, environment)
//  2. Building a Stack from it: logger, trackers, stats, metrics and tracing hooks
//  3. Defining stories with NewStory, wired to the stack's hooks
//
// The façade only composes the story, logging, stats, metrics and tracing
// packages; everything it does can also be done by hand.
package dddkit

import (
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/dddkit/config"
	"github.com/hupe1980/dddkit/logging"
	"github.com/hupe1980/dddkit/metrics"
	"github.com/hupe1980/dddkit/stats"
	"github.com/hupe1980/dddkit/story"
	"github.com/hupe1980/dddkit/tracing"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Options configures NewStory.
type Options struct {
	// Logger receives LoggingHook output (defaults to slog.Default()).
	Logger logging.Logger

	// Hooks replaces the default hook set when non-nil. An empty, non-nil
	// slice runs the story without hooks.
	Hooks []story.Hook

	// ExtraHooks are appended after Hooks (or after the defaults).
	ExtraHooks []story.Hook

	// Clock stamps step execution times (defaults to the real clock).
	Clock clockwork.Clock

	// NewRunID overrides run ID generation.
	NewRunID func() string
}

// NewStory defines a story and injects its hooks in one call. Unless Hooks
// is set, the builtin StatusTracker, ExecutionTimeTracker and LoggingHook are
// attached, bound to Logger and Clock.
func NewStory[S any](name string, steps []string, methods story.Methods[S], optFns ...func(o *Options)) (*story.Definition[S], error) {
	opts := Options{
		Logger: logging.NewDefaultSlogLogger(),
		Clock:  clockwork.NewRealClock(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	def, err := story.Define(name, steps, methods, func(o *story.Options) {
		o.Clock = opts.Clock
		if opts.NewRunID != nil {
			o.NewRunID = opts.NewRunID
		}
	})
	if err != nil {
		return nil, err
	}

	hooks := opts.Hooks
	if hooks == nil {
		hooks = defaultHooks(opts.Logger, opts.Clock)
	}

	all := make([]story.Hook, 0, len(hooks)+len(opts.ExtraHooks))
	all = append(all, hooks...)
	all = append(all, opts.ExtraHooks...)

	if err := story.InjectHooks(def, all); err != nil {
		return nil, err
	}

	return def, nil
}

func defaultHooks(logger logging.Logger, clock clockwork.Clock) []story.Hook {
	status := story.NewStatusTracker()
	timing := story.NewExecutionTimeTracker(func(o *story.ExecutionTimeTrackerOptions) { o.Clock = clock })
	progress := story.NewLoggingHook(status, timing, func(o *story.LoggingHookOptions) { o.Logger = logger })

	return []story.Hook{status, timing, progress}
}

// StackOptions configures NewStack.
type StackOptions struct {
	// Output receives log lines (defaults to os.Stdout).
	Output io.Writer
	// Clock drives the ExecutionTimeTracker (defaults to the real clock).
	Clock clockwork.Clock
	// MeterProvider overrides the global OpenTelemetry meter provider.
	MeterProvider metric.MeterProvider
	// TracerProvider overrides the global OpenTelemetry tracer provider.
	TracerProvider trace.TracerProvider
}

// Stack is the set of hooks built from a config.Config. Metrics and
// Tracing are nil when disabled.
type Stack struct {
	Logger  logging.Logger
	Status  *story.StatusTracker
	Timing  *story.ExecutionTimeTracker
	Logging *story.LoggingHook
	Stats   *stats.Recorder
	Metrics *metrics.Hook
	Tracing *tracing.Hook
}

// NewStack builds the logger and every hook enabled by cfg.
func NewStack(cfg config.Config, optFns ...func(o *StackOptions)) (*Stack, error) {
	opts := StackOptions{
		Output: os.Stdout,
		Clock:  clockwork.NewRealClock(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	logger, err := cfg.Logging.NewLogger(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("dddkit: logger: %w", err)
	}

	s := &Stack{
		Logger: logger,
		Status: story.NewStatusTracker(),
		Timing: story.NewExecutionTimeTracker(func(o *story.ExecutionTimeTrackerOptions) { o.Clock = opts.Clock }),
		Stats:  stats.NewRecorder(),
	}
	s.Logging = story.NewLoggingHook(s.Status, s.Timing, func(o *story.LoggingHookOptions) { o.Logger = logger })

	if cfg.Metrics.Enabled {
		s.Metrics, err = metrics.NewHook(cfg.Metrics, func(o *metrics.Options) {
			if opts.MeterProvider != nil {
				o.MeterProvider = opts.MeterProvider
			}
		})
		if err != nil {
			return nil, fmt.Errorf("dddkit: %w", err)
		}
	}

	if cfg.Tracing.Enabled || opts.TracerProvider != nil {
		s.Tracing = tracing.NewHook(func(o *tracing.Options) {
			if opts.TracerProvider != nil {
				o.TracerProvider = opts.TracerProvider
			}
		})
	}

	return s, nil
}

// Hooks returns the stack's hooks in dispatch order. The trackers come
// first so the LoggingHook renders up-to-date progress.
func (s *Stack) Hooks() []story.Hook {
	hooks := []story.Hook{s.Status, s.Timing, s.Logging, s.Stats}
	if s.Metrics != nil {
		hooks = append(hooks, s.Metrics)
	}
	if s.Tracing != nil {
		hooks = append(hooks, s.Tracing)
	}
	return hooks
}
