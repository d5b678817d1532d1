package dddkit_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/dddkit"
	"github.com/hupe1980/dddkit/config"
	"github.com/hupe1980/dddkit/internal/testutil"
	"github.com/hupe1980/dddkit/logging"
	"github.com/hupe1980/dddkit/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type order struct {
	total int
}

var errDeclined = errors.New("card declined")

func methods(failCharge bool) story.Methods[*order] {
	return story.Methods[*order]{
		"validate": story.Sync(func(o *order) error { o.total = 10; return nil }),
		"charge": story.Async(func(_ context.Context, o *order) error {
			if failCharge {
				return errDeclined
			}
			o.total += 5
			return nil
		}),
	}
}

func TestNewStory_DefaultHooks(t *testing.T) {
	def, err := dddkit.NewStory("Checkout", []string{"validate", "charge"}, methods(false),
		func(o *dddkit.Options) { o.Logger = logging.NoOpLogger{} })
	require.NoError(t, err)

	hooks := def.Hooks()
	require.Len(t, hooks, 3)
	assert.IsType(t, &story.StatusTracker{}, hooks[0])
	assert.IsType(t, &story.ExecutionTimeTracker{}, hooks[1])
	assert.IsType(t, &story.LoggingHook{}, hooks[2])

	o := &order{}
	require.NoError(t, def.InvokeAsync(context.Background(), o))
	assert.Equal(t, 15, o.total)
}

func TestNewStory_HooksAndExtraHooks(t *testing.T) {
	rec := testutil.NewRecorder("extra")

	def, err := dddkit.NewStory("Checkout", []string{"validate", "charge"}, methods(true), func(o *dddkit.Options) {
		o.Hooks = []story.Hook{}
		o.ExtraHooks = []story.Hook{rec}
		o.NewRunID = func() string { return "run-1" }
	})
	require.NoError(t, err)
	assert.Equal(t, []story.Hook{rec}, def.Hooks())

	err = def.InvokeAsync(context.Background(), &order{})
	assert.ErrorIs(t, err, errDeclined)
	assert.Equal(t, []string{"run-1"}, rec.RunIDs())
	assert.Equal(t, []string{"before(validate)", "after(validate)", "before(charge)", "error(charge)"}, rec.Sequence("run-1"))
}

func TestNewStory_NilClockKeepsDefault(t *testing.T) {
	def, err := dddkit.NewStory("Checkout", []string{"validate", "charge"}, methods(false), func(o *dddkit.Options) {
		o.Logger = logging.NoOpLogger{}
		o.Clock = nil
	})
	require.NoError(t, err)
	require.NoError(t, def.InvokeAsync(context.Background(), &order{}))

	stack, err := dddkit.NewStack(config.Default(), func(o *dddkit.StackOptions) {
		o.Output = &bytes.Buffer{}
		o.Clock = nil
	})
	require.NoError(t, err)

	def, err = dddkit.NewStory("Checkout", []string{"validate", "charge"}, methods(false),
		func(o *dddkit.Options) { o.Hooks = stack.Hooks() })
	require.NoError(t, err)
	assert.NoError(t, def.InvokeAsync(context.Background(), &order{}))
}

func TestNewStory_ConfigurationError(t *testing.T) {
	_, err := dddkit.NewStory("Checkout", []string{"validate", "refund"}, methods(false))
	assert.ErrorIs(t, err, story.ErrUnknownStep)

	_, err = dddkit.NewStory("Checkout", []string{"validate"}, methods(false),
		func(o *dddkit.Options) { o.ExtraHooks = []story.Hook{struct{}{}} })
	assert.ErrorIs(t, err, story.ErrInvalidHook)
}

func TestNewStack_FullStack(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	cfg := config.Default()
	cfg.Logging.Level = "debug"

	var logs bytes.Buffer
	stack, err := dddkit.NewStack(cfg, func(o *dddkit.StackOptions) {
		o.Output = &logs
		o.MeterProvider = mp
		o.TracerProvider = tp
	})
	require.NoError(t, err)
	require.Len(t, stack.Hooks(), 6)

	def, err := dddkit.NewStory("Checkout", []string{"validate", "charge"}, methods(false),
		func(o *dddkit.Options) { o.Hooks = stack.Hooks() })
	require.NoError(t, err)

	require.NoError(t, def.InvokeAsync(context.Background(), &order{}))

	assert.Equal(t, 4, strings.Count(logs.String(), "story progress"))

	summary, ok := stack.Stats.Summary("Checkout", "charge")
	require.True(t, ok)
	assert.Equal(t, int64(1), summary.Count)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Len(t, rm.ScopeMetrics[0].Metrics, 2)

	assert.Len(t, sr.Ended(), 3)
	assert.Zero(t, stack.Status.ActiveRuns())
}

func TestNewStack_DisabledComponents(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false

	stack, err := dddkit.NewStack(cfg, func(o *dddkit.StackOptions) { o.Output = &bytes.Buffer{} })
	require.NoError(t, err)

	assert.Nil(t, stack.Metrics)
	assert.Nil(t, stack.Tracing)
	assert.Len(t, stack.Hooks(), 4)

	cfg.Logging.Level = "shout"
	_, err = dddkit.NewStack(cfg)
	assert.Error(t, err)
}
