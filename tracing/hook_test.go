package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/dddkit/story"
	"github.com/hupe1980/dddkit/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type order struct{}

var errDeclined = errors.New("card declined")

func newHook(t *testing.T) (*tracing.Hook, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return tracing.NewHook(func(o *tracing.Options) { o.TracerProvider = tp }), sr
}

func byName(spans []sdktrace.ReadOnlySpan) map[string]sdktrace.ReadOnlySpan {
	out := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		out[s.Name()] = s
	}
	return out
}

func attr(s sdktrace.ReadOnlySpan, key attribute.Key) attribute.Value {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestHook_SpanPerStep(t *testing.T) {
	h, sr := newHook(t)

	def := story.MustDefine("Checkout", []string{"validate", "charge"}, story.Methods[*order]{
		"validate": story.Sync(func(*order) error { return nil }),
		"charge":   story.Async(func(context.Context, *order) error { return nil }),
	})
	require.NoError(t, story.InjectHooks(def, []story.Hook{h}))

	ec, err := def.Execute(context.Background(), &order{})
	require.NoError(t, err)

	spans := byName(sr.Ended())
	require.Len(t, spans, 3)

	root := spans["Checkout"]
	require.NotNil(t, root)
	assert.Equal(t, codes.Ok, root.Status().Code)
	assert.Equal(t, ec.RunID, attr(root, tracing.AttrRunID).AsString())

	charge := spans["Checkout.charge"]
	require.NotNil(t, charge)
	assert.Equal(t, root.SpanContext().SpanID(), charge.Parent().SpanID())
	assert.Equal(t, "charge", attr(charge, tracing.AttrStep).AsString())
	assert.Equal(t, int64(1), attr(charge, tracing.AttrStepOrdinal).AsInt64())
	assert.Equal(t, "async", attr(charge, tracing.AttrStepKind).AsString())
	assert.Equal(t, codes.Ok, charge.Status().Code)

	assert.Zero(t, h.OpenRuns())
}

func TestHook_RecordsStepError(t *testing.T) {
	h, sr := newHook(t)

	def := story.MustDefine("Checkout", []string{"validate", "charge", "confirm"}, story.Methods[*order]{
		"validate": story.Sync(func(*order) error { return nil }),
		"charge":   story.Sync(func(*order) error { return errDeclined }),
		"confirm":  story.Sync(func(*order) error { return nil }),
	})
	require.NoError(t, story.InjectHooks(def, []story.Hook{h}))

	require.ErrorIs(t, def.Invoke(&order{}), errDeclined)

	spans := byName(sr.Ended())
	require.Len(t, spans, 3)
	assert.NotContains(t, spans, "Checkout.confirm")

	charge := spans["Checkout.charge"]
	assert.Equal(t, codes.Error, charge.Status().Code)
	assert.Equal(t, errDeclined.Error(), charge.Status().Description)
	require.NotEmpty(t, charge.Events())
	assert.Equal(t, "exception", charge.Events()[0].Name)

	assert.Equal(t, codes.Error, spans["Checkout"].Status().Code)
}

func TestHook_EndsDanglingSpansWhenHookAborts(t *testing.T) {
	h, sr := newHook(t)

	def := story.MustDefine("Checkout", []string{"validate"}, story.Methods[*order]{
		"validate": story.Sync(func(*order) error { return nil }),
	})
	gate := &story.HookFuncs{
		BeforeFunc: func(context.Context, *story.ExecutionContext, *story.StepExecutionInfo) error {
			return errors.New("gate closed")
		},
	}
	require.NoError(t, story.InjectHooks(def, []story.Hook{h, gate}))

	var hookErr *story.HookError
	require.ErrorAs(t, def.Invoke(&order{}), &hookErr)

	spans := byName(sr.Ended())
	require.Len(t, spans, 2)
	assert.Equal(t, "run aborted", spans["Checkout.validate"].Status().Description)
	assert.Equal(t, codes.Error, spans["Checkout"].Status().Code)
	assert.Zero(t, h.OpenRuns())
}

func TestSetup_NoopWhenDisabled(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), tracing.Config{Endpoint: "http://192.0.2.1:4318"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	shutdown, err = tracing.Setup(context.Background(), tracing.Config{Enabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
