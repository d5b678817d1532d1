// Package tracing provides a story hook that opens one OpenTelemetry span per
// run and one child span per reached step, plus an opt-in OTLP provider setup.
package tracing

import (
	"context"
	"sync"

	"github.com/hupe1980/dddkit/story"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/hupe1980/dddkit/tracing"

// Attribute keys set on every span.
const (
	AttrStoryName   = attribute.Key("story.name")
	AttrRunID       = attribute.Key("story.run_id")
	AttrStep        = attribute.Key("story.step")
	AttrStepOrdinal = attribute.Key("story.step_ordinal")
	AttrStepKind    = attribute.Key("story.step_kind")
)

// Options configures a Hook.
type Options struct {
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

type runSpans struct {
	ctx   context.Context
	root  trace.Span
	steps map[int]trace.Span
	err   error
}

// Hook traces story runs. The run span is named after the story and every
// step span <story>.<step>. Spans left open because a hook aborted the run
// are ended in FinishRun.
type Hook struct {
	tracer trace.Tracer

	mu   sync.Mutex
	runs map[string]*runSpans
}

// NewHook creates a tracing hook.
func NewHook(optFns ...func(o *Options)) *Hook {
	opts := Options{TracerProvider: otel.GetTracerProvider()}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Hook{
		tracer: opts.TracerProvider.Tracer(instrumentationName),
		runs:   map[string]*runSpans{},
	}
}

// String implements fmt.Stringer.
func (h *Hook) String() string { return "TracingHook" }

// Before implements story.BeforeHook.
func (h *Hook) Before(ctx context.Context, ec *story.ExecutionContext, step *story.StepExecutionInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	run, ok := h.runs[ec.RunID]
	if !ok {
		runCtx, root := h.tracer.Start(ctx, ec.StoryName,
			trace.WithAttributes(
				AttrStoryName.String(ec.StoryName),
				AttrRunID.String(ec.RunID),
			),
		)
		run = &runSpans{ctx: runCtx, root: root, steps: map[int]trace.Span{}}
		h.runs[ec.RunID] = run
	}

	_, span := h.tracer.Start(run.ctx, ec.StoryName+"."+step.StepName,
		trace.WithAttributes(
			AttrStoryName.String(ec.StoryName),
			AttrRunID.String(ec.RunID),
			AttrStep.String(step.StepName),
			AttrStepOrdinal.Int(step.Ordinal),
			AttrStepKind.String(step.Kind.String()),
		),
	)
	run.steps[step.Ordinal] = span

	return nil
}

// After implements story.AfterHook.
func (h *Hook) After(_ context.Context, ec *story.ExecutionContext, step *story.StepExecutionInfo) error {
	if span := h.take(ec.RunID, step.Ordinal, nil); span != nil {
		span.SetStatus(codes.Ok, "")
		span.End()
	}
	return nil
}

// OnError implements story.ErrorHook.
func (h *Hook) OnError(_ context.Context, ec *story.ExecutionContext, step *story.StepExecutionInfo) error {
	if span := h.take(ec.RunID, step.Ordinal, step.Err); span != nil {
		if step.Err != nil {
			span.RecordError(step.Err)
			span.SetStatus(codes.Error, step.Err.Error())
		} else {
			span.SetStatus(codes.Error, "step failed")
		}
		span.End()
	}
	return nil
}

// FinishRun implements story.RunFinisher.
func (h *Hook) FinishRun(ec *story.ExecutionContext) {
	h.mu.Lock()
	run, ok := h.runs[ec.RunID]
	delete(h.runs, ec.RunID)
	h.mu.Unlock()

	if !ok {
		return
	}

	for _, span := range run.steps {
		span.SetStatus(codes.Error, "run aborted")
		span.End()
	}

	if run.err != nil {
		run.root.SetStatus(codes.Error, run.err.Error())
	} else if len(run.steps) > 0 {
		run.root.SetStatus(codes.Error, "run aborted")
	} else {
		run.root.SetStatus(codes.Ok, "")
	}
	run.root.End()
}

// OpenRuns returns how many runs currently hold spans.
func (h *Hook) OpenRuns() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}

func (h *Hook) take(runID string, ordinal int, err error) trace.Span {
	h.mu.Lock()
	defer h.mu.Unlock()

	run, ok := h.runs[runID]
	if !ok {
		return nil
	}
	if err != nil && run.err == nil {
		run.err = err
	}
	span := run.steps[ordinal]
	delete(run.steps, ordinal)
	return span
}
