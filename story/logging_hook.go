package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/dddkit/logging"
)

// Progress markers used by LoggingHook.Render.
const (
	MarkerSuccess = "✓"
	MarkerError   = "✗"
	MarkerRunning = "▶"
)

// LoggingHookOptions configures a LoggingHook.
type LoggingHookOptions struct {
	// Logger receives the progress messages. Defaults to slog.Default().
	Logger logging.Logger
}

// LoggingHook renders the progress of a run on every transition: finished
// steps with their marker and elapsed time, the current step as running.
// Unreached steps are omitted.
type LoggingHook struct {
	logger logging.Logger
	status *StatusTracker
	timing *ExecutionTimeTracker
}

// NewLoggingHook creates a LoggingHook reading from the given trackers. The
// trackers must be registered before the LoggingHook in the same hook set.
// Either may be nil, in which case the run's own step records are used.
func NewLoggingHook(status *StatusTracker, timing *ExecutionTimeTracker, optFns ...func(o *LoggingHookOptions)) *LoggingHook {
	opts := LoggingHookOptions{Logger: logging.NewDefaultSlogLogger()}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &LoggingHook{logger: opts.Logger, status: status, timing: timing}
}

// String implements fmt.Stringer.
func (h *LoggingHook) String() string { return "LoggingHook" }

// Before implements BeforeHook.
func (h *LoggingHook) Before(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	h.logger.Debug("story progress", h.args(ec, step, PhaseBefore)...)
	return nil
}

// After implements AfterHook.
func (h *LoggingHook) After(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	h.logger.Debug("story progress", h.args(ec, step, PhaseAfter)...)
	return nil
}

// stackLogger is implemented by loggers that can attach a stack trace.
type stackLogger interface {
	ErrorWithStack(err error, msg string, args ...any)
}

// OnError implements ErrorHook. A panicking step is logged with its stack
// when the logger supports it.
func (h *LoggingHook) OnError(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	args := h.args(ec, step, PhaseError)

	var p *PanicError
	if sl, ok := h.logger.(stackLogger); ok && errors.As(step.Err, &p) {
		sl.ErrorWithStack(p, "story step panicked", args...)
		return nil
	}

	if step.Err != nil {
		args = append(args, "error", step.Err.Error())
	}
	h.logger.Error("story step failed", args...)
	return nil
}

func (h *LoggingHook) args(ec *ExecutionContext, step *StepExecutionInfo, phase Phase) []any {
	return []any{
		"story", ec.StoryName,
		"run_id", ec.RunID,
		"phase", string(phase),
		"step", step.StepName,
		"progress", h.Render(ec),
	}
}

// Render returns the progress of the run, one step per line:
//
//	Checkout:
//	  ✓ validate (1.2ms)
//	  ▶ charge
func (h *LoggingHook) Render(ec *ExecutionContext) string {
	var b strings.Builder
	b.WriteString(ec.StoryName)
	b.WriteString(":")

	for _, s := range h.snapshot(ec) {
		b.WriteString("\n  ")
		switch s.Status {
		case StatusSuccess:
			fmt.Fprintf(&b, "%s %s (%s)", MarkerSuccess, s.Name, h.elapsed(ec, s.Name))
		case StatusError:
			fmt.Fprintf(&b, "%s %s (%s)", MarkerError, s.Name, h.elapsed(ec, s.Name))
		default:
			fmt.Fprintf(&b, "%s %s", MarkerRunning, s.Name)
		}
	}

	return b.String()
}

func (h *LoggingHook) snapshot(ec *ExecutionContext) []StepState {
	if h.status != nil {
		return h.status.Snapshot(ec.RunID)
	}

	steps := ec.Steps()
	out := make([]StepState, len(steps))
	for i, s := range steps {
		out[i] = StepState{Name: s.StepName, Ordinal: s.Ordinal, Status: s.Status}
	}
	return out
}

func (h *LoggingHook) elapsed(ec *ExecutionContext, stepName string) time.Duration {
	if h.timing != nil {
		if d, ok := h.timing.Elapsed(ec.RunID, stepName); ok {
			return d
		}
	}
	if s, ok := ec.Step(stepName); ok {
		return s.Elapsed()
	}
	return 0
}
