package story

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// StepTiming holds the monotonic timestamps an ExecutionTimeTracker took for
// one step.
type StepTiming struct {
	Start time.Time
	End   time.Time // zero while the step is running
}

// Elapsed returns End-Start, or zero while the step is running.
func (t StepTiming) Elapsed() time.Duration {
	if t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.Start)
}

type timingRecord struct {
	mu    sync.Mutex
	steps map[string]StepTiming
}

// ExecutionTimeTrackerOptions configures an ExecutionTimeTracker.
type ExecutionTimeTrackerOptions struct {
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// ExecutionTimeTracker records per-run start and end times of every reached
// step and derives their elapsed durations. It is safe for concurrent runs.
type ExecutionTimeTracker struct {
	clock clockwork.Clock
	runs  *runStore[timingRecord]
}

// NewExecutionTimeTracker creates a tracker.
func NewExecutionTimeTracker(optFns ...func(o *ExecutionTimeTrackerOptions)) *ExecutionTimeTracker {
	opts := ExecutionTimeTrackerOptions{Clock: clockwork.NewRealClock()}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &ExecutionTimeTracker{
		clock: opts.Clock,
		runs: newRunStore(func() *timingRecord {
			return &timingRecord{steps: map[string]StepTiming{}}
		}),
	}
}

// String implements fmt.Stringer.
func (t *ExecutionTimeTracker) String() string { return "ExecutionTimeTracker" }

// Before implements BeforeHook.
func (t *ExecutionTimeTracker) Before(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	rec := t.runs.acquire(ec.RunID)
	rec.mu.Lock()
	rec.steps[step.StepName] = StepTiming{Start: t.clock.Now()}
	rec.mu.Unlock()
	return nil
}

// After implements AfterHook.
func (t *ExecutionTimeTracker) After(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	t.stop(ec, step)
	return nil
}

// OnError implements ErrorHook.
func (t *ExecutionTimeTracker) OnError(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	t.stop(ec, step)
	return nil
}

// FinishRun implements RunFinisher.
func (t *ExecutionTimeTracker) FinishRun(ec *ExecutionContext) { t.runs.release(ec.RunID) }

func (t *ExecutionTimeTracker) stop(ec *ExecutionContext, step *StepExecutionInfo) {
	now := t.clock.Now()
	rec := t.runs.acquire(ec.RunID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	timing, ok := rec.steps[step.StepName]
	if !ok {
		timing.Start = now
	}
	timing.End = now
	rec.steps[step.StepName] = timing
}

// Timing returns the recorded timestamps of a step within a run.
func (t *ExecutionTimeTracker) Timing(runID, stepName string) (StepTiming, bool) {
	rec, ok := t.runs.get(runID)
	if !ok {
		return StepTiming{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	timing, ok := rec.steps[stepName]
	return timing, ok
}

// Elapsed returns the duration of a finished step. The boolean is false when
// the step was not reached or is still running.
func (t *ExecutionTimeTracker) Elapsed(runID, stepName string) (time.Duration, bool) {
	timing, ok := t.Timing(runID, stepName)
	if !ok || timing.End.IsZero() {
		return 0, false
	}
	return timing.Elapsed(), true
}
