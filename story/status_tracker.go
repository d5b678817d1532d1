package story

import (
	"context"
	"sort"
	"sync"
)

// StepState is one entry of a StatusTracker snapshot.
type StepState struct {
	Name    string
	Ordinal int
	Status  StepStatus
}

type statusRecord struct {
	mu    sync.Mutex
	steps map[int]StepState
}

// StatusTracker keeps, per run, the current status of every step reached so
// far. Other hooks (LoggingHook) read it to render progress. A single
// tracker may be shared by any number of concurrent runs.
type StatusTracker struct {
	runs *runStore[statusRecord]
}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{runs: newRunStore(func() *statusRecord {
		return &statusRecord{steps: map[int]StepState{}}
	})}
}

// String implements fmt.Stringer.
func (t *StatusTracker) String() string { return "StatusTracker" }

// Before implements BeforeHook.
func (t *StatusTracker) Before(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	t.record(ec, step)
	return nil
}

// After implements AfterHook.
func (t *StatusTracker) After(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	t.record(ec, step)
	return nil
}

// OnError implements ErrorHook.
func (t *StatusTracker) OnError(_ context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	t.record(ec, step)
	return nil
}

// FinishRun implements RunFinisher.
func (t *StatusTracker) FinishRun(ec *ExecutionContext) { t.runs.release(ec.RunID) }

func (t *StatusTracker) record(ec *ExecutionContext, step *StepExecutionInfo) {
	rec := t.runs.acquire(ec.RunID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.steps[step.Ordinal] = StepState{Name: step.StepName, Ordinal: step.Ordinal, Status: step.Status}
}

// Snapshot returns the reached steps of the run ordered by ordinal.
// Unreached steps are absent. The result is nil for unknown or finished runs.
func (t *StatusTracker) Snapshot(runID string) []StepState {
	rec, ok := t.runs.get(runID)
	if !ok {
		return nil
	}

	rec.mu.Lock()
	out := make([]StepState, 0, len(rec.steps))
	for _, s := range rec.steps {
		out = append(out, s)
	}
	rec.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })

	return out
}

// Status returns the status of the named step within the run. The boolean is
// false when the run never reached the step.
func (t *StatusTracker) Status(runID, stepName string) (StepStatus, bool) {
	for _, s := range t.Snapshot(runID) {
		if s.Name == stepName {
			return s.Status, true
		}
	}
	return StatusPending, false
}

// ActiveRuns returns how many runs currently hold bookkeeping.
func (t *StatusTracker) ActiveRuns() int { return t.runs.len() }
