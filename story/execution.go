package story

import "time"

// StepStatus is the lifecycle state of one step within one run.
type StepStatus int

const (
	// StatusPending is the state a StepExecutionInfo is created in.
	StatusPending StepStatus = iota
	// StatusRunning marks a step whose before phase has started.
	StatusRunning
	// StatusSuccess is terminal: the step returned without error.
	StatusSuccess
	// StatusError is terminal: the step (or its before phase) failed.
	StatusError
)

// String returns the lowercase status name used in logs and metric labels.
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is Success or Error.
func (s StepStatus) Terminal() bool { return s == StatusSuccess || s == StatusError }

// StepExecutionInfo records one step of one run. The invoker is its only
// writer; hooks receive it read-only.
type StepExecutionInfo struct {
	StepName  string
	Ordinal   int
	Kind      Kind
	Status    StepStatus
	StartedAt time.Time
	EndedAt   time.Time // zero until the step is terminal
	Err       error
}

// Elapsed returns the time between StartedAt and EndedAt, or zero while the
// step has not finished.
func (i *StepExecutionInfo) Elapsed() time.Duration {
	if i.EndedAt.IsZero() {
		return 0
	}
	return i.EndedAt.Sub(i.StartedAt)
}

// ExecutionContext is the per-run record handed to every hook. It is owned
// by a single invocation and must not be mutated by hooks.
type ExecutionContext struct {
	// RunID uniquely identifies the invocation.
	RunID string
	// StoryName is the definition's name.
	StoryName string
	// StepCount is the number of declared steps, reached or not.
	StepCount int

	steps []*StepExecutionInfo
}

func newExecutionContext(runID, story string, stepCount int) *ExecutionContext {
	return &ExecutionContext{
		RunID:     runID,
		StoryName: story,
		StepCount: stepCount,
		steps:     make([]*StepExecutionInfo, 0, stepCount),
	}
}

// Steps returns the records of the steps reached so far, in execution order.
func (ec *ExecutionContext) Steps() []*StepExecutionInfo {
	out := make([]*StepExecutionInfo, len(ec.steps))
	copy(out, ec.steps)
	return out
}

// Step returns the record of the named step if the run reached it.
func (ec *ExecutionContext) Step(name string) (*StepExecutionInfo, bool) {
	for _, s := range ec.steps {
		if s.StepName == name {
			return s, true
		}
	}
	return nil, false
}

// Last reports whether info is the final declared step of the story.
func (ec *ExecutionContext) Last(info *StepExecutionInfo) bool {
	return info.Ordinal == ec.StepCount-1
}

// Elapsed sums the elapsed time of every finished step.
func (ec *ExecutionContext) Elapsed() time.Duration {
	var total time.Duration
	for _, s := range ec.steps {
		total += s.Elapsed()
	}
	return total
}

func (ec *ExecutionContext) begin(info StepInfo) *StepExecutionInfo {
	rec := &StepExecutionInfo{
		StepName: info.Name,
		Ordinal:  info.Ordinal,
		Kind:     info.Kind,
		Status:   StatusPending,
	}
	ec.steps = append(ec.steps, rec)
	return rec
}
