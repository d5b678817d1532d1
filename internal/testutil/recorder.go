package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/dddkit/story"
)

// Call is one hook callback observed by a Recorder.
type Call struct {
	Hook   string
	Phase  story.Phase
	RunID  string
	Step   string
	Status story.StepStatus
}

// String renders the call as phase(step), e.g. "before(validate)".
func (c Call) String() string { return fmt.Sprintf("%s(%s)", c.Phase, c.Step) }

// Recorder is a hook that records every callback it receives. It is safe
// for concurrent runs and can be told to fail on a given phase and step.
//
// Example:
//
//	rec := testutil.NewRecorder("rec").FailOn(story.PhaseAfter, "charge", errBoom)
type Recorder struct {
	name string

	mu    sync.Mutex
	calls []Call
	fail  map[string]error
}

// NewRecorder creates a recorder identified by name.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name, fail: map[string]error{}}
}

// FailOn makes the recorder return err when it observes phase for step (chainable).
func (r *Recorder) FailOn(phase story.Phase, step string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[string(phase)+"/"+step] = err
	return r
}

// String implements fmt.Stringer.
func (r *Recorder) String() string { return r.name }

// Before implements story.BeforeHook.
func (r *Recorder) Before(_ context.Context, ec *story.ExecutionContext, s *story.StepExecutionInfo) error {
	return r.record(story.PhaseBefore, ec, s)
}

// After implements story.AfterHook.
func (r *Recorder) After(_ context.Context, ec *story.ExecutionContext, s *story.StepExecutionInfo) error {
	return r.record(story.PhaseAfter, ec, s)
}

// OnError implements story.ErrorHook.
func (r *Recorder) OnError(_ context.Context, ec *story.ExecutionContext, s *story.StepExecutionInfo) error {
	return r.record(story.PhaseError, ec, s)
}

func (r *Recorder) record(phase story.Phase, ec *story.ExecutionContext, s *story.StepExecutionInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Hook: r.name, Phase: phase, RunID: ec.RunID, Step: s.StepName, Status: s.Status})
	return r.fail[string(phase)+"/"+s.StepName]
}

// Calls returns every call recorded so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// RunIDs returns the distinct run IDs observed, in first-seen order.
func (r *Recorder) RunIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, c := range r.Calls() {
		if !seen[c.RunID] {
			seen[c.RunID] = true
			ids = append(ids, c.RunID)
		}
	}
	return ids
}

// Sequence returns the calls of one run rendered as phase(step). An empty
// runID selects every call.
func (r *Recorder) Sequence(runID string) []string {
	var out []string
	for _, c := range r.Calls() {
		if runID == "" || c.RunID == runID {
			out = append(out, c.String())
		}
	}
	return out
}

// Reset forgets every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Journal is a concurrency-safe append-only log that steps and hooks of a
// test story write to, to assert on interleaving.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// Add appends an entry.
func (j *Journal) Add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of all entries.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}
