// Package stats aggregates in-process latency summaries of story runs.
package stats

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/hupe1980/dddkit/story"
)

const (
	lowestTrackable  = 1                         // 1µs
	highestTrackable = int64(time.Hour / time.Microsecond)
	significantFigs  = 3
)

// DurationMetrics summarizes a latency distribution.
type DurationMetrics struct {
	Min time.Duration
	Max time.Duration
	Avg time.Duration
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// Summary holds the aggregated latencies of one step of a story, or of the
// whole story when Step is empty.
type Summary struct {
	Story        string
	Step         string
	Count        int64
	SuccessCount int64
	FailureCount int64
	Duration     DurationMetrics
}

// String renders the summary as a single line.
func (s Summary) String() string {
	name := s.Story
	if s.Step != "" {
		name += "." + s.Step
	}
	return fmt.Sprintf("%s count=%d ok=%d failed=%d min=%s avg=%s p50=%s p90=%s p99=%s max=%s",
		name, s.Count, s.SuccessCount, s.FailureCount,
		s.Duration.Min, s.Duration.Avg, s.Duration.P50, s.Duration.P90, s.Duration.P99, s.Duration.Max)
}

type key struct {
	story string
	step  string
}

type series struct {
	hist    *hdrhistogram.Histogram
	success int64
	failure int64
}

// Recorder is a story hook feeding HDR histograms with the elapsed time of
// every finished step and of every finished run. It is safe for concurrent
// runs.
type Recorder struct {
	mu     sync.Mutex
	series map[key]*series
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{series: map[key]*series{}}
}

// String implements fmt.Stringer.
func (r *Recorder) String() string { return "StatsRecorder" }

// After implements story.AfterHook.
func (r *Recorder) After(_ context.Context, ec *story.ExecutionContext, step *story.StepExecutionInfo) error {
	r.observe(ec, step)
	return nil
}

// OnError implements story.ErrorHook.
func (r *Recorder) OnError(_ context.Context, ec *story.ExecutionContext, step *story.StepExecutionInfo) error {
	r.observe(ec, step)
	return nil
}

func (r *Recorder) observe(ec *story.ExecutionContext, step *story.StepExecutionInfo) {
	ok := step.Status == story.StatusSuccess

	r.mu.Lock()
	defer r.mu.Unlock()

	r.add(key{story: ec.StoryName, step: step.StepName}, step.Elapsed(), ok)

	if ec.Last(step) || !ok {
		r.add(key{story: ec.StoryName}, ec.Elapsed(), ok)
	}
}

func (r *Recorder) add(k key, d time.Duration, ok bool) {
	s, found := r.series[k]
	if !found {
		s = &series{hist: hdrhistogram.New(lowestTrackable, highestTrackable, significantFigs)}
		r.series[k] = s
	}

	v := d.Microseconds()
	if v < lowestTrackable {
		v = lowestTrackable
	}
	if v > highestTrackable {
		v = highestTrackable
	}
	// values are clamped to the trackable range, so RecordValue cannot fail
	_ = s.hist.RecordValue(v)

	if ok {
		s.success++
	} else {
		s.failure++
	}
}

// Summary returns the summary of a story step, or of the whole story when
// step is empty. The boolean is false when nothing was recorded.
func (r *Recorder) Summary(storyName, step string) (Summary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.series[key{story: storyName, step: step}]
	if !ok {
		return Summary{}, false
	}
	return summarize(key{story: storyName, step: step}, s), true
}

// Summaries returns every summary ordered by story, then step. The story
// level summary precedes its steps.
func (r *Recorder) Summaries() []Summary {
	r.mu.Lock()
	out := make([]Summary, 0, len(r.series))
	for k, s := range r.series {
		out = append(out, summarize(k, s))
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Story != out[j].Story {
			return out[i].Story < out[j].Story
		}
		return out[i].Step < out[j].Step
	})

	return out
}

// Reset drops every recorded value.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series = map[key]*series{}
}

func summarize(k key, s *series) Summary {
	h := s.hist
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }

	return Summary{
		Story:        k.story,
		Step:         k.step,
		Count:        h.TotalCount(),
		SuccessCount: s.success,
		FailureCount: s.failure,
		Duration: DurationMetrics{
			Min: us(h.Min()),
			Max: us(h.Max()),
			Avg: time.Duration(h.Mean() * float64(time.Microsecond)),
			P50: us(h.ValueAtQuantile(50)),
			P90: us(h.ValueAtQuantile(90)),
			P95: us(h.ValueAtQuantile(95)),
			P99: us(h.ValueAtQuantile(99)),
		},
	}
}
