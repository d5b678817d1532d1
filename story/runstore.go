package story

import "sync"

// runStore is a concurrency-safe map from run ID to per-run bookkeeping,
// shared by the builtin hooks. Records are created lazily on first access
// and dropped when the run finishes.
type runStore[T any] struct {
	mu   sync.RWMutex
	runs map[string]*T
	init func() *T
}

func newRunStore[T any](init func() *T) *runStore[T] {
	return &runStore[T]{runs: make(map[string]*T), init: init}
}

// acquire returns the record for runID, creating it if needed.
func (s *runStore[T]) acquire(runID string) *T {
	s.mu.RLock()
	rec, ok := s.runs[runID]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.runs[runID]; ok {
		return rec
	}
	rec = s.init()
	s.runs[runID] = rec
	return rec
}

// get returns the record for runID if one exists.
func (s *runStore[T]) get(runID string) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	return rec, ok
}

func (s *runStore[T]) release(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

func (s *runStore[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
