package story

import "context"

// Kind tells whether a step or hook runs to completion without yielding
// (KindSync) or may suspend on its context (KindAsync).
type Kind int

const (
	// KindSync callables never block on the invocation context.
	KindSync Kind = iota
	// KindAsync callables receive the invocation context and may suspend on it.
	KindAsync
)

// String returns "sync" or "async".
func (k Kind) String() string {
	if k == KindAsync {
		return "async"
	}
	return "sync"
}

// Method is a callable exposed by a story, classified once when it is built
// with Sync or Async.
type Method[S any] struct {
	kind  Kind
	sync  func(S) error
	async func(context.Context, S) error
}

// Sync wraps a step that runs to completion against the state.
func Sync[S any](fn func(S) error) Method[S] {
	return Method[S]{kind: KindSync, sync: fn}
}

// Async wraps a step that may suspend on ctx. Such steps can only be run
// through InvokeAsync or Execute.
func Async[S any](fn func(context.Context, S) error) Method[S] {
	return Method[S]{kind: KindAsync, async: fn}
}

// Kind reports how the method was classified.
func (m Method[S]) Kind() Kind { return m.kind }

func (m Method[S]) valid() bool {
	if m.kind == KindAsync {
		return m.async != nil
	}
	return m.sync != nil
}

// Methods maps step identifiers to the callables a story exposes. A story
// may expose more methods than it lists as steps.
type Methods[S any] map[string]Method[S]

// StepInfo describes one frozen step of a definition.
type StepInfo struct {
	Name    string
	Ordinal int
	Kind    Kind
}

type step[S any] struct {
	StepInfo
	method Method[S]
}

// call runs the step against state. In suspension-capable mode a context
// that is already done cancels the step before it starts, and an async step
// that returns while its context is done is reported as cancelled.
//
// panicked is true only when the callable itself panicked; err is then the
// recovered *PanicError.
func (s *step[S]) call(ctx context.Context, state S, suspendable bool) (panicked bool, err error) {
	if suspendable {
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}

	defer func() {
		if r := recover(); r != nil {
			panicked, err = true, newPanicError(r)
		}
	}()

	if s.Kind == KindAsync {
		if err := s.method.async(ctx, state); err != nil {
			return false, err
		}
		return false, ctx.Err()
	}

	return false, s.method.sync(state)
}
