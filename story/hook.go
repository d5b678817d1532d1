package story

import (
	"context"
	"fmt"
)

// Phase names the lifecycle point at which a hook callback runs.
//
// Every reached step goes through exactly one before phase followed by
// exactly one after phase (the step succeeded) or error phase (it failed),
// unless a hook itself fails and aborts the run.
type Phase string

const (
	// PhaseBefore runs after the step is marked Running and before it is called.
	PhaseBefore Phase = "before"

	// PhaseAfter runs once the step returned without error.
	PhaseAfter Phase = "after"

	// PhaseError runs once the step returned an error, panicked or was cancelled.
	PhaseError Phase = "error"
)

// Hook is a cross-cutting observer of step transitions.
//
// A hook is any value implementing at least one of BeforeHook, AfterHook or
// ErrorHook; phases it does not implement are no-ops. Hooks may be shared by
// many concurrent runs of the same definition, so any bookkeeping they keep
// must be keyed by ExecutionContext.RunID and guarded for concurrent access.
//
// Hooks are synchronous by default. A hook whose callbacks may block on the
// invocation context declares itself asynchronous by implementing KindedHook;
// definitions holding such a hook can only be run with InvokeAsync or Execute.
type Hook any

// BeforeHook observes a step right before it is called.
type BeforeHook interface {
	Before(ctx context.Context, ec *ExecutionContext, step *StepExecutionInfo) error
}

// AfterHook observes a step that completed successfully.
type AfterHook interface {
	After(ctx context.Context, ec *ExecutionContext, step *StepExecutionInfo) error
}

// ErrorHook observes a step that failed. step.Err holds the step's error.
type ErrorHook interface {
	OnError(ctx context.Context, ec *ExecutionContext, step *StepExecutionInfo) error
}

// KindedHook lets a hook declare whether it is synchronous or asynchronous.
type KindedHook interface {
	Kind() Kind
}

// RunFinisher is implemented by hooks that hold per-run bookkeeping.
// FinishRun is called once after a run terminates, whatever its outcome,
// after every phase callback of that run has returned.
type RunFinisher interface {
	FinishRun(ec *ExecutionContext)
}

// HookFunc is the signature shared by all phase callbacks.
type HookFunc func(ctx context.Context, ec *ExecutionContext, step *StepExecutionInfo) error

// HookFuncs adapts plain functions to the Hook protocol. Nil fields are
// no-ops.
//
// Example:
//
//	audit := &story.HookFuncs{
//	    Name: "audit",
//	    AfterFunc: func(ctx context.Context, ec *story.ExecutionContext, s *story.StepExecutionInfo) error {
//	        log.Printf("%s/%s done in %s", ec.StoryName, s.StepName, s.Elapsed())
//	        return nil
//	    },
//	}
type HookFuncs struct {
	Name       string
	Async      bool
	BeforeFunc HookFunc
	AfterFunc  HookFunc
	ErrorFunc  HookFunc
}

// Kind implements KindedHook.
func (h *HookFuncs) Kind() Kind {
	if h.Async {
		return KindAsync
	}
	return KindSync
}

// Before implements BeforeHook.
func (h *HookFuncs) Before(ctx context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	if h.BeforeFunc == nil {
		return nil
	}
	return h.BeforeFunc(ctx, ec, step)
}

// After implements AfterHook.
func (h *HookFuncs) After(ctx context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	if h.AfterFunc == nil {
		return nil
	}
	return h.AfterFunc(ctx, ec, step)
}

// OnError implements ErrorHook.
func (h *HookFuncs) OnError(ctx context.Context, ec *ExecutionContext, step *StepExecutionInfo) error {
	if h.ErrorFunc == nil {
		return nil
	}
	return h.ErrorFunc(ctx, ec, step)
}

func (h *HookFuncs) String() string {
	if h.Name != "" {
		return h.Name
	}
	return "HookFuncs"
}

// hookEntry is a hook resolved once at injection time: its name, its kind
// and the phase callbacks it implements.
type hookEntry struct {
	hook     Hook
	name     string
	kind     Kind
	before   HookFunc
	after    HookFunc
	onError  HookFunc
	finisher RunFinisher
}

// hookSet is the immutable, ordered set of hooks attached to a definition.
// It is swapped as a whole by InjectHooks, so a run keeps the set it
// started with.
type hookSet struct {
	entries []hookEntry
	async   bool
}

func newHookSet(story string, hooks []Hook) (*hookSet, error) {
	hs := &hookSet{entries: make([]hookEntry, 0, len(hooks))}

	for i, h := range hooks {
		entry := hookEntry{hook: h, name: hookName(h)}

		if b, ok := h.(BeforeHook); ok {
			entry.before = b.Before
		}
		if a, ok := h.(AfterHook); ok {
			entry.after = a.After
		}
		if e, ok := h.(ErrorHook); ok {
			entry.onError = e.OnError
		}
		if f, ok := h.(RunFinisher); ok {
			entry.finisher = f
		}
		if k, ok := h.(KindedHook); ok {
			entry.kind = k.Kind()
		}

		if entry.before == nil && entry.after == nil && entry.onError == nil {
			return nil, configErr(story, "", fmt.Errorf("%w: hook #%d (%s)", ErrInvalidHook, i, entry.name))
		}

		if entry.kind == KindAsync {
			hs.async = true
		}

		hs.entries = append(hs.entries, entry)
	}

	return hs, nil
}

func hookName(h Hook) string {
	if s, ok := h.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", h)
}

// dispatch runs the callbacks of one phase in registration order. The
// first failing callback aborts the phase; its error is wrapped in a
// HookError.
func (hs *hookSet) dispatch(ctx context.Context, phase Phase, ec *ExecutionContext, info *StepExecutionInfo) error {
	if hs == nil {
		return nil
	}

	for i := range hs.entries {
		entry := &hs.entries[i]

		var fn HookFunc
		switch phase {
		case PhaseBefore:
			fn = entry.before
		case PhaseAfter:
			fn = entry.after
		case PhaseError:
			fn = entry.onError
		}

		if fn == nil {
			continue
		}

		if err := fn(ctx, ec, info); err != nil {
			return &HookError{Hook: entry.name, Phase: phase, Step: info.StepName, Err: err}
		}
	}

	return nil
}

func (hs *hookSet) finishRun(ec *ExecutionContext) {
	if hs == nil {
		return
	}
	for i := range hs.entries {
		if f := hs.entries[i].finisher; f != nil {
			f.FinishRun(ec)
		}
	}
}

func (hs *hookSet) hooks() []Hook {
	if hs == nil {
		return nil
	}
	out := make([]Hook, len(hs.entries))
	for i, e := range hs.entries {
		out[i] = e.hook
	}
	return out
}
