package story

import (
	"context"
)

// Invoke runs the story synchronously against state.
//
// It refuses, with a *ConfigurationError wrapping ErrAsyncInSyncInvoke and
// before any hook or step runs, definitions that hold an async step or an
// async hook.
//
// On failure the error returned by the failing step is returned unchanged,
// after the error phase of every hook has run. A hook failure is returned
// as *HookError instead.
func (d *Definition[S]) Invoke(state S) error {
	hs := d.hooks.Load()

	if d.hasAsync || (hs != nil && hs.async) {
		return configErr(d.name, "", ErrAsyncInSyncInvoke)
	}

	_, err := d.run(context.Background(), hs, state, false)

	return err
}

// InvokeAsync runs the story against state, suspending at async steps and
// hooks. Sync and async callables are supported alike.
//
// If ctx is cancelled while the run is in flight, the current step is
// marked Error with ctx.Err(), the error phase of every hook runs, and the
// context error is returned; no further step executes.
func (d *Definition[S]) InvokeAsync(ctx context.Context, state S) error {
	_, err := d.Execute(ctx, state)
	return err
}

// Execute is InvokeAsync that also returns the run's ExecutionContext so the
// caller can inspect the step records after the run.
func (d *Definition[S]) Execute(ctx context.Context, state S) (*ExecutionContext, error) {
	return d.run(ctx, d.hooks.Load(), state, true)
}

func (d *Definition[S]) run(ctx context.Context, hs *hookSet, state S, suspendable bool) (*ExecutionContext, error) {
	ec := newExecutionContext(d.newRunID(), d.name, len(d.steps))

	defer hs.finishRun(ec)

	for i := range d.steps {
		st := &d.steps[i]

		info := ec.begin(st.StepInfo)
		info.Status = StatusRunning
		info.StartedAt = d.clock.Now()

		if err := hs.dispatch(ctx, PhaseBefore, ec, info); err != nil {
			info.EndedAt = d.clock.Now()
			info.Status = StatusError
			info.Err = err
			return ec, err
		}

		panicked, stepErr := st.call(ctx, state, suspendable)
		info.EndedAt = d.clock.Now()

		if stepErr != nil {
			info.Status = StatusError
			info.Err = stepErr

			if err := hs.dispatch(ctx, PhaseError, ec, info); err != nil {
				return ec, err
			}

			if panicked {
				panic(stepErr.(*PanicError).Value)
			}

			return ec, stepErr
		}

		info.Status = StatusSuccess

		if err := hs.dispatch(ctx, PhaseAfter, ec, info); err != nil {
			return ec, err
		}
	}

	return ec, nil
}
