package story

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Sentinel reasons carried by ConfigurationError. Match them with errors.Is.
var (
	ErrInvalidStory      = errors.New("invalid story name")
	ErrNoSteps           = errors.New("story declares no steps")
	ErrUnknownStep       = errors.New("step is not a method of the story")
	ErrDuplicateStep     = errors.New("step declared more than once")
	ErrInvalidStepName   = errors.New("invalid step name")
	ErrInvalidStep       = errors.New("step method has no callable")
	ErrInvalidHook       = errors.New("hook implements no phase")
	ErrAsyncInSyncInvoke = errors.New("async step or hook requires InvokeAsync")
)

// ConfigurationError reports an invalid story declaration or an invocation
// mode mismatch. It is only ever returned by Define, InjectHooks or at the
// start of an invocation, never after a step has run.
type ConfigurationError struct {
	Story string
	Step  string
	Err   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("story %q: step %q: %v", e.Story, e.Step, e.Err)
	}
	return fmt.Sprintf("story %q: %v", e.Story, e.Err)
}

// Unwrap returns the sentinel reason.
func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(story, step string, err error) *ConfigurationError {
	return &ConfigurationError{Story: story, Step: step, Err: err}
}

// HookError wraps an error returned by a hook callback. It replaces whatever
// step error was in flight when the hook failed.
type HookError struct {
	Hook  string
	Phase Phase
	Step  string
	Err   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s failed in %s phase of step %q: %v", e.Hook, e.Phase, e.Step, e.Err)
}

// Unwrap returns the hook's own error.
func (e *HookError) Unwrap() error { return e.Err }

// PanicError is what hooks observe as StepExecutionInfo.Err when a step
// panics. The invoker re-panics with Value once the error phase has run.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("step panicked: %v", e.Value)
}

// StackTrace returns the stack captured where the step panicked.
func (e *PanicError) StackTrace() []byte { return e.Stack }

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}
