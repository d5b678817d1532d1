// Package story implements the story execution engine: an ordered sequence
// of sync or async steps mutating a caller-owned state, observed by a
// before/after/error hook protocol.
//
// # Defining a story
//
// A story is declared once, usually at package initialisation, from an
// explicit ordered list of step identifiers and the methods they resolve to:
//
//	var checkout = story.MustDefine("Checkout",
//	    []string{"validate", "charge", "confirm"},
//	    story.Methods[*Order]{
//	        "validate": story.Sync(validate),
//	        "charge":   story.Async(charge),
//	        "confirm":  story.Sync(confirm),
//	    })
//
// Steps are classified Sync or Async when the method value is built; the
// invoker never inspects callables at call time. Define rejects unknown and
// duplicate identifiers as well as empty step lists with a
// *ConfigurationError.
//
// # Running a story
//
// Invoke runs the story synchronously and refuses definitions holding an
// async step or hook. InvokeAsync and Execute accept a context, run sync and
// async callables alike, and route cancellation through the error phase.
//
// For every step the invoker:
//
//  1. Appends a StepExecutionInfo (Pending) and marks it Running
//  2. Runs the before phase of every hook, in registration order
//  3. Calls the step against the state
//  4. Runs the after phase (success) or the error phase (failure)
//
// The first failing step stops the run; later steps get no record. The
// step's own error reaches the caller unchanged so it can be matched with
// errors.Is and errors.As.
//
// # Hooks
//
// A hook implements any subset of BeforeHook, AfterHook and ErrorHook.
// InjectHooks attaches a hook set to a definition; a nil set selects the
// builtins (StatusTracker, ExecutionTimeTracker, LoggingHook). Hook state is
// shared by concurrent runs, so the builtins key everything by run ID and
// drop it in FinishRun.
//
// A failing hook aborts the run and is returned as *HookError. When the
// error phase fails, the HookError replaces the step's error; callers then
// no longer see the original step failure.
package story
