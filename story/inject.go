package story

// DefaultHooks returns a freshly constructed builtin hook set:
// StatusTracker, ExecutionTimeTracker and a LoggingHook reading both.
func DefaultHooks(optFns ...func(o *LoggingHookOptions)) []Hook {
	status := NewStatusTracker()
	timing := NewExecutionTimeTracker()

	return []Hook{status, timing, NewLoggingHook(status, timing, optFns...)}
}

// InjectHooks attaches hooks to def, replacing any previously injected set.
// A nil slice attaches DefaultHooks(); an empty, non-nil slice detaches
// every hook.
func InjectHooks[S any](def *Definition[S], hooks []Hook) error {
	if hooks == nil {
		hooks = DefaultHooks()
	}
	return def.SetHooks(hooks...)
}
