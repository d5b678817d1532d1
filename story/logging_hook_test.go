package story_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/dddkit/story"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	args  map[string]any
}

// captureLogger implements logging.Logger.
type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := map[string]any{}
	for i := 0; i+1 < len(args); i += 2 {
		m[args[i].(string)] = args[i+1]
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: m})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func newTimedCheckout(t *testing.T, fc clockwork.Clock, advance func(time.Duration), failAt string) *story.Definition[*cart] {
	t.Helper()

	step := func(name string, d time.Duration) story.Method[*cart] {
		return story.Sync(func(*cart) error {
			advance(d)
			if name == failAt {
				return errDeclined
			}
			return nil
		})
	}

	def, err := story.Define("Checkout", []string{"validate", "charge", "confirm"}, story.Methods[*cart]{
		"validate": step("validate", 12*time.Millisecond),
		"charge":   step("charge", 30*time.Millisecond),
		"confirm":  step("confirm", time.Millisecond),
	}, func(o *story.Options) { o.Clock = fc })
	require.NoError(t, err)

	return def
}

func TestLoggingHook_RendersProgress(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	def := newTimedCheckout(t, fc, fc.Advance, "")

	logger := &captureLogger{}
	status := story.NewStatusTracker()
	timing := story.NewExecutionTimeTracker(func(o *story.ExecutionTimeTrackerOptions) { o.Clock = fc })
	hook := story.NewLoggingHook(status, timing, func(o *story.LoggingHookOptions) { o.Logger = logger })

	require.NoError(t, story.InjectHooks(def, []story.Hook{status, timing, hook}))
	require.NoError(t, def.Invoke(&cart{}))

	require.Len(t, logger.entries, 6)

	// before(charge): validate finished, charge running, confirm unreached
	e := logger.entries[2]
	assert.Equal(t, "debug", e.level)
	assert.Equal(t, "story progress", e.msg)
	assert.Equal(t, "before", e.args["phase"])
	assert.Equal(t, "charge", e.args["step"])
	assert.Equal(t, "Checkout", e.args["story"])
	assert.NotEmpty(t, e.args["run_id"])
	assert.Equal(t, "Checkout:\n  ✓ validate (12ms)\n  ▶ charge", e.args["progress"])

	last := logger.entries[5]
	assert.Equal(t,
		"Checkout:\n  ✓ validate (12ms)\n  ✓ charge (30ms)\n  ✓ confirm (1ms)",
		last.args["progress"])
}

func TestLoggingHook_LogsFailureAtErrorLevel(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	def := newTimedCheckout(t, fc, fc.Advance, "charge")

	logger := &captureLogger{}
	require.NoError(t, story.InjectHooks(def, story.DefaultHooks(func(o *story.LoggingHookOptions) { o.Logger = logger })))

	require.ErrorIs(t, def.Invoke(&cart{}), errDeclined)

	require.Len(t, logger.entries, 4)
	e := logger.entries[3]
	assert.Equal(t, "error", e.level)
	assert.Equal(t, "story step failed", e.msg)
	assert.Equal(t, "charge", e.args["step"])
	assert.Equal(t, errDeclined.Error(), e.args["error"])
	assert.Contains(t, e.args["progress"], "✗ charge")
	assert.NotContains(t, e.args["progress"], "confirm")
}

func TestLoggingHook_RenderWithoutTrackers(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	def := newTimedCheckout(t, fc, fc.Advance, "confirm")

	hook := story.NewLoggingHook(nil, nil, func(o *story.LoggingHookOptions) { o.Logger = &captureLogger{} })

	ec, err := def.Execute(context.Background(), &cart{})
	require.ErrorIs(t, err, errDeclined)

	assert.Equal(t,
		"Checkout:\n  ✓ validate (12ms)\n  ✓ charge (30ms)\n  ✗ confirm (1ms)",
		hook.Render(ec))
}

// stackLogger is a captureLogger that also accepts stack traces.
type stackLogger struct {
	captureLogger
	stackErrs []error
}

func (l *stackLogger) ErrorWithStack(err error, msg string, args ...any) {
	l.mu.Lock()
	l.stackErrs = append(l.stackErrs, err)
	l.mu.Unlock()
	l.add("error", msg, args)
}

func TestLoggingHook_PanicLoggedWithStack(t *testing.T) {
	def := story.MustDefine("Panicky", []string{"a"}, story.Methods[*cart]{
		"a": story.Sync(func(*cart) error { panic("kaboom") }),
	})

	logger := &stackLogger{}
	require.NoError(t, story.InjectHooks(def, story.DefaultHooks(func(o *story.LoggingHookOptions) { o.Logger = logger })))

	assert.Panics(t, func() { _ = def.Invoke(&cart{}) })

	require.Len(t, logger.stackErrs, 1)
	var p *story.PanicError
	require.ErrorAs(t, logger.stackErrs[0], &p)
	assert.Equal(t, "kaboom", p.Value)

	last := logger.entries[len(logger.entries)-1]
	assert.Equal(t, "story step panicked", last.msg)
	assert.Equal(t, "a", last.args["step"])
}

func TestLoggingHook_PlainErrorSkipsStack(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	def := newTimedCheckout(t, fc, fc.Advance, "charge")

	logger := &stackLogger{}
	require.NoError(t, story.InjectHooks(def, story.DefaultHooks(func(o *story.LoggingHookOptions) { o.Logger = logger })))

	require.ErrorIs(t, def.Invoke(&cart{}), errDeclined)
	assert.Empty(t, logger.stackErrs)
}
