package story

import (
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Options configures a Definition using the functional options pattern.
type Options struct {
	// Clock stamps StepExecutionInfo start and end times.
	// Defaults to the real clock, also when an option leaves it nil.
	Clock clockwork.Clock

	// NewRunID generates the identifier of each run.
	// Defaults to uuid.NewString.
	NewRunID func() string
}

// Definition is an immutable, ordered sequence of steps executed against a
// caller-owned state of type S. A definition is typically built once at
// package initialisation and invoked many times, possibly concurrently.
//
// The step list is frozen by Define. Only the attached hook set may change
// afterwards, and only through InjectHooks / SetHooks, which swap it
// atomically: runs already in flight keep the set they started with.
type Definition[S any] struct {
	name     string
	steps    []step[S]
	hasAsync bool

	hooks atomic.Pointer[hookSet]

	clock    clockwork.Clock
	newRunID func() string
}

// Define resolves the ordered step identifiers against methods and freezes
// the result.
//
// Every identifier must be non-blank, name a method and appear only once; at
// least one step is required. Violations are reported as *ConfigurationError.
//
// Example:
//
//	type Checkout struct{ gateway PaymentGateway }
//
//	func (c *Checkout) Definition() (*story.Definition[*Order], error) {
//	    return story.Define("Checkout",
//	        []string{"validate", "charge", "confirm"},
//	        story.Methods[*Order]{
//	            "validate": story.Sync(c.validate),
//	            "charge":   story.Async(c.charge),
//	            "confirm":  story.Sync(c.confirm),
//	        })
//	}
func Define[S any](name string, steps []string, methods Methods[S], optFns ...func(o *Options)) (*Definition[S], error) {
	opts := Options{
		Clock:    clockwork.NewRealClock(),
		NewRunID: uuid.NewString,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}

	if strings.TrimSpace(name) == "" {
		return nil, configErr(name, "", ErrInvalidStory)
	}

	if len(steps) == 0 {
		return nil, configErr(name, "", ErrNoSteps)
	}

	d := &Definition[S]{
		name:     name,
		steps:    make([]step[S], 0, len(steps)),
		clock:    opts.Clock,
		newRunID: opts.NewRunID,
	}

	seen := make(map[string]struct{}, len(steps))

	for i, id := range steps {
		if strings.TrimSpace(id) == "" {
			return nil, configErr(name, id, ErrInvalidStepName)
		}

		if _, dup := seen[id]; dup {
			return nil, configErr(name, id, ErrDuplicateStep)
		}
		seen[id] = struct{}{}

		m, ok := methods[id]
		if !ok {
			return nil, configErr(name, id, ErrUnknownStep)
		}

		if !m.valid() {
			return nil, configErr(name, id, ErrInvalidStep)
		}

		if m.kind == KindAsync {
			d.hasAsync = true
		}

		d.steps = append(d.steps, step[S]{
			StepInfo: StepInfo{Name: id, Ordinal: i, Kind: m.kind},
			method:   m,
		})
	}

	return d, nil
}

// MustDefine is like Define but panics on a configuration error. It is meant
// for package-level definitions.
func MustDefine[S any](name string, steps []string, methods Methods[S], optFns ...func(o *Options)) *Definition[S] {
	d, err := Define(name, steps, methods, optFns...)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the story name.
func (d *Definition[S]) Name() string { return d.name }

// Steps returns the frozen step descriptors in declared order.
func (d *Definition[S]) Steps() []StepInfo {
	out := make([]StepInfo, len(d.steps))
	for i := range d.steps {
		out[i] = d.steps[i].StepInfo
	}
	return out
}

// Async reports whether the definition needs InvokeAsync: it holds an
// async step or an async hook.
func (d *Definition[S]) Async() bool {
	if d.hasAsync {
		return true
	}
	hs := d.hooks.Load()
	return hs != nil && hs.async
}

// Hooks returns the currently attached hooks in registration order.
func (d *Definition[S]) Hooks() []Hook { return d.hooks.Load().hooks() }

// SetHooks replaces the attached hook set with exactly the given hooks.
// Passing no hooks detaches every hook. Use InjectHooks to fall back to the
// builtin defaults.
func (d *Definition[S]) SetHooks(hooks ...Hook) error {
	hs, err := newHookSet(d.name, hooks)
	if err != nil {
		return err
	}
	d.hooks.Store(hs)
	return nil
}
