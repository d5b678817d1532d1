// Package logging provides a minimal logging interface and adapters for dddkit.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that stories and hooks use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter and StoryLogger wrapping Go's structured logging
//   - ZapAdapter for services standardised on go.uber.org/zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
//	hooks := story.DefaultHooks(func(o *story.LoggingHookOptions) { o.Logger = logger })
//
// The interface is kept minimal so any structured logger can be plugged in.
package logging
