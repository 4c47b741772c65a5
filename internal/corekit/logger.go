// Package corekit holds the ambient stack shared by every package in this
// module: structured logging, a framework error type, and functional-options
// configuration. It has no dependency on message/protocol/broker types so
// that every other package can depend on it.
package corekit

import "context"

// Logger is the minimal structured logging interface used throughout the
// runtime. Field maps keep call sites terse while still allowing structured
// output.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger scopes a Logger to a named component (e.g.
// "broker", "provider/calendar", "orchestrator") so structured log output
// can be filtered by subsystem.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// NoOpLogger discards everything. It is the default when no logger is
// configured.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{}) {}
func (NoOpLogger) Warn(string, map[string]interface{}) {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}

func (NoOpLogger) WithComponent(string) Logger { return NoOpLogger{} }
