package corekit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
)

// SimpleLogger writes structured, line-oriented log output to an io writer
// via the standard library's log package. Fields are rendered as a
// trailing JSON object so output stays greppable.
type SimpleLogger struct {
	mu        sync.Mutex
	std       *log.Logger
	component string
	level     Level
}

// Level controls which severities SimpleLogger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// NewSimpleLogger builds a SimpleLogger writing to stderr at LevelInfo.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		std:   log.New(os.Stderr, "", log.LstdFlags),
		level: LevelInfo,
	}
}

// WithLevel returns a copy of the logger at the given minimum level.
func (l *SimpleLogger) WithLevel(level Level) *SimpleLogger {
	return &SimpleLogger{std: l.std, component: l.component, level: level}
}

func (l *SimpleLogger) WithComponent(component string) Logger {
	return &SimpleLogger{std: l.std, component: component, level: l.level}
}

func (l *SimpleLogger) log(level Level, tag, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := tag
	if l.component != "" {
		prefix = fmt.Sprintf("%s component=%s", tag, l.component)
	}
	if len(fields) == 0 {
		l.std.Printf("%s %s", prefix, msg)
		return
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		l.std.Printf("%s %s fields=<unmarshalable:%v>", prefix, msg, err)
		return
	}
	l.std.Printf("%s %s %s", prefix, msg, encoded)
}

func (l *SimpleLogger) Info(msg string, fields map[string]interface{}) { l.log(LevelInfo, "INFO", msg, fields) }
func (l *SimpleLogger) Warn(msg string, fields map[string]interface{}) { l.log(LevelWarn, "WARN", msg, fields) }
func (l *SimpleLogger) Error(msg string, fields map[string]interface{}) { l.log(LevelError, "ERROR", msg, fields) }
func (l *SimpleLogger) Debug(msg string, fields map[string]interface{}) { l.log(LevelDebug, "DEBUG", msg, fields) }

func withTraceField(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	id := ctx.Value(traceIDKey{})
	if id == nil {
		return fields
	}
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["trace_id"] = id
	return out
}

func (l *SimpleLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Info(msg, withTraceField(ctx, fields))
}
func (l *SimpleLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Warn(msg, withTraceField(ctx, fields))
}
func (l *SimpleLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Error(msg, withTraceField(ctx, fields))
}
func (l *SimpleLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Debug(msg, withTraceField(ctx, fields))
}

// traceIDKey is the context key under which WithTraceID stores a trace ID
// for correlation in log output.
type traceIDKey struct{}

// WithTraceID attaches a trace id to ctx so loggers can surface it.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}
