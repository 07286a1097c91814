// Package logger provides the process-wide leveled logger.
//
// Log lines are structured JSON on stdout. Call sites pass a component
// name so per-subsystem output can be filtered downstream.
package logger

import (
	"log/slog"
	"os"
)

type Level = slog.Level

const (
	DEBUG Level = slog.LevelDebug
	INFO  Level = slog.LevelInfo
	WARN  Level = slog.LevelWarn
	ERROR Level = slog.LevelError
)

var (
	levelVar = new(slog.LevelVar)
	root     = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))
)

// SetLevel changes the minimum level for all subsequent log lines.
func SetLevel(l Level) {
	levelVar.Set(l)
}

// InfoC logs an info line for a component.
func InfoC(component, msg string) {
	root.Info(msg, "component", component)
}

// InfoCF logs an info line for a component with extra fields.
func InfoCF(component, msg string, fields map[string]any) {
	root.Info(msg, attrs(component, fields)...)
}

func WarnCF(component, msg string, fields map[string]any) {
	root.Warn(msg, attrs(component, fields)...)
}

func ErrorCF(component, msg string, fields map[string]any) {
	root.Error(msg, attrs(component, fields)...)
}

func DebugCF(component, msg string, fields map[string]any) {
	root.Debug(msg, attrs(component, fields)...)
}

func attrs(component string, fields map[string]any) []any {
	out := make([]any, 0, 2+2*len(fields))
	out = append(out, "component", component)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
