// Package logger provides the leveled logging interface used throughout
// papyrus. The default logger is silent; callers opt in to console output
// or supply their own implementation.
package logger

import (
	"os"
	"strings"
)

// LogLevel defines the level of logging
type LogLevel int

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

// GetLevelFromEnv reads PAPYRUS_LOG_LEVEL and converts it into a LogLevel.
// Unset or unrecognized values default to LevelNone so that the library
// stays quiet unless asked.
func GetLevelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("PAPYRUS_LOG_LEVEL")) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelNone
	}
}

// Logger is an interface for logging
type Logger interface {
	// With will return a new logger using metadata as the base context
	With(metadata map[string]interface{}) Logger
	// WithPrefix will return a new logger with a prefix prepended to the message
	WithPrefix(prefix string) Logger
	// Trace level logging
	Trace(msg string, args ...interface{})
	// Debug level logging
	Debug(msg string, args ...interface{})
	// Info level logging
	Info(msg string, args ...interface{})
	// Warning level logging
	Warn(msg string, args ...interface{})
	// Error level logging
	Error(msg string, args ...interface{})
}

type noopLogger struct{}

var _ Logger = (*noopLogger)(nil)

func (noopLogger) With(map[string]interface{}) Logger { return noopLogger{} }
func (noopLogger) WithPrefix(string) Logger           { return noopLogger{} }
func (noopLogger) Trace(string, ...interface{})       {}
func (noopLogger) Debug(string, ...interface{})       {}
func (noopLogger) Info(string, ...interface{})        {}
func (noopLogger) Warn(string, ...interface{})        {}
func (noopLogger) Error(string, ...interface{})       {}

// NewNoop returns a Logger that discards everything.
func NewNoop() Logger {
	return noopLogger{}
}
