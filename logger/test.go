package logger

import (
	"fmt"
	"sync"
)

// TestLogEntry is one captured log call.
type TestLogEntry struct {
	Severity string
	Message  string
	Metadata map[string]interface{}
}

// TestLogger records log calls for inspection in tests.
type TestLogger struct {
	mu       sync.Mutex
	metadata map[string]interface{}
	prefixes []string
	entries  *[]TestLogEntry
}

var _ Logger = (*TestLogger)(nil)

// NewTestLogger returns a logger that records every call.
func NewTestLogger() *TestLogger {
	entries := make([]TestLogEntry, 0, 16)
	return &TestLogger{metadata: map[string]interface{}{}, entries: &entries}
}

// Entries returns a copy of everything logged so far.
func (c *TestLogger) Entries() []TestLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TestLogEntry, len(*c.entries))
	copy(out, *c.entries)
	return out
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	kv := make(map[string]interface{}, len(c.metadata)+len(metadata))
	for k, v := range c.metadata {
		kv[k] = v
	}
	for k, v := range metadata {
		kv[k] = v
	}
	return &TestLogger{metadata: kv, prefixes: c.prefixes, entries: c.entries}
}

func (c *TestLogger) WithPrefix(prefix string) Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefixes := make([]string, len(c.prefixes), len(c.prefixes)+1)
	copy(prefixes, c.prefixes)
	prefixes = append(prefixes, prefix)
	return &TestLogger{metadata: c.metadata, prefixes: prefixes, entries: c.entries}
}

func (c *TestLogger) record(severity string, msg string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.entries = append(*c.entries, TestLogEntry{
		Severity: severity,
		Message:  fmt.Sprintf(msg, args...),
		Metadata: c.metadata,
	})
}

func (c *TestLogger) Trace(msg string, args ...interface{}) { c.record("TRACE", msg, args...) }
func (c *TestLogger) Debug(msg string, args ...interface{}) { c.record("DEBUG", msg, args...) }
func (c *TestLogger) Info(msg string, args ...interface{})  { c.record("INFO", msg, args...) }
func (c *TestLogger) Warn(msg string, args ...interface{})  { c.record("WARN", msg, args...) }
func (c *TestLogger) Error(msg string, args ...interface{}) { c.record("ERROR", msg, args...) }
