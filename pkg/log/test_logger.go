package log

import (
	"sync"
)

// TestLogger is a Logger implementation that records entries for assertions
// in tests.
type TestLogger struct {
	mu      sync.Mutex
	level   Level
	fields  Fields
	entries *[]Entry
}

// NewTestLogger creates a logger that captures entries in memory.
func NewTestLogger() *TestLogger {
	entries := make([]Entry, 0)
	return &TestLogger{
		level:   DebugLevel,
		fields:  Fields{},
		entries: &entries,
	}
}

// Entries returns a copy of all captured entries.
func (l *TestLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(*l.entries))
	copy(out, *l.entries)
	return out
}

// EntriesAt returns captured entries at the given level.
func (l *TestLogger) EntriesAt(level Level) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Debug records a debug entry.
func (l *TestLogger) Debug(msg string, fields ...Field) { l.record(DebugLevel, msg, fields) }

// Info records an info entry.
func (l *TestLogger) Info(msg string, fields ...Field) { l.record(InfoLevel, msg, fields) }

// Warn records a warn entry.
func (l *TestLogger) Warn(msg string, fields ...Field) { l.record(WarnLevel, msg, fields) }

// Error records an error entry.
func (l *TestLogger) Error(msg string, fields ...Field) { l.record(ErrorLevel, msg, fields) }

// With returns a logger sharing the same entry sink with extra fields.
func (l *TestLogger) With(fields ...Field) Logger {
	child := &TestLogger{
		level:   l.level,
		fields:  Fields{},
		entries: l.entries,
	}
	l.mu.Lock()
	for k, v := range l.fields {
		child.fields[k] = v
	}
	l.mu.Unlock()
	for _, f := range fields {
		child.fields[f.Key] = f.Value
	}
	return child
}

// WithComponent tags entries with a component name.
func (l *TestLogger) WithComponent(component string) Logger {
	return l.With(Str("component", component))
}

// SetLevel sets the minimum log level.
func (l *TestLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum log level.
func (l *TestLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *TestLogger) record(level Level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	entry := Entry{Level: level, Message: msg, Fields: Fields{}}
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}
	*l.entries = append(*l.entries, entry)
}
