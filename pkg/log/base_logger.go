package log

import (
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// BaseLogger implements the Logger interface writing formatted entries to a
// single output writer.
type BaseLogger struct {
	mu        sync.Mutex
	level     Level
	fields    Fields
	formatter Formatter
	out       io.Writer
}

// LoggerOption configures a BaseLogger.
type LoggerOption func(*BaseLogger)

// WithLevel sets the minimum level for the logger.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		l.level = level
	}
}

// WithFormatter sets the entry formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) {
		l.formatter = formatter
	}
}

// WithOutput sets the destination writer.
func WithOutput(out io.Writer) LoggerOption {
	return func(l *BaseLogger) {
		l.out = out
	}
}

// NewLogger creates a logger writing text to stderr at info level. Colors
// are enabled only when stderr is a terminal.
func NewLogger(opts ...LoggerOption) *BaseLogger {
	formatter := NewTextFormatter()
	formatter.DisableColors = !term.IsTerminal(int(os.Stderr.Fd()))

	logger := &BaseLogger{
		level:     InfoLevel,
		fields:    Fields{},
		formatter: formatter,
		out:       os.Stderr,
	}
	for _, opt := range opts {
		opt(logger)
	}
	return logger
}

// Debug logs a message at the debug level with fields.
func (l *BaseLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields)
}

// Info logs a message at the info level with fields.
func (l *BaseLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields)
}

// Warn logs a message at the warn level with fields.
func (l *BaseLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields)
}

// Error logs a message at the error level with fields.
func (l *BaseLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields)
}

// With returns a new logger with the fields added to it.
func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	child := &BaseLogger{
		level:     l.level,
		formatter: l.formatter,
		out:       l.out,
		fields:    Fields{},
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for _, f := range fields {
		child.fields[f.Key] = f.Value
	}
	return child
}

// WithComponent tags entries with a component name.
func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Str("component", component))
}

// SetLevel sets the minimum log level.
func (l *BaseLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum log level.
func (l *BaseLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}

	entry := &Entry{
		Level:     level,
		Message:   msg,
		Fields:    Fields{},
		Timestamp: time.Now(),
	}
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}

	formatted, err := l.formatter.Format(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(formatted)
}
