package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
)

// TextFormatter formats log entries as human-readable text.
type TextFormatter struct {
	TimestampFormat  string
	DisableColors    bool
	DisableTimestamp bool
}

// NewTextFormatter creates a TextFormatter with sensible defaults.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000",
	}
}

var levelColors = map[Level]*color.Color{
	DebugLevel: color.New(color.FgCyan),
	InfoLevel:  color.New(color.FgGreen),
	WarnLevel:  color.New(color.FgYellow),
	ErrorLevel: color.New(color.FgRed, color.Bold),
}

// Format formats the entry as a single text line.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer

	if !f.DisableTimestamp {
		format := f.TimestampFormat
		if format == "" {
			format = "2006-01-02T15:04:05.000"
		}
		buf.WriteString(entry.Timestamp.Format(format))
		buf.WriteByte(' ')
	}

	level := entry.Level.String()
	if !f.DisableColors {
		if c, ok := levelColors[entry.Level]; ok {
			level = c.Sprint(level)
		}
	}
	fmt.Fprintf(&buf, "[%s] %s", level, entry.Message)

	// Stable field ordering keeps output diffable.
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// JSONFormatter formats log entries as JSON objects, one per line.
type JSONFormatter struct {
	TimestampFormat string
}

// Format formats the entry as JSON.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	format := f.TimestampFormat
	if format == "" {
		format = time.RFC3339
	}

	data := make(map[string]interface{}, len(entry.Fields)+3)
	data["timestamp"] = entry.Timestamp.Format(format)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	for k, v := range entry.Fields {
		if k != "timestamp" && k != "level" && k != "message" {
			data[k] = v
		}
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
