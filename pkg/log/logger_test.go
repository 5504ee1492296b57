package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(
		WithLevel(WarnLevel),
		WithOutput(&buf),
		WithFormatter(&TextFormatter{DisableColors: true, DisableTimestamp: true}),
	)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Fatalf("expected debug/info to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Fatalf("expected warn/error in output, got: %s", out)
	}
}

func TestWithFieldsInherited(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(
		WithOutput(&buf),
		WithFormatter(&TextFormatter{DisableColors: true, DisableTimestamp: true}),
	)

	child := logger.WithComponent("relation").With(Str("interface", "slo"))
	child.Info("provided spec", Int("relations", 2))

	out := buf.String()
	for _, want := range []string{"component=relation", "interface=slo", "relations=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithFormatter(&JSONFormatter{}))

	logger.Info("issued certificate", Str("common_name", "example.com"))

	var data map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if data["level"] != "INFO" {
		t.Errorf("expected level INFO, got %v", data["level"])
	}
	if data["message"] != "issued certificate" {
		t.Errorf("unexpected message: %v", data["message"])
	}
	if data["common_name"] != "example.com" {
		t.Errorf("expected field common_name, got %v", data["common_name"])
	}
}

func TestTestLoggerCaptures(t *testing.T) {
	logger := NewTestLogger()
	child := logger.WithComponent("certificates")
	child.Warn("cleanup failed", Str("relation", "certificates:0"))

	entries := logger.EntriesAt(WarnLevel)
	if len(entries) != 1 {
		t.Fatalf("expected 1 warn entry, got %d", len(entries))
	}
	if entries[0].Fields["component"] != "certificates" {
		t.Errorf("expected component field, got %+v", entries[0].Fields)
	}
}
