package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerToFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", false)

	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("info leaked through warn level: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("warn suppressed: %s", out)
	}
}

func TestNewLoggerToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", true)
	logger.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"key":"value"`) {
		t.Fatalf("unexpected json output: %s", out)
	}
}

func TestNewLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "nonsense", false)
	logger.Info("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("info suppressed under default level: %s", buf.String())
	}
}
