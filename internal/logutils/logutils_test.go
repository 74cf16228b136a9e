package logutils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestInitLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerWithOutput("warn", FormatText, &buf)

	Log.Info("hidden info")
	Log.Warn("visible warning")

	out := buf.String()
	if strings.Contains(out, "hidden info") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "visible warning") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestInitLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerWithOutput("verbose", FormatText, &buf)

	Log.Info("info after fallback")
	if !strings.Contains(buf.String(), "info after fallback") {
		t.Errorf("expected info level after invalid level, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "Invalid log level") {
		t.Errorf("expected a warning about the invalid level, got: %s", buf.String())
	}
}

func TestJSONFormat_FieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerWithOutput("debug", FormatJSON, &buf)
	if !strings.Contains(buf.String(), "Log level set to debug") {
		t.Errorf("expected the level line at debug, got: %s", buf.String())
	}
	buf.Reset()

	Log.WithError(errors.New("boom")).
		WithField("chat_id", 42).
		WithFields(map[string]any{"platform": "youtube"}).
		Error("download failed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	if entry["message"] != "download failed" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "error" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
	if entry["platform"] != "youtube" {
		t.Errorf("platform = %v", entry["platform"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp field missing")
	}
}

func TestWithContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerWithOutput("info", FormatJSON, &buf)

	ctx := WithRequestID(context.Background(), "req-1")
	if RequestID(ctx) != "req-1" {
		t.Fatalf("RequestID() = %q", RequestID(ctx))
	}

	Log.WithContext(ctx).Info("tagged")
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Errorf("request_id missing: %s", buf.String())
	}

	buf.Reset()
	Log.WithContext(context.Background()).Info("untagged")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id: %s", buf.String())
	}
}
