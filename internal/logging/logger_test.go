package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ntfybridge/internal/config"
	"ntfybridge/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesDaemonLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	cfg.Logging.Level = "info"

	logger, closer, err := logging.NewFromConfig(&cfg, "debug", false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("bridge started", logging.String(logging.FieldTopic, "alerts"))
	logger.Debug("override level applied")
	if err := closer.Close(); err != nil {
		t.Fatalf("close logger: %v", err)
	}

	content := readLog(t, cfg.LogPath())
	if !strings.Contains(content, "bridge started") || !strings.Contains(content, "topic=alerts") ||
		!strings.Contains(content, "override level applied") {
		t.Fatalf("unexpected log content %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, closer, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer closer.Close()

	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, closer, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer closer.Close()

	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")

	logger, closer, err := logging.New(logging.Options{OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer closer.Close()

	logging.NewComponentLogger(logger, "bridge").Warn("poll failed", logging.String("reason", "timed out"))

	content := readLog(t, logPath)
	if !strings.Contains(content, "WARN bridge: poll failed") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, `reason="timed out"`) {
		t.Fatalf("expected quoted attribute, got %q", content)
	}
}

func TestJSONLoggerRotatingOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "json.log")

	logger, closer, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
		Rotation:    logging.Rotation{MaxSizeMB: 1, MaxBackups: 1},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))
	if err := closer.Close(); err != nil {
		t.Fatalf("close logger: %v", err)
	}

	var record map[string]any
	line := strings.TrimSpace(readLog(t, logPath))
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("decode json log line %q: %v", line, err)
	}
	if record["msg"] != "json message" || record["k"] != "v" || record["level"] != "info" {
		t.Fatalf("unexpected record %#v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %#v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logging.WithTopic(context.Background(), "alerts")
	ctx = logging.WithMessageID(ctx, "abc123")
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if record[logging.FieldTopic] != "alerts" {
		t.Fatalf("expected topic field, got %#v", record)
	}
	if record[logging.FieldMessageID] != "abc123" {
		t.Fatalf("expected message id field, got %#v", record)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "send failed", "outbox_send_failed", logging.String(logging.FieldImpact, "reply delayed"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if record[logging.FieldEventType] != "outbox_send_failed" {
		t.Fatalf("unexpected event type: %#v", record)
	}
	if record[logging.FieldImpact] != "reply delayed" {
		t.Fatalf("expected caller impact preserved, got %#v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default error hint, got %#v", record)
	}
}

func TestNewWriterFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, "warn")

	logger.Info("quiet")
	logger.Warn("loud", logging.String(logging.FieldTopic, "alerts"))

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("expected info record to be filtered, got %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "topic=alerts") {
		t.Fatalf("expected warn record with topic, got %q", out)
	}
}
