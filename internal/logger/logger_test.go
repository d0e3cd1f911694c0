package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLogFilePathUsesConfiguredFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	got, err := resolveLogFilePath(Options{Dir: dir, Filename: "orders.log"})
	if err != nil {
		t.Fatalf("resolve log path failed: %v", err)
	}
	if got != filepath.Join(dir, "orders.log") {
		t.Fatalf("unexpected log path: %s", got)
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestResolveLogFilePathDefaultFilename(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveLogFilePath(Options{Dir: dir})
	if err != nil {
		t.Fatalf("resolve log path failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
}

func TestNewReleaseWritesJSONLines(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Sugar().Infow("order_transition_applied", "order_id", 42, "to", "paid")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	line := strings.TrimSpace(string(content))
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("release log should be json, got=%s err=%v", line, err)
	}
	if entry["message"] != "order_transition_applied" {
		t.Fatalf("unexpected message field: %v", entry["message"])
	}
	if entry["order_id"] != float64(42) {
		t.Fatalf("unexpected order_id field: %v", entry["order_id"])
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "  req-1  ")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id want req-1 got %q", got)
	}
	if got := RequestIDFromContext(ContextWithRequestID(context.Background(), " ")); got != "" {
		t.Fatalf("blank request id should not be stored, got %q", got)
	}
	if got := RequestIDFromContext(nil); got != "" {
		t.Fatalf("nil context should yield empty id, got %q", got)
	}
}

func TestNormalizePositiveInt(t *testing.T) {
	if got := normalizePositiveInt(0, 7); got != 7 {
		t.Fatalf("zero should fallback, got %d", got)
	}
	if got := normalizePositiveInt(-3, 7); got != 7 {
		t.Fatalf("negative should fallback, got %d", got)
	}
	if got := normalizePositiveInt(12, 7); got != 12 {
		t.Fatalf("positive should be kept, got %d", got)
	}
}
