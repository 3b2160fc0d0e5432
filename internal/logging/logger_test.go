package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reconciler/internal/config"
	"reconciler/internal/logging"
	"reconciler/internal/services"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("run started", logging.String(logging.FieldRunID, "abc"))

	data, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", data, err)
	}
	if entry["msg"] != "run started" || entry["run_id"] != "abc" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerFoldsSubjectAndOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "0123456789abcdef")
	ctx = services.WithRecordKey(ctx, "Acme LLC")
	ctx = services.WithState(ctx, "searching")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "controller")).Info("search issued", logging.Int("candidates", 2))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, fragment := range []string{"[controller]", "Run 01234567", `"Acme LLC" (searching)`, "search issued", "candidates: 2"} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in %q", fragment, text)
		}
	}
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
	if strings.Contains(text, "run_id:") {
		t.Fatalf("expected run_id folded into header, got %q", text)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "lookup failed", "lookup_unavailable", logging.Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry[logging.FieldEventType] != "lookup_unavailable" {
		t.Fatalf("expected event_type, got %v", entry)
	}
	if entry[logging.FieldErrorHint] == nil || entry[logging.FieldImpact] == nil {
		t.Fatalf("expected error_hint and impact defaults, got %v", entry)
	}
}

func TestOpenRunLogAndCleanup(t *testing.T) {
	dir := t.TempDir()
	handler, closer, err := logging.OpenRunLog(dir, "run-new", "info")
	if err != nil {
		t.Fatalf("OpenRunLog returned error: %v", err)
	}
	logger, _ := logging.NewRunLogger(logging.NewNop(), handler)
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close run log: %v", err)
	}

	oldPath := filepath.Join(dir, "run-old.log")
	if err := os.WriteFile(oldPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write old log: %v", err)
	}
	past := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed := logging.CleanupRunLogs(logging.NewNop(), dir, 5, "run-new")
	if removed != 1 {
		t.Fatalf("expected 1 pruned log, got %d", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run-new.log")); err != nil {
		t.Fatalf("expected current run log kept: %v", err)
	}
	if logging.CleanupRunLogs(nil, dir, 0, "") != 0 {
		t.Fatal("expected retention 0 to disable pruning")
	}
}
