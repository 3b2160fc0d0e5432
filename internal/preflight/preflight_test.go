package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reconciler/internal/config"
	"reconciler/internal/store"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckRegistry(t *testing.T) {
	ok := CheckRegistry(context.Background(), "Registry", pingFunc(func(context.Context) error { return nil }))
	if !ok.Passed {
		t.Fatalf("expected pass, got %s", ok.Detail)
	}
	timedOut := CheckRegistry(context.Background(), "Registry", pingFunc(func(context.Context) error {
		return context.DeadlineExceeded
	}))
	if timedOut.Passed || timedOut.Detail != "health check timed out (registry unresponsive)" {
		t.Fatalf("unexpected result %+v", timedOut)
	}
	failed := CheckRegistry(context.Background(), "Registry", pingFunc(func(context.Context) error {
		return errors.New("connection refused")
	}))
	if failed.Passed || failed.Detail != "connection refused" {
		t.Fatalf("unexpected result %+v", failed)
	}
}

func TestCheckDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciler.db")
	if result := CheckDatabase(context.Background(), path); !result.Passed {
		t.Fatalf("missing database should pass, got %s", result.Detail)
	}

	st, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if _, err := st.ImportRecords(context.Background(), []string{"A", "B"}); err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	st.Close()

	result := CheckDatabase(context.Background(), path)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if want := path + " (2 records, 0 resolved)"; result.Detail != want {
		t.Fatalf("detail = %q, want %q", result.Detail, want)
	}
}

func TestRunAllAgainstLiveRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Registry.BaseURL = srv.URL
	cfg.Registry.HealthPath = "/health"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAllFlagsUnreachableRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Registry.BaseURL = srv.URL

	failed := Failed(RunAll(context.Background(), &cfg))
	names := map[string]bool{}
	for _, r := range failed {
		names[r.Name] = true
	}
	if !names["Registry"] || !names["Data directory"] || !names["Log directory"] {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}
