package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reconciler/internal/registry/api"
	"reconciler/internal/store"
	"reconciler/internal/testsupport"
)

func TestReadKeys(t *testing.T) {
	input := "name,id\nAcme Widgets,1\n  Beta Corp ,2\n,3\nshort\n"
	keys, err := readKeys(strings.NewReader(input), 0, true)
	if err != nil {
		t.Fatalf("readKeys: %v", err)
	}
	want := []string{"Acme Widgets", "Beta Corp", "short"}
	if strings.Join(keys, "|") != strings.Join(want, "|") {
		t.Fatalf("keys = %q, want %q", keys, want)
	}

	ids, err := readKeys(strings.NewReader(input), 1, false)
	if err != nil {
		t.Fatalf("readKeys: %v", err)
	}
	if strings.Join(ids, "|") != "id|1|2|3" {
		t.Fatalf("ids = %q", ids)
	}
}

func TestRecordsImportListReset(t *testing.T) {
	env := setupCLITestEnv(t)
	csvPath := filepath.Join(env.baseDir, "records.csv")
	if err := os.WriteFile(csvPath, []byte("Acme Widgets\nBeta Corp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"records", "import", csvPath}, env.configPath)
	if err != nil {
		t.Fatalf("records import: %v", err)
	}
	requireContains(t, out, "Imported 2 records")

	out, _, err = runCLI(t, []string{"records", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	requireContains(t, out, "Acme Widgets")
	requireContains(t, out, "Beta Corp")

	out, _, err = runCLI(t, []string{"records", "reset"}, env.configPath)
	if err != nil {
		t.Fatalf("records reset: %v", err)
	}
	requireContains(t, out, "Reset 0 records")

	if _, _, err := runCLI(t, []string{"records", "import", csvPath, "--column", "0"}, env.configPath); err == nil {
		t.Fatal("expected error for column 0")
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	if _, _, err := runCLI(t, []string{"logs"}, env.configPath); err == nil {
		t.Fatal("expected logs to fail without any runs")
	}
}

func TestRunThenHistoryAndReport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "Acme Widgets" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(api.SearchResponse{Results: []api.SearchResult{{ID: "e1", Name: "Acme Widgets"}}})
	})
	mux.HandleFunc("GET /entities/e1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(api.Entity{ID: "e1", Name: "Acme Widgets", Status: "Active", Expanded: true, DocumentURL: "https://docs.example/e1"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithRegistryURL(srv.URL))
	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	testsupport.SeedRecords(t, st, "Acme Widgets", "Beta Corp")
	st.Close()

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Exhausted")
	requireContains(t, out, "2 processed")
	requireContains(t, out, "Log issues")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Exhausted")

	st, err = store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	runs, err := st.ListRuns(context.Background(), 1)
	st.Close()
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %v, %v", runs, err)
	}

	out, _, err = runCLI(t, []string{"report", runs[0].ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	requireContains(t, out, "https://docs.example/e1")
	requireContains(t, out, "Exact")

	if _, _, err := runCLI(t, []string{"report", "nope"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	}

	out, _, err = runCLI(t, []string{"logs", "-n", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, runs[0].ID)
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"failure_limit":           "Failure Limit",
		"single_candidate_forced": "Single Candidate Forced",
		"":                        "-",
	}
	for in, want := range cases {
		if got := humanize(in); got != want {
			t.Fatalf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Stop reason", statusError, "Failure Limit", false)
	if line != "  Stop reason:         [ERROR] Failure Limit" {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestStatusReportsChecksAndRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithRegistryURL(srv.URL))
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "Checks")
	requireContains(t, out, srv.URL)
	requireContains(t, out, "Unresolved:")
}

func TestStatusFailsWhenRegistryDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithRegistryURL(srv.URL))
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err == nil {
		t.Fatal("expected status to fail when the registry is down")
	}
	requireContains(t, out, "[ERROR]")
}
