package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
	if _, ok := newFanoutHandler(&Tally{}, inner).(*teeHandler); !ok {
		t.Fatal("expected a counting handler to stay wrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	h := newFanoutHandler(nil,
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug disabled")
	}
	logger := slog.New(h)
	logger.Info("info message")
	if infoBuf.Len() == 0 {
		t.Fatal("expected output in info handler")
	}
	if warnBuf.Len() != 0 {
		t.Fatal("expected no output in warn handler")
	}
}

func TestRunLoggerCarriesAttrsToBothOutputs(t *testing.T) {
	var baseBuf, runBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))
	logger, _ := NewRunLogger(base, slog.NewJSONHandler(&runBuf, nil))
	logger = logger.With(String(FieldRunID, "run-1"))

	logger.Info("block scanned")

	for name, buf := range map[string]*bytes.Buffer{"base": &baseBuf, "run log": &runBuf} {
		if !bytes.Contains(buf.Bytes(), []byte(`"run_id":"run-1"`)) {
			t.Fatalf("expected run_id in %s output, got %s", name, buf.String())
		}
	}
}

func TestRunLoggerTalliesFilteredWarnings(t *testing.T) {
	var runBuf bytes.Buffer
	runLog := slog.NewJSONHandler(&runBuf, &slog.HandlerOptions{Level: slog.LevelError})
	logger, tally := NewRunLogger(NewNop(), runLog)

	logger.Info("record annotated")
	logger.Warn("detail view still stale")
	logger.Warn("scan failed")
	logger.With(String(FieldRecordKey, "Acme")).Error("run stopped at failure limit")

	if tally.Warnings() != 2 || tally.Errors() != 1 {
		t.Fatalf("expected 2 warnings and 1 error, got %d and %d", tally.Warnings(), tally.Errors())
	}
	if bytes.Contains(runBuf.Bytes(), []byte("scan failed")) {
		t.Fatal("warnings below the run log level must not be written")
	}
	if !bytes.Contains(runBuf.Bytes(), []byte("failure limit")) {
		t.Fatalf("expected error in run log, got %s", runBuf.String())
	}
}

func TestNilTallyReportsZero(t *testing.T) {
	var tally *Tally
	if tally.Warnings() != 0 || tally.Errors() != 0 {
		t.Fatal("expected zero counts from nil tally")
	}
}

func TestCandidateMatchAttrsNamesMissingSelection(t *testing.T) {
	attrs := CandidateMatchAttrs("none", " ", "no candidates returned", 0, 0)
	values := map[string]string{}
	for _, attr := range attrs {
		values[attr.Key] = attr.Value.String()
	}
	if values[FieldDecisionType] != "candidate_match" || values[FieldDecisionSelected] != "none" {
		t.Fatalf("unexpected decision attrs: %v", values)
	}
	if values[FieldCandidates] != "0" || values[FieldDecisionResult] != "none" {
		t.Fatalf("unexpected decision attrs: %v", values)
	}
}
