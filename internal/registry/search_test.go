package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"reconciler/internal/logging"
	"reconciler/internal/services"
)

type stubSearcher struct {
	candidates []Candidate
	err        error
	calls      []time.Time
}

func (s *stubSearcher) Search(_ context.Context, _ string) ([]Candidate, error) {
	s.calls = append(s.calls, time.Now())
	return s.candidates, s.err
}

func TestSearchClassifiesResults(t *testing.T) {
	tests := []struct {
		name string
		stub *stubSearcher
		want LookupStatus
	}{
		{"found", &stubSearcher{candidates: []Candidate{NewCandidate("Acme LLC", time.Time{}, "1")}}, StatusFound},
		{"not found", &stubSearcher{}, StatusNotFound},
		{"unavailable", &stubSearcher{err: errors.New("dial tcp: refused")}, StatusUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewSearchClient(tt.stub, WithRateLimit(0), WithLogger(logging.NewNop()))
			result := client.Search(context.Background(), "Acme LLC")
			if result.Status != tt.want {
				t.Fatalf("status = %s, want %s", result.Status, tt.want)
			}
			if tt.want == StatusUnavailable && !errors.Is(result.Err, services.ErrLookupUnavailable) {
				t.Fatalf("expected lookup unavailable marker, got %v", result.Err)
			}
		})
	}
}

func TestSearchRejectsEmptyKey(t *testing.T) {
	stub := &stubSearcher{}
	result := NewSearchClient(stub, WithRateLimit(0)).Search(context.Background(), "   ")
	if result.Status != StatusUnavailable || !errors.Is(result.Err, services.ErrValidation) {
		t.Fatalf("expected validation failure, got %+v", result)
	}
	if len(stub.calls) != 0 {
		t.Fatal("expected no driver call for empty key")
	}
}

func TestSearchRateLimit(t *testing.T) {
	stub := &stubSearcher{}
	client := NewSearchClient(stub, WithRateLimit(40*time.Millisecond))
	client.Search(context.Background(), "a")
	client.Search(context.Background(), "b")
	if len(stub.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(stub.calls))
	}
	if gap := stub.calls[1].Sub(stub.calls[0]); gap < 35*time.Millisecond {
		t.Fatalf("expected searches spaced by rate limit, gap=%s", gap)
	}
}

func TestSearchRateLimitHonoursCancel(t *testing.T) {
	stub := &stubSearcher{}
	client := NewSearchClient(stub, WithRateLimit(time.Hour))
	client.Search(context.Background(), "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := client.Search(ctx, "b")
	if result.Status != StatusUnavailable || !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("expected canceled unavailable result, got %+v", result)
	}
}
