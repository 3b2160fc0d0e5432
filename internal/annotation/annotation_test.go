package annotation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"reconciler/internal/logging"
	"reconciler/internal/matching"
	"reconciler/internal/provenance"
	"reconciler/internal/registry"
	"reconciler/internal/scanner"
	"reconciler/internal/services"
)

type recordingSink struct {
	notes     map[int]string
	committed []int
	writeErr  error
	commitErr error
}

func (s *recordingSink) WriteNote(_ context.Context, record scanner.Record, text string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	if s.notes == nil {
		s.notes = map[int]string{}
	}
	s.notes[record.Position] = text
	return nil
}

func (s *recordingSink) Commit(_ context.Context, record scanner.Record) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed = append(s.committed, record.Position)
	return nil
}

func TestNoResultsNote(t *testing.T) {
	if got := NoResults(nil).Note; got != "NO RESULTS WERE FOUND" {
		t.Fatalf("unexpected note %q", got)
	}
	got := NoResults(errors.New("detail vanished")).Note
	if got != "NO RESULTS WERE FOUND (error: detail vanished)" {
		t.Fatalf("unexpected error note %q", got)
	}
}

func TestNewOutcomeComposesNote(t *testing.T) {
	candidate := registry.NewCandidate("Beta Corporation Inc", time.Time{}, "2")
	tests := []struct {
		name  string
		match matching.Result
		want  string
	}{
		{
			name:  "exact",
			match: matching.Result{Candidate: &candidate, Tier: matching.TierExact, CandidateCount: 2},
			want:  "Status: Active\nDownload: https://docs/2.pdf",
		},
		{
			name:  "overlap among several",
			match: matching.Result{Candidate: &candidate, Tier: matching.TierLetterOverlap, CandidateCount: 2},
			want:  "Status: Active\nDownload: https://docs/2.pdf MULTIPLE RESULTS",
		},
		{
			name:  "forced single",
			match: matching.Result{Candidate: &candidate, Tier: matching.TierSingleCandidateForced, CandidateCount: 1},
			want:  "Status: Active\nDownload: https://docs/2.pdf",
		},
	}
	prov := provenance.Result{Status: "Active", DocumentRef: "https://docs/2.pdf"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := NewOutcome(tt.match, prov)
			if outcome.Note != tt.want {
				t.Fatalf("note = %q, want %q", outcome.Note, tt.want)
			}
			if !outcome.HasDocumentRef() {
				t.Fatal("expected real document ref")
			}
		})
	}
}

func TestWriterCommits(t *testing.T) {
	sink := &recordingSink{}
	record := scanner.Record{Row: scanner.Row{ID: 1, Position: 3}, Key: "Beta Corp"}
	if err := NewWriter(sink, logging.NewNop()).Write(context.Background(), record, NoResults(nil)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if sink.notes[3] != NoResultsNote {
		t.Fatalf("unexpected staged note %q", sink.notes[3])
	}
	if len(sink.committed) != 1 || sink.committed[0] != 3 {
		t.Fatalf("expected commit of position 3, got %v", sink.committed)
	}
}

func TestWriterFailuresAreAnnotationErrors(t *testing.T) {
	record := scanner.Record{Key: "Acme LLC"}
	for name, sink := range map[string]*recordingSink{
		"write":  {writeErr: errors.New("locked")},
		"commit": {commitErr: errors.New("disk full")},
	} {
		t.Run(name, func(t *testing.T) {
			err := NewWriter(sink, nil).Write(context.Background(), record, NoResults(nil))
			if !errors.Is(err, services.ErrAnnotation) {
				t.Fatalf("expected annotation failure, got %v", err)
			}
			if !strings.Contains(err.Error(), name) {
				t.Fatalf("expected operation %q in error, got %v", name, err)
			}
		})
	}
	if err := NewWriter(&recordingSink{}, nil).Write(context.Background(), record, Outcome{}); !errors.Is(err, services.ErrAnnotation) {
		t.Fatalf("expected empty note to fail, got %v", err)
	}
}
