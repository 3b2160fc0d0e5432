package annotation

import (
	"fmt"
	"strings"

	"reconciler/internal/matching"
	"reconciler/internal/provenance"
)

const (
	// NoResultsNote is written when the registry returned no candidates.
	NoResultsNote = "NO RESULTS WERE FOUND"
	// MultipleResultsMarker is appended to the document line when the selection
	// was made among several candidates without an exact match.
	MultipleResultsMarker = " MULTIPLE RESULTS"
)

// Outcome is the final artifact of one record's processing.
type Outcome struct {
	Status             string
	DocumentRef        string
	MultipleCandidates bool
	Note               string
}

// HasDocumentRef reports whether a real document reference was found.
func (o Outcome) HasDocumentRef() bool {
	return o.DocumentRef != "" && o.DocumentRef != provenance.PlaceholderDocumentRef
}

// NewOutcome builds the outcome for a selected candidate.
func NewOutcome(match matching.Result, prov provenance.Result) Outcome {
	outcome := Outcome{
		Status:             prov.Status,
		DocumentRef:        prov.DocumentRef,
		MultipleCandidates: match.MultipleCandidates(),
	}
	outcome.Note = ComposeNote(outcome.Status, outcome.DocumentRef, outcome.MultipleCandidates)
	return outcome
}

// NoResults builds the outcome for a search without candidates. A non-nil
// cause is appended to the note.
func NoResults(cause error) Outcome {
	note := NoResultsNote
	if cause != nil {
		note = fmt.Sprintf("%s (error: %s)", NoResultsNote, strings.TrimSpace(cause.Error()))
	}
	return Outcome{Note: note}
}

// ComposeNote renders the status and document lines.
func ComposeNote(status, documentRef string, multiple bool) string {
	var b strings.Builder
	b.WriteString("Status: ")
	b.WriteString(status)
	b.WriteString("\nDownload: ")
	b.WriteString(documentRef)
	if multiple {
		b.WriteString(MultipleResultsMarker)
	}
	return b.String()
}
