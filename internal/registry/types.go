package registry

import (
	"time"

	"reconciler/internal/textutil"
)

// Candidate is one result returned by a registry search. Candidates are
// immutable and scoped to the lookup that produced them.
type Candidate struct {
	RawName        string
	NormalizedName string
	// ReferenceDate is the zero time when the registry reports no date.
	ReferenceDate time.Time
	// Handle is the driver's opaque reference used to open the detail view.
	Handle string
}

// NewCandidate builds a Candidate with its normalized name filled in.
func NewCandidate(rawName string, referenceDate time.Time, handle string) Candidate {
	return Candidate{
		RawName:        rawName,
		NormalizedName: textutil.Normalize(rawName),
		ReferenceDate:  referenceDate,
		Handle:         handle,
	}
}

// HasReferenceDate reports whether the registry supplied a reference date.
func (c Candidate) HasReferenceDate() bool {
	return !c.ReferenceDate.IsZero()
}

// DetailHandle refers to an opened candidate detail view.
type DetailHandle struct {
	ID   string
	Name string
}

// LookupStatus tags the outcome of a search.
type LookupStatus int

const (
	StatusFound LookupStatus = iota
	StatusNotFound
	StatusUnavailable
)

func (s LookupStatus) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// LookupResult is the tagged result of a registry search. Candidates is only
// populated for StatusFound and Err only for StatusUnavailable.
type LookupResult struct {
	Status     LookupStatus
	Candidates []Candidate
	Err        error
	Latency    time.Duration
}

// Found wraps a non-empty candidate list.
func Found(candidates []Candidate) LookupResult {
	return LookupResult{Status: StatusFound, Candidates: candidates}
}

// NotFound reports a search that completed with no candidates.
func NotFound() LookupResult {
	return LookupResult{Status: StatusNotFound}
}

// Unavailable reports a search that could not complete.
func Unavailable(err error) LookupResult {
	return LookupResult{Status: StatusUnavailable, Err: err}
}
