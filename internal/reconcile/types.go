package reconcile

import (
	"time"

	"reconciler/internal/annotation"
	"reconciler/internal/matching"
	"reconciler/internal/scanner"
)

// State is a controller state.
type State string

const (
	StateScanning       State = "scanning"
	StateSearching      State = "searching"
	StateDisambiguating State = "disambiguating"
	StateExtracting     State = "extracting"
	StateAnnotating     State = "annotating"
	StateAdvancing      State = "advancing"
	StateStopped        State = "stopped"
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopNone         StopReason = ""
	StopExhausted    StopReason = "exhausted"
	StopFailureLimit StopReason = "failure_limit"
	StopCanceled     StopReason = "canceled"
)

// RunState is the per-run counter pair threaded through every step.
type RunState struct {
	ConsecutiveFailures int
	RecordsProcessed    int
}

// ResolutionReport describes how one key block was handled.
type ResolutionReport struct {
	Key            string
	Position       int
	Rows           int
	Outcome        annotation.Outcome
	Tier           matching.Tier
	Score          float64
	CandidateCount int
	// Reused is set when the outcome came from an earlier block with the same key.
	Reused      bool
	Failed      bool
	FailedState State
	Err         error
	Duration    time.Duration
}

// RunSummary is returned when a run stops.
type RunSummary struct {
	RecordsProcessed    int
	ConsecutiveFailures int
	TotalFailures       int
	Reused              int
	StopReason          StopReason
	Checkpoint          scanner.Checkpoint
	Duration            time.Duration
}

// StepResult is the value produced by one controller step.
type StepResult struct {
	State      RunState
	Checkpoint scanner.Checkpoint
	// Report is nil when the step did not attempt a record.
	Report *ResolutionReport
	Stop   StopReason
}
