package runner

import (
	"context"
	"sync"

	"reconciler/internal/reconcile"
	"reconciler/internal/services"
	"reconciler/internal/store"
)

// journal records each resolution report in the run history.
type journal struct {
	store *store.Store
	runID string

	mu      sync.Mutex
	lastErr string
}

func newJournal(st *store.Store, runID string) *journal {
	return &journal{store: st, runID: runID}
}

func (j *journal) RecordReport(ctx context.Context, report reconcile.ResolutionReport) error {
	row := store.Report{
		RunID:              j.runID,
		Key:                report.Key,
		Position:           report.Position,
		Tier:               string(report.Tier),
		Status:             report.Outcome.Status,
		DocumentRef:        report.Outcome.DocumentRef,
		MultipleCandidates: report.Outcome.MultipleCandidates,
		Note:               report.Outcome.Note,
		Reused:             report.Reused,
		Failed:             report.Failed,
		FailedState:        string(report.FailedState),
		Duration:           report.Duration,
	}
	if report.Err != nil {
		row.ErrorKind = string(services.Kind(report.Err))
		row.ErrorMessage = report.Err.Error()
		j.mu.Lock()
		j.lastErr = row.ErrorMessage
		j.mu.Unlock()
	}
	return j.store.RecordReport(ctx, row)
}

func (j *journal) lastError() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}
