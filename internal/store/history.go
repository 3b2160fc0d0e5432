package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reconciler/internal/services"
)

// Run is one journaled run.
type Run struct {
	ID                  string
	StartedAt           time.Time
	FinishedAt          *time.Time
	StopReason          string
	RecordsProcessed    int
	ConsecutiveFailures int
	TotalFailures       int
}

// Finished reports whether the run recorded a stop reason.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// RunTotals are the values written when a run stops.
type RunTotals struct {
	StopReason          string
	RecordsProcessed    int
	ConsecutiveFailures int
	TotalFailures       int
}

// Report is one journaled resolution report.
type Report struct {
	ID                 int64
	RunID              string
	Key                string
	Position           int
	Tier               string
	Status             string
	DocumentRef        string
	MultipleCandidates bool
	Note               string
	Reused             bool
	Failed             bool
	FailedState        string
	ErrorKind          string
	ErrorMessage       string
	Duration           time.Duration
	CreatedAt          time.Time
}

const runColumns = "id, started_at, finished_at, stop_reason, records_processed, consecutive_failures, total_failures"

const reportColumns = "id, run_id, record_key, position, tier, status, document_ref, multiple_candidates, note, reused, failed, failed_state, error_kind, error_message, duration_ms, created_at"

// CreateRun journals the start of a run.
func (s *Store) CreateRun(ctx context.Context, id string, startedAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at) VALUES (?, ?)", id, timestamp(startedAt),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun journals the stop of a run.
func (s *Store) FinishRun(ctx context.Context, id string, totals RunTotals) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET finished_at = ?, stop_reason = ?, records_processed = ?, consecutive_failures = ?, total_failures = ?
         WHERE id = ?`,
		timestamp(time.Now()),
		totals.StopReason,
		totals.RecordsProcessed,
		totals.ConsecutiveFailures,
		totals.TotalFailures,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "finish run", id, nil)
	}
	return nil
}

// RecordReport appends a report to a run.
func (s *Store) RecordReport(ctx context.Context, report Report) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (
            run_id, record_key, position, tier, status, document_ref, multiple_candidates,
            note, reused, failed, failed_state, error_kind, error_message, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.Key,
		report.Position,
		nullableString(report.Tier),
		nullableString(report.Status),
		nullableString(report.DocumentRef),
		boolToInt(report.MultipleCandidates),
		nullableString(report.Note),
		boolToInt(report.Reused),
		boolToInt(report.Failed),
		nullableString(report.FailedState),
		nullableString(report.ErrorKind),
		nullableString(report.ErrorMessage),
		report.Duration.Milliseconds(),
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by id. A missing run yields ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, services.Wrap(services.ErrNotFound, "store", "get run", id, nil)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListReports returns a run's reports in the order they were recorded.
func (s *Store) ListReports(ctx context.Context, runID string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanRun(row interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		stopReason  sql.NullString
	)
	if err := row.Scan(&run.ID, &startedRaw, &finishedRaw, &stopReason,
		&run.RecordsProcessed, &run.ConsecutiveFailures, &run.TotalFailures); err != nil {
		return Run{}, err
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	run.FinishedAt = optionalTime(finishedRaw)
	run.StopReason = stopReason.String
	return run, nil
}

func scanReport(row interface{ Scan(dest ...any) error }) (Report, error) {
	var (
		report      Report
		tier        sql.NullString
		status      sql.NullString
		documentRef sql.NullString
		multiple    int
		note        sql.NullString
		reused      int
		failed      int
		failedState sql.NullString
		errorKind   sql.NullString
		errorMsg    sql.NullString
		durationMS  int64
		createdRaw  string
	)
	if err := row.Scan(&report.ID, &report.RunID, &report.Key, &report.Position, &tier, &status,
		&documentRef, &multiple, &note, &reused, &failed, &failedState, &errorKind, &errorMsg,
		&durationMS, &createdRaw); err != nil {
		return Report{}, err
	}
	report.Tier = tier.String
	report.Status = status.String
	report.DocumentRef = documentRef.String
	report.MultipleCandidates = multiple != 0
	report.Note = note.String
	report.Reused = reused != 0
	report.Failed = failed != 0
	report.FailedState = failedState.String
	report.ErrorKind = errorKind.String
	report.ErrorMessage = errorMsg.String
	report.Duration = time.Duration(durationMS) * time.Millisecond
	if created, err := parseTimeString(createdRaw); err == nil {
		report.CreatedAt = created
	}
	return report, nil
}
