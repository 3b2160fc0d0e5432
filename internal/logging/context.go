package logging

import (
	"context"
	"log/slog"

	"reconciler/internal/services"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldRecordKey is the structured logging key for the record key in flight.
	FieldRecordKey = "record_key"
	// FieldState is the structured logging key for controller state names.
	FieldState = "state"
	// FieldPosition is the structured logging key for source positions.
	FieldPosition = "position"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldErrorKind records the services.ErrorKind of a failure.
	FieldErrorKind = "error_kind"
	// FieldImpact describes the consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the decision being logged.
	FieldDecisionType = "decision_type"
	// FieldDecisionResult holds the decision outcome.
	FieldDecisionResult = "decision_result"
	// FieldDecisionReason explains the decision outcome.
	FieldDecisionReason = "decision_reason"
	// FieldDecisionSelected is the raw name of the candidate a decision picked.
	FieldDecisionSelected = "decision_selected"
	// FieldCandidates counts the registry candidates a decision considered.
	FieldCandidates = "decision_candidates"
	// FieldMatchScore is the tier-specific similarity score of the selection.
	FieldMatchScore = "score"
	// FieldStopReason is why a run ended.
	FieldStopReason = "stop_reason"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if key, ok := services.RecordKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRecordKey, key))
	}
	if state, ok := services.StateFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldState, state))
	}
	if pos, ok := services.PositionFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldPosition, pos))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
