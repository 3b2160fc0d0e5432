package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	recordKeyKey contextKey = "record_key"
	stateKey     contextKey = "state"
	positionKey  contextKey = "position"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRecordKey annotates context with the key of the record block in flight.
func WithRecordKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, recordKeyKey, key)
}

// RecordKeyFromContext returns the record key if present.
func RecordKeyFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recordKeyKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithState annotates context with the controller state name.
func WithState(ctx context.Context, state string) context.Context {
	if state == "" {
		return ctx
	}
	return context.WithValue(ctx, stateKey, state)
}

// StateFromContext returns the controller state name if present.
func StateFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stateKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPosition annotates context with the source position of the block head.
func WithPosition(ctx context.Context, position int) context.Context {
	return context.WithValue(ctx, positionKey, position)
}

// PositionFromContext extracts the source position if present.
func PositionFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(positionKey).(int)
	return v, ok
}
