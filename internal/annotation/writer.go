package annotation

import (
	"context"
	"log/slog"
	"strings"

	"reconciler/internal/logging"
	"reconciler/internal/scanner"
	"reconciler/internal/services"
)

// Sink is the record's note facility.
type Sink interface {
	WriteNote(ctx context.Context, record scanner.Record, text string) error
	Commit(ctx context.Context, record scanner.Record) error
}

// Writer commits outcomes onto their originating records.
type Writer struct {
	sink   Sink
	logger *slog.Logger
}

// NewWriter constructs a writer over sink.
func NewWriter(sink Sink, logger *slog.Logger) *Writer {
	return &Writer{sink: sink, logger: logging.NewComponentLogger(logger, "annotation")}
}

// Write stages the outcome note on record and commits it. Any failure is
// tagged services.ErrAnnotation.
func (w *Writer) Write(ctx context.Context, record scanner.Record, outcome Outcome) error {
	if w == nil || w.sink == nil {
		return services.Wrap(services.ErrAnnotation, "annotation", "write", "sink unavailable", nil)
	}
	note := strings.TrimSpace(outcome.Note)
	if note == "" {
		return services.Wrap(services.ErrAnnotation, "annotation", "write", "empty note", nil)
	}
	if err := w.sink.WriteNote(ctx, record, note); err != nil {
		return services.Wrap(services.ErrAnnotation, "annotation", "write_note", record.Key, err)
	}
	if err := w.sink.Commit(ctx, record); err != nil {
		return services.Wrap(services.ErrAnnotation, "annotation", "commit", record.Key, err)
	}
	logging.WithContext(ctx, w.logger).Info("annotation committed",
		logging.Int(logging.FieldPosition, record.Position),
		logging.Bool("multiple_candidates", outcome.MultipleCandidates),
		logging.String(logging.FieldEventType, "annotation_committed"),
	)
	return nil
}
