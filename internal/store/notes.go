package store

import (
	"context"
	"fmt"
	"time"

	"reconciler/internal/scanner"
	"reconciler/internal/services"
)

// WriteNote stages text for the record. A later WriteNote replaces the staged text.
func (s *Store) WriteNote(ctx context.Context, record scanner.Record, text string) error {
	return s.touch(ctx, "write note", "UPDATE records SET staged_note = ? WHERE id = ?", text, record.ID)
}

// Commit appends the staged note to any existing note, newline separated, and
// stamps committed_at. Committing without a staged note fails.
func (s *Store) Commit(ctx context.Context, record scanner.Record) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records
         SET note = CASE WHEN note IS NULL OR note = '' THEN staged_note ELSE note || char(10) || staged_note END,
             staged_note = NULL,
             committed_at = ?
         WHERE id = ? AND staged_note IS NOT NULL`,
		timestamp(time.Now()),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("commit note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit note: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "store", "commit", fmt.Sprintf("record %d has no staged note", record.ID), nil)
	}
	return nil
}
