package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"reconciler/internal/scanner"
	"reconciler/internal/services"
)

// Record is a row of the record table as shown by listings.
type Record struct {
	ID          int64
	Position    int
	Key         string
	Resolved    bool
	Note        string
	OpenedAt    *time.Time
	CommittedAt *time.Time
	CreatedAt   time.Time
}

const recordColumns = "id, position, record_key, resolved, note, opened_at, committed_at, created_at"

func scanRecord(row interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec        Record
		resolved   int
		note       sql.NullString
		openedRaw  sql.NullString
		commitRaw  sql.NullString
		createdRaw sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Position, &rec.Key, &resolved, &note, &openedRaw, &commitRaw, &createdRaw); err != nil {
		return Record{}, err
	}
	rec.Resolved = resolved != 0
	rec.Note = note.String
	rec.OpenedAt = optionalTime(openedRaw)
	rec.CommittedAt = optionalTime(commitRaw)
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	return rec, nil
}

// ImportRecords appends one row per non-blank key after the current last position.
// It returns the number of rows inserted.
func (s *Store) ImportRecords(ctx context.Context, keys []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM records").Scan(&next); err != nil {
		return 0, fmt.Errorf("read next position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO records (position, record_key, created_at) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	now := timestamp(time.Now())
	inserted := 0
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, next, key, now); err != nil {
			return 0, fmt.Errorf("insert record %q: %w", key, err)
		}
		next++
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

// ListRecords returns every record in position order.
func (s *Store) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRecord fetches a record by id. A missing record yields ErrNotFound.
func (s *Store) GetRecord(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, services.Wrap(services.ErrNotFound, "store", "get record", fmt.Sprintf("id %d", id), nil)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Counts reports the total and resolved record counts.
func (s *Store) Counts(ctx context.Context) (total, resolved int, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COALESCE(SUM(resolved), 0) FROM records",
	).Scan(&total, &resolved)
	if err != nil {
		return 0, 0, fmt.Errorf("count records: %w", err)
	}
	return total, resolved, nil
}

// ResetResolved clears every resolved flag so the next run starts from the top.
func (s *Store) ResetResolved(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE records SET resolved = 0 WHERE resolved = 1")
	if err != nil {
		return 0, fmt.Errorf("reset resolved: %w", err)
	}
	return res.RowsAffected()
}

// ListFrom returns rows at or after position in ascending position order.
func (s *Store) ListFrom(ctx context.Context, position int) ([]scanner.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, position, resolved FROM records WHERE position >= ? ORDER BY position",
		position,
	)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var out []scanner.Row
	for rows.Next() {
		var (
			row      scanner.Row
			resolved int
		)
		if err := rows.Scan(&row.ID, &row.Position, &resolved); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.Resolved = resolved != 0
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReadKey reads the key field of row.
func (s *Store) ReadKey(ctx context.Context, row scanner.Row) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, "SELECT record_key FROM records WHERE id = ?", row.ID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", services.Wrap(services.ErrNotFound, "store", "read key", fmt.Sprintf("id %d", row.ID), nil)
	}
	if err != nil {
		return "", fmt.Errorf("read key: %w", err)
	}
	return key, nil
}

// MarkResolved sets the resolved flag on row.
func (s *Store) MarkResolved(ctx context.Context, row scanner.Row) error {
	return s.touch(ctx, "mark resolved", "UPDATE records SET resolved = 1 WHERE id = ?", row.ID)
}

// Open stamps the row as the one being worked on.
func (s *Store) Open(ctx context.Context, row scanner.Row) error {
	return s.touch(ctx, "open", "UPDATE records SET opened_at = ? WHERE id = ?", timestamp(time.Now()), row.ID)
}

func (s *Store) touch(ctx context.Context, operation, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", operation, fmt.Sprintf("id %v", args[len(args)-1]), nil)
	}
	return nil
}
