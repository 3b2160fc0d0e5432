package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reconciler/internal/logging"
	"reconciler/internal/services"
)

// Row is one positional row of the record source.
type Row struct {
	ID       int64
	Position int
	Resolved bool
}

// Record is a row paired with its key.
type Record struct {
	Row
	Key string
}

// Source is the tabular record source.
type Source interface {
	// ListFrom returns rows with position >= position in ascending position order.
	ListFrom(ctx context.Context, position int) ([]Row, error)
	ReadKey(ctx context.Context, row Row) (string, error)
	MarkResolved(ctx context.Context, row Row) error
	// Open begins interactive work on row.
	Open(ctx context.Context, row Row) error
}

// Checkpoint is the in-memory resume point of a run.
type Checkpoint struct {
	LastResolvedKey string
	NextPosition    int
	// NextKey is the key expected at NextPosition; empty when the table ended.
	NextKey string
}

// Block is a run of contiguous rows sharing one key.
type Block struct {
	Key     string
	Records []Record
}

// Empty reports whether the scan found nothing left to process.
func (b Block) Empty() bool {
	return len(b.Records) == 0
}

// Head is the first record of the block, the one that receives the annotation.
func (b Block) Head() Record {
	if len(b.Records) == 0 {
		return Record{}
	}
	return b.Records[0]
}

// Scanner reads the next block of unresolved same-key rows.
type Scanner struct {
	source Source
	logger *slog.Logger
}

// New constructs a scanner over source.
func New(source Source, logger *slog.Logger) *Scanner {
	return &Scanner{source: source, logger: logging.NewComponentLogger(logger, "scanner")}
}

// Next returns the block starting at the checkpoint and the checkpoint that
// points past it. Keys are read for the whole block before any row is marked,
// and rows are marked resolved from the tail back to the head. A failed mark
// leaves the head unresolved, so the retry regroups the same block and a block
// is never split. An empty block means the source is exhausted and the
// returned checkpoint is cp unchanged.
func (s *Scanner) Next(ctx context.Context, cp Checkpoint) (Block, Checkpoint, error) {
	rows, err := s.rowsFrom(ctx, cp)
	if err != nil {
		return Block{}, cp, err
	}

	start := -1
	for idx, row := range rows {
		if !row.Resolved {
			start = idx
			break
		}
	}
	if start < 0 {
		return Block{}, cp, nil
	}

	var block Block
	next := cp
	next.NextKey = ""
	for idx := start; idx < len(rows); idx++ {
		row := rows[idx]
		key, err := s.source.ReadKey(ctx, row)
		if err != nil {
			return Block{}, cp, services.Wrap(services.ErrTransient, "scanner", "read_key", "", err)
		}
		if idx == start {
			block.Key = key
		} else if key != block.Key {
			next.NextKey = key
			break
		}
		block.Records = append(block.Records, Record{Row: row, Key: key})
		next.NextPosition = row.Position + 1
	}

	for idx := len(block.Records) - 1; idx >= 0; idx-- {
		record := &block.Records[idx]
		if record.Resolved {
			continue
		}
		if err := s.source.MarkResolved(ctx, record.Row); err != nil {
			return Block{}, cp, services.Wrap(services.ErrTransient, "scanner", "mark_resolved",
				fmt.Sprintf("position %d", record.Position), err)
		}
		record.Resolved = true
	}
	next.LastResolvedKey = block.Key

	logging.WithContext(ctx, s.logger).Debug("block scanned",
		logging.String(logging.FieldRecordKey, block.Key),
		logging.Int("rows", len(block.Records)),
		logging.Int("next_position", next.NextPosition),
		logging.String("next_key", next.NextKey),
	)
	return block, next, nil
}

// rowsFrom lists rows from the checkpoint. When the row at NextPosition no
// longer carries NextKey the table has shifted, and the scan relocates to the
// first unresolved row holding NextKey, falling back to NextPosition.
func (s *Scanner) rowsFrom(ctx context.Context, cp Checkpoint) ([]Row, error) {
	rows, err := s.source.ListFrom(ctx, cp.NextPosition)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scanner", "list", "", err)
	}
	if strings.TrimSpace(cp.NextKey) == "" || len(rows) == 0 {
		return rows, nil
	}
	key, err := s.source.ReadKey(ctx, rows[0])
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scanner", "read_key", "", err)
	}
	if key == cp.NextKey {
		return rows, nil
	}

	all, err := s.source.ListFrom(ctx, 0)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scanner", "list", "", err)
	}
	for idx, row := range all {
		if row.Resolved {
			continue
		}
		candidate, err := s.source.ReadKey(ctx, row)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "scanner", "read_key", "", err)
		}
		if candidate == cp.NextKey {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "expected key moved; relocating scan", "scan_relocated",
				logging.String("expected_key", cp.NextKey),
				logging.Int("expected_position", cp.NextPosition),
				logging.Int("found_position", row.Position),
				logging.String(logging.FieldImpact, "scan resumes at the relocated row"),
				logging.String(logging.FieldErrorHint, "avoid reordering the record table during a run"),
			)
			return all[idx:], nil
		}
	}
	return rows, nil
}
