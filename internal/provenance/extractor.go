package provenance

import (
	"context"
	"errors"
	"log/slog"

	"reconciler/internal/logging"
	"reconciler/internal/registry"
	"reconciler/internal/services"
)

const (
	// PlaceholderDocumentRef is recorded when the detail view carries no document reference.
	PlaceholderDocumentRef = "no download link invalid"
	// PlaceholderStatus is recorded when the status stays unreadable after the retry.
	PlaceholderStatus = "Status not found"
)

// Reader is the registry detail surface the extractor drives.
type Reader interface {
	OpenDetail(ctx context.Context, candidate registry.Candidate) (registry.DetailHandle, error)
	ExpandProvenance(ctx context.Context, handle registry.DetailHandle) error
	ReadStatus(ctx context.Context, handle registry.DetailHandle) (string, error)
	ReadDocumentRef(ctx context.Context, handle registry.DetailHandle) (string, bool, error)
	// Requery re-triggers the underlying detail query and blocks until the view settles.
	Requery(ctx context.Context, handle registry.DetailHandle) error
}

// Result is the provenance pair read from a candidate.
type Result struct {
	Status      string
	DocumentRef string
	// Retried is true when the stale-view retry was used.
	Retried bool
	// StatusPlaceholder and DocumentPlaceholder flag substituted values.
	StatusPlaceholder   bool
	DocumentPlaceholder bool
}

// Extractor reads status and document reference from a chosen candidate.
type Extractor struct {
	reader Reader
	logger *slog.Logger
}

// NewExtractor constructs an extractor over reader.
func NewExtractor(reader Reader, logger *slog.Logger) *Extractor {
	return &Extractor{reader: reader, logger: logging.NewComponentLogger(logger, "provenance")}
}

// Extract opens the candidate's detail view, expands provenance when it is not
// already expanded, and reads the document reference and status. A stale view
// is retried exactly once after a requery; a second stale read degrades to
// placeholders instead of failing. Other failures are returned to the caller.
func (e *Extractor) Extract(ctx context.Context, candidate registry.Candidate) (Result, error) {
	if e == nil || e.reader == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "provenance", "extract", "reader unavailable", nil)
	}
	logger := logging.WithContext(ctx, e.logger)

	handle, err := e.reader.OpenDetail(ctx, candidate)
	if err != nil {
		return Result{}, err
	}
	if err := e.ensureExpanded(ctx, handle); err != nil {
		return Result{}, err
	}

	result, err := e.read(ctx, handle)
	if errors.Is(err, services.ErrStaleView) {
		logger.Info("detail view stale; requerying once",
			logging.String("candidate", candidate.RawName),
			logging.String(logging.FieldEventType, "provenance_retry"),
		)
		if rqErr := e.reader.Requery(ctx, handle); rqErr != nil && !isSettleFailure(rqErr) {
			return Result{}, rqErr
		}
		var retryErr error
		result, retryErr = e.read(ctx, handle)
		result.Retried = true
		err = retryErr
		if errors.Is(err, services.ErrStaleView) {
			err = nil
			logging.WarnWithContext(logger, "detail view still stale after retry; using placeholders", "provenance_placeholder",
				logging.String("candidate", candidate.RawName),
				logging.String(logging.FieldImpact, "annotation carries placeholder provenance"),
				logging.String(logging.FieldErrorHint, "verify the record in the registry by hand"),
			)
		}
	}
	if err != nil {
		return Result{}, err
	}
	result.fill()
	logger.Debug("provenance extracted",
		logging.String("status", result.Status),
		logging.String("document_ref", result.DocumentRef),
		logging.Bool("retried", result.Retried),
	)
	return result, nil
}

func (e *Extractor) ensureExpanded(ctx context.Context, handle registry.DetailHandle) error {
	_, present, err := e.reader.ReadDocumentRef(ctx, handle)
	switch {
	case err == nil && present:
		return nil
	case err != nil && !errors.Is(err, services.ErrStaleView):
		return err
	}
	if err := e.reader.ExpandProvenance(ctx, handle); err != nil && !errors.Is(err, services.ErrStaleView) {
		return err
	}
	return nil
}

// read performs one full read. A stale failure returns whatever was read so far
// along with the stale error.
func (e *Extractor) read(ctx context.Context, handle registry.DetailHandle) (Result, error) {
	var result Result
	ref, present, err := e.reader.ReadDocumentRef(ctx, handle)
	if err != nil {
		return result, err
	}
	if present {
		result.DocumentRef = ref
	} else {
		result.DocumentRef = PlaceholderDocumentRef
		result.DocumentPlaceholder = true
	}
	status, err := e.reader.ReadStatus(ctx, handle)
	if err != nil {
		return result, err
	}
	result.Status = status
	return result, nil
}

func (r *Result) fill() {
	if r.DocumentRef == "" {
		r.DocumentRef = PlaceholderDocumentRef
		r.DocumentPlaceholder = true
	}
	if r.Status == "" {
		r.Status = PlaceholderStatus
		r.StatusPlaceholder = true
	}
}

func isSettleFailure(err error) bool {
	return errors.Is(err, services.ErrStaleView) || errors.Is(err, services.ErrTimeout)
}
