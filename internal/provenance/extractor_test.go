package provenance

import (
	"context"
	"errors"
	"testing"

	"reconciler/internal/logging"
	"reconciler/internal/registry"
	"reconciler/internal/services"
)

var errStale = services.Wrap(services.ErrStaleView, "registry", "read_status", "returned 409", nil)

type fakeReader struct {
	openErr      error
	expanded     bool
	docRef       string
	statuses     []string
	statusErrs   []error
	requeryErr   error
	expandCalls  int
	requeryCalls int
	statusCalls  int
}

func (f *fakeReader) OpenDetail(_ context.Context, c registry.Candidate) (registry.DetailHandle, error) {
	if f.openErr != nil {
		return registry.DetailHandle{}, f.openErr
	}
	return registry.DetailHandle{ID: c.Handle, Name: c.RawName}, nil
}

func (f *fakeReader) ExpandProvenance(context.Context, registry.DetailHandle) error {
	f.expandCalls++
	f.expanded = true
	return nil
}

func (f *fakeReader) ReadStatus(context.Context, registry.DetailHandle) (string, error) {
	idx := f.statusCalls
	f.statusCalls++
	if idx < len(f.statusErrs) && f.statusErrs[idx] != nil {
		return "", f.statusErrs[idx]
	}
	if idx < len(f.statuses) {
		return f.statuses[idx], nil
	}
	return f.statuses[len(f.statuses)-1], nil
}

func (f *fakeReader) ReadDocumentRef(context.Context, registry.DetailHandle) (string, bool, error) {
	if !f.expanded || f.docRef == "" {
		return "", false, nil
	}
	return f.docRef, true, nil
}

func (f *fakeReader) Requery(context.Context, registry.DetailHandle) error {
	f.requeryCalls++
	return f.requeryErr
}

func acme() registry.Candidate {
	return registry.Candidate{RawName: "Acme LLC", NormalizedName: "acme llc", Handle: "1"}
}

func TestExtractExpandsWhenNeeded(t *testing.T) {
	reader := &fakeReader{docRef: "https://docs/1.pdf", statuses: []string{"Active"}}
	result, err := NewExtractor(reader, logging.NewNop()).Extract(context.Background(), acme())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if reader.expandCalls != 1 {
		t.Fatalf("expected one expansion, got %d", reader.expandCalls)
	}
	if result.Status != "Active" || result.DocumentRef != "https://docs/1.pdf" || result.Retried {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestExtractSkipsExpansionWhenAlreadyExpanded(t *testing.T) {
	reader := &fakeReader{expanded: true, docRef: "https://docs/1.pdf", statuses: []string{"Active"}}
	if _, err := NewExtractor(reader, nil).Extract(context.Background(), acme()); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if reader.expandCalls != 0 {
		t.Fatalf("expected expansion skipped, got %d calls", reader.expandCalls)
	}
}

func TestExtractMissingDocumentRefUsesPlaceholder(t *testing.T) {
	reader := &fakeReader{statuses: []string{"Dissolved"}}
	result, err := NewExtractor(reader, nil).Extract(context.Background(), acme())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if result.DocumentRef != PlaceholderDocumentRef || !result.DocumentPlaceholder {
		t.Fatalf("expected document placeholder, got %+v", result)
	}
	if result.Status != "Dissolved" {
		t.Fatalf("expected real status, got %q", result.Status)
	}
}

func TestExtractStaleOnceThenSucceeds(t *testing.T) {
	reader := &fakeReader{
		docRef:     "https://docs/1.pdf",
		statuses:   []string{"", "Active"},
		statusErrs: []error{errStale, nil},
	}
	result, err := NewExtractor(reader, nil).Extract(context.Background(), acme())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if reader.requeryCalls != 1 {
		t.Fatalf("expected exactly one requery, got %d", reader.requeryCalls)
	}
	if result.Status != "Active" || result.DocumentRef != "https://docs/1.pdf" {
		t.Fatalf("expected real provenance after retry, got %+v", result)
	}
	if result.StatusPlaceholder || result.DocumentPlaceholder || !result.Retried {
		t.Fatalf("unexpected flags: %+v", result)
	}
}

func TestExtractStaleTwiceDegradesToPlaceholder(t *testing.T) {
	reader := &fakeReader{
		docRef:     "https://docs/1.pdf",
		statuses:   []string{""},
		statusErrs: []error{errStale, errStale, errStale},
	}
	result, err := NewExtractor(reader, nil).Extract(context.Background(), acme())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if reader.requeryCalls != 1 || reader.statusCalls != 2 {
		t.Fatalf("expected at most one retry, got requery=%d status reads=%d", reader.requeryCalls, reader.statusCalls)
	}
	if result.Status != PlaceholderStatus || !result.StatusPlaceholder {
		t.Fatalf("expected status placeholder, got %+v", result)
	}
	if result.DocumentRef != "https://docs/1.pdf" {
		t.Fatalf("expected document ref preserved, got %q", result.DocumentRef)
	}
}

func TestExtractRequeryTimeoutStillRetriesRead(t *testing.T) {
	reader := &fakeReader{
		docRef:     "https://docs/1.pdf",
		statuses:   []string{"", "Active"},
		statusErrs: []error{errStale, nil},
		requeryErr: services.Wrap(services.ErrTimeout, "session", "wait", "", nil),
	}
	result, err := NewExtractor(reader, nil).Extract(context.Background(), acme())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if result.Status != "Active" {
		t.Fatalf("expected status from retried read, got %+v", result)
	}
}

func TestExtractPropagatesUnavailable(t *testing.T) {
	unavailable := services.Wrap(services.ErrLookupUnavailable, "registry", "read_status", "returned 503", nil)
	reader := &fakeReader{statuses: []string{""}, statusErrs: []error{unavailable}}
	_, err := NewExtractor(reader, nil).Extract(context.Background(), acme())
	if !errors.Is(err, services.ErrLookupUnavailable) {
		t.Fatalf("expected lookup unavailable, got %v", err)
	}
	if reader.requeryCalls != 0 {
		t.Fatal("non-stale failures must not trigger the retry")
	}
}

func TestExtractPropagatesOpenFailure(t *testing.T) {
	gone := services.Wrap(services.ErrNotFound, "registry", "open_detail", "returned 404", nil)
	_, err := NewExtractor(&fakeReader{openErr: gone}, nil).Extract(context.Background(), acme())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
