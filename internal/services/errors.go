package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLookupUnavailable = errors.New("lookup unavailable")
	ErrStaleView         = errors.New("stale view")
	ErrAnnotation        = errors.New("annotation failure")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
	ErrTransient         = errors.New("transient failure")
)

// ErrorKind is the short classification recorded on reports and log lines.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindLookupUnavailable ErrorKind = "lookup_unavailable"
	KindStaleView         ErrorKind = "stale_view"
	KindAnnotation        ErrorKind = "annotation"
	KindValidation        ErrorKind = "validation"
	KindConfiguration     ErrorKind = "configuration"
	KindNotFound          ErrorKind = "not_found"
	KindTimeout           ErrorKind = "timeout"
	KindTransient         ErrorKind = "transient"
)

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error onto its marker classification. Unmarked errors are transient.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrLookupUnavailable):
		return KindLookupUnavailable
	case errors.Is(err, ErrStaleView):
		return KindStaleView
	case errors.Is(err, ErrAnnotation):
		return KindAnnotation
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindTransient
	}
}

// IsMarked reports whether err already carries one of the sentinel markers.
func IsMarked(err error) bool {
	for _, marker := range markers {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

var markers = []error{
	ErrLookupUnavailable,
	ErrStaleView,
	ErrAnnotation,
	ErrValidation,
	ErrConfiguration,
	ErrNotFound,
	ErrTimeout,
	ErrTransient,
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
