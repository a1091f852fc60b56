package fetch

import (
	"fmt"
	"net/http"
)

// Kind classifies a fetch failure. The kind is decided once at the
// transport boundary and carried through the retry loop and the stage
// executor's error routing.
type Kind int

const (
	// KindTransient marks a recoverable transport fault (timeout,
	// connection error). Transient failures are retried up to the
	// configured bound.
	KindTransient Kind = iota + 1
	// KindDefinitive marks a well-formed protocol-level error response
	// (non-2xx status). Definitive failures are never retried; they are
	// routed to the stage's error handler.
	KindDefinitive
	// KindFatal marks an unrecoverable failure, such as exhausting all
	// retry attempts. Fatal failures abort the run.
	KindFatal
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindDefinitive:
		return "definitive"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a fetch failure tagged with its kind. Definitive errors carry
// the HTTP status code of the response.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s fetch failure for %s: status %d", e.Kind, e.URL, e.Status)
	}
	return fmt.Sprintf("%s fetch failure for %s: %v", e.Kind, e.URL, e.Err)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports whether this is a definitive "resource is gone"
// failure, the class the default error handler prunes instead of
// aborting the run.
func (e *Error) NotFound() bool {
	return e.Kind == KindDefinitive &&
		(e.Status == http.StatusNotFound || e.Status == http.StatusGone)
}
