package metadata

import (
	"errors"
	"fmt"
)

// Fatal parse outcomes. Readers wrap these with context; test with errors.Is.
var (
	ErrNotFound          = errors.New("file not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTruncated         = errors.New("truncated")
	ErrCorruptEntry      = errors.New("corrupt entry")
)

// Failure classifies an error into the fatal taxonomy.
type Failure int

const (
	FailureUnknown Failure = iota
	FailureNotFound
	FailureAccessDenied
	FailureUnsupportedFormat
	FailureTruncated
	FailureCorruptEntry
)

func (f Failure) String() string {
	switch f {
	case FailureNotFound:
		return "not found"
	case FailureAccessDenied:
		return "access denied"
	case FailureUnsupportedFormat:
		return "unsupported format"
	case FailureTruncated:
		return "truncated"
	case FailureCorruptEntry:
		return "corrupt entry"
	default:
		return "unknown"
	}
}

// KindOf returns the failure class of err, or FailureUnknown when err wraps
// none of the sentinel errors.
func KindOf(err error) Failure {
	switch {
	case err == nil:
		return FailureUnknown
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrAccessDenied):
		return FailureAccessDenied
	case errors.Is(err, ErrUnsupportedFormat):
		return FailureUnsupportedFormat
	case errors.Is(err, ErrTruncated):
		return FailureTruncated
	case errors.Is(err, ErrCorruptEntry):
		return FailureCorruptEntry
	default:
		return FailureUnknown
	}
}

// ParseError is the failure value handed out by the cache for a path.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Kind reports the failure class of the wrapped error.
func (e *ParseError) Kind() Failure {
	return KindOf(e.Err)
}
