package extract

import (
	"errors"
	"fmt"
)

// Kind classifies extraction failures.
type Kind string

const (
	// KindInsufficientContent means no strategy yielded text at or above the
	// minimum length threshold.
	KindInsufficientContent Kind = "insufficient-content"
	// KindInvalidContent means the surface returned something that is not a
	// usable document (wrong shape, empty markup, undecodable payload).
	KindInvalidContent Kind = "invalid-content"
	// KindRestrictedAccess means in-page script execution was unavailable and
	// the host-mediated fetch could not retrieve the page either.
	KindRestrictedAccess Kind = "restricted-access"
)

// Error is an extraction failure with its classification.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("extract: %s: %s", e.Kind, e.URL)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an extraction Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == kind
}
