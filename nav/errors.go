package nav

import (
	"context"
	"errors"
	"strings"
)

// ErrorCode classifies navigation failures.
type ErrorCode string

const (
	// CodeAborted marks user-initiated or superseded navigations. These are
	// expected during fast re-navigation and are never reported.
	CodeAborted ErrorCode = "aborted"
	// CodeTimeout marks loads that exceeded the hard timeout without a
	// completion signal.
	CodeTimeout ErrorCode = "timeout"
	// CodeLoadFailed marks genuine load failures (DNS, connection, bad
	// response).
	CodeLoadFailed ErrorCode = "load-failed"
)

// ErrorView is the recoverable inline error rendered on a failed load.
type ErrorView struct {
	Code    ErrorCode `json:"code"`
	URL     string    `json:"url"`
	Message string    `json:"message"`
}

func (e *ErrorView) Error() string {
	return "nav: " + string(e.Code) + ": " + e.Message
}

// classify maps a surface error to an ErrorCode. Chrome reports user or
// programmatic cancellation as ERR_ABORTED; context cancellation means the
// session was superseded.
func classify(err error) ErrorCode {
	if errors.Is(err, context.Canceled) {
		return CodeAborted
	}
	msg := err.Error()
	for _, probe := range []string{"ERR_ABORTED", "net::ERR_ABORTED", "navigation canceled"} {
		if strings.Contains(msg, probe) {
			return CodeAborted
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeLoadFailed
}
