package nav

import (
	"context"
	"time"
)

// Status is the lifecycle state of a navigation session.
type Status int

const (
	StatusIdle Status = iota
	StatusNavigating
	StatusLoaded
	StatusTimedOut
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusNavigating:
		return "navigating"
	case StatusLoaded:
		return "loaded"
	case StatusTimedOut:
		return "timed-out"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// session is the single-owner state for one navigation. A new navigation
// replaces the controller's session wholesale; the old session's context is
// cancelled, so its pending detectors become no-ops structurally rather than
// by flag-checking.
type session struct {
	id         string
	targetURL  string
	status     Status
	startedAt  time.Time
	retryCount int
	title      string
	finalURL   string

	gen    uint64
	cancel context.CancelFunc
}

// Session is the externally visible snapshot of a navigation session.
type Session struct {
	ID         string    `json:"id"`
	TargetURL  string    `json:"target_url"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	RetryCount int       `json:"retry_count"`
	Title      string    `json:"title,omitempty"`
	FinalURL   string    `json:"final_url,omitempty"`
}

func (s *session) snapshot() *Session {
	return &Session{
		ID:         s.id,
		TargetURL:  s.targetURL,
		Status:     s.status,
		StartedAt:  s.startedAt,
		RetryCount: s.retryCount,
		Title:      s.title,
		FinalURL:   s.finalURL,
	}
}

// HistoryEntry records one completed load.
type HistoryEntry struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}
