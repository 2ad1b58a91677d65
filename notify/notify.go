// Package notify is the outbound notification sink. The capture core only
// calls it; display belongs to whoever owns the UI.
package notify

import "log/slog"

// Level grades a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notifier receives user-facing messages.
type Notifier interface {
	Show(message string, level Level)
}

// Log is a Notifier that writes to a structured logger. It is the default
// sink when no UI is attached.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging Notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Show(message string, level Level) {
	switch level {
	case LevelError:
		l.logger.Error("notify: " + message)
	case LevelWarn:
		l.logger.Warn("notify: " + message)
	default:
		l.logger.Info("notify: " + message)
	}
}
