package notify

import (
	"context"
	"log/slog"
)

// Log writes every notification to the process log. It is always wired so
// status traffic is observable even with no panel connected.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging sink.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Status(_ context.Context, surface Surface, n Notification) error {
	target := "panel"
	if surface == SurfacePage {
		target = "page"
	}
	l.logger.Info("status",
		"target", target,
		"severity", string(n.Severity),
		"message", n.Message)
	return nil
}

func (l *Log) Badge(_ context.Context, count int) error {
	l.logger.Debug("badge", "count", count)
	return nil
}

func (l *Log) Close() error { return nil }
