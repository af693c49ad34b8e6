package notify

import (
	"context"
	"log/slog"
)

// Router fans out notifications to all configured sinks. One sink error
// does not block the others — errors are logged and the first encountered
// is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Status(ctx context.Context, surface Surface, n Notification) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Status(ctx, surface, n); err != nil {
			r.logger.Warn("notify: status failed", "surface", int(surface), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Badge(ctx context.Context, count int) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Badge(ctx, count); err != nil {
			r.logger.Warn("notify: badge failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
