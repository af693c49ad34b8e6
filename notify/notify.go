// Package notify defines the status-notification surfaces the coordinator
// and the extraction pipeline report through.
//
// Implementations deliver to different backends: the consumer panel (SSE),
// the page the user is viewing (injected toast), or the process log. One
// sink error never blocks the others.
package notify

import (
	"context"
	"time"
)

// Severity distinguishes success/neutral notices from failures, and marks
// long-running "processing" notices that a terminal outcome replaces.
type Severity string

const (
	SeverityInfo       Severity = "info"
	SeveritySuccess    Severity = "success"
	SeverityProcessing Severity = "processing"
	SeverityError      Severity = "error"
)

// Surface identifies where a notification is shown.
type Surface int

const (
	// SurfacePanel is the consumer panel.
	SurfacePanel Surface = iota
	// SurfacePage is the page the user is viewing.
	SurfacePage
)

// Notification is one transient status notice.
type Notification struct {
	Message  string        `json:"message"`
	Severity Severity      `json:"severity"`
	// Duration is how long the notice stays visible. Zero means sticky:
	// a sticky processing notice stays until the next notice on the same
	// surface supersedes it. Surfaces swap, they never stack.
	Duration time.Duration `json:"duration"`
	// Replace keys a notice to the processing notice it supersedes, for
	// surfaces that support targeted replacement.
	Replace string `json:"replace,omitempty"`
}

// Sink delivers notifications and activity-count updates.
type Sink interface {
	// Status shows a transient notice on the given surface.
	Status(ctx context.Context, surface Surface, n Notification) error
	// Badge sets the activity-count indicator. Zero clears it.
	Badge(ctx context.Context, count int) error
	Close() error
}
