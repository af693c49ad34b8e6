// Package extract orchestrates image-to-phone-number extraction: resolve
// access to the image source, submit it to the vision model, and apply the
// one-shot alternate-channel retry when the model cannot fetch a
// public-looking URL that a direct download can still reach.
//
// Each attempt is an explicit state machine
// (Resolving → Extracting → RetryingAlternateChannel? → Done | Failed)
// rather than nested error handlers, which keeps the one-retry-only rule
// enforceable in isolation.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickwhats/quickwhats/imagefetch"
	"github.com/quickwhats/quickwhats/notify"
	"github.com/quickwhats/quickwhats/vision"
)

// State tracks an attempt through the pipeline.
type State int

const (
	StateResolving State = iota
	StateExtracting
	StateRetryingAlternateChannel
	StateDone
	StateFailed
)

// Attempt is the ephemeral record of one extraction. Not persisted.
type Attempt struct {
	ID        string
	SourceURI string
	Access    imagefetch.Access
	Channel   imagefetch.Channel
	State     State
	Numbers   []string
	Err       error
}

// Extractor is the vision client surface the pipeline needs.
type Extractor interface {
	Extract(ctx context.Context, imageRef string) ([]string, error)
}

// Producer receives successful detections. The detection coordinator
// implements it.
type Producer interface {
	ProducerEvent(ctx context.Context, numbers []string, source string, interactive bool) error
}

// Pipeline composes the access resolver and the vision client.
type Pipeline struct {
	resolver  *imagefetch.Resolver
	extractor Extractor
	producer  Producer
	sinks     notify.Sink
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline.
func New(resolver *imagefetch.Resolver, extractor Extractor, producer Producer, sinks notify.Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:  resolver,
		extractor: extractor,
		producer:  producer,
		sinks:     sinks,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

const errorToastDuration = 8 * time.Second

// ExtractFromImage runs one extraction attempt for src. sourceTag is the
// provenance recorded with a successful detection (page hostname, or
// "image" for image-only contexts). delegate, when non-nil, fetches
// restricted sources inside the originating page. The returned Attempt is
// terminal: StateDone or StateFailed.
//
// The attempt has no deadline of its own beyond the transports'; a result
// arriving after a newer detection simply supersedes it (last-write-wins).
func (p *Pipeline) ExtractFromImage(ctx context.Context, src, sourceTag string, delegate imagefetch.Delegate) *Attempt {
	a := &Attempt{
		ID:        uuid.NewString(),
		SourceURI: src,
		State:     StateResolving,
	}

	p.status(ctx, notify.SurfacePanel, "Image processing started...", notify.SeverityProcessing, 0, a.ID)
	p.status(ctx, notify.SurfacePage, "Image processing started...", notify.SeverityInfo, 0, a.ID)

	res, err := p.resolver.Resolve(ctx, src, delegate)
	a.Access = res.Access
	a.Channel = res.Channel
	if err != nil {
		return p.fail(ctx, a, err, resolveFailureMessage(err, delegate != nil))
	}

	a.State = StateExtracting
	numbers, err := p.extractor.Extract(ctx, res.Ref)

	if err != nil && p.shouldRetry(a, err) {
		a.State = StateRetryingAlternateChannel
		a.Channel = imagefetch.ChannelDirect
		p.logger.Info("extract: model rejected image URL, retrying with downloaded bytes",
			"attempt", a.ID, "src", src)
		p.status(ctx, notify.SurfacePanel,
			"Image URL not accessible, attempting to download...",
			notify.SeverityInfo, 3*time.Second, a.ID)

		ref, dlErr := p.resolver.Download(ctx, src)
		if dlErr != nil {
			p.logger.Warn("extract: fallback download failed", "attempt", a.ID, "error", dlErr)
			return p.fail(ctx, a, dlErr,
				"Both direct access and download failed. Image may not be accessible.")
		}
		numbers, err = p.extractor.Extract(ctx, ref)
	}

	if err != nil {
		return p.fail(ctx, a, err, vision.Message(err))
	}

	a.State = StateDone
	a.Numbers = numbers

	if len(numbers) == 0 {
		// A clean reply with nothing in it is a neutral outcome, not a
		// failure.
		p.status(ctx, notify.SurfacePanel, "No phone numbers detected", notify.SeverityInfo, 3*time.Second, a.ID)
		p.status(ctx, notify.SurfacePage, "No phone numbers detected", notify.SeverityInfo, 3*time.Second, a.ID)
		return a
	}

	p.logger.Info("extract: numbers detected", "attempt", a.ID, "count", len(numbers), "source", sourceTag)
	if err := p.producer.ProducerEvent(ctx, numbers, sourceTag, false); err != nil {
		p.logger.Warn("extract: deliver detection", "attempt", a.ID, "error", err)
	}
	p.status(ctx, notify.SurfacePage, imageDetectionMessage(len(numbers)), notify.SeveritySuccess, 3*time.Second, a.ID)
	return a
}

// shouldRetry applies the one-retry rule: only when the model itself could
// not retrieve the URL, only for sources classified open (restricted ones
// already went through the protected-domain path), and never for in-memory
// data that has no URL to re-download.
func (p *Pipeline) shouldRetry(a *Attempt, err error) bool {
	if a.State != StateExtracting {
		return false
	}
	return errors.Is(err, vision.ErrBadImage) &&
		a.Access == imagefetch.AccessOpen &&
		!strings.HasPrefix(a.SourceURI, "data:")
}

func (p *Pipeline) fail(ctx context.Context, a *Attempt, err error, userMessage string) *Attempt {
	a.State = StateFailed
	a.Err = err
	p.logger.Warn("extract: attempt failed", "attempt", a.ID, "state", "failed", "error", err)
	p.status(ctx, notify.SurfacePanel, userMessage, notify.SeverityError, errorToastDuration, a.ID)
	p.status(ctx, notify.SurfacePage, userMessage, notify.SeverityError, errorToastDuration, a.ID)
	return a
}

func (p *Pipeline) status(ctx context.Context, surface notify.Surface, msg string, sev notify.Severity, d time.Duration, replace string) {
	p.sinks.Status(ctx, surface, notify.Notification{
		Message:  msg,
		Severity: sev,
		Duration: d,
		Replace:  replace,
	})
}

func resolveFailureMessage(err error, hadDelegate bool) string {
	if errors.Is(err, imagefetch.ErrDelegation) {
		return "Failed to download protected image. Try refreshing the page and trying again."
	}
	if hadDelegate {
		return "Failed to download protected image. Try refreshing the page and trying again."
	}
	return "Failed to download protected image. Try saving the image and uploading it directly."
}

func imageDetectionMessage(count int) string {
	if count == 1 {
		return "1 phone number detected from image"
	}
	return fmt.Sprintf("%d phone numbers detected from image", count)
}
