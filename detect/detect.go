// Package detect holds the process-wide detection state and reconciles the
// asynchronous producers of phone numbers — selection events, context-menu
// actions, image-extraction results — into one consistent "current
// detection" broadcast to the consumer panel.
//
// The coordinator is a single-owner state machine: all events flow through
// one run loop, so currentNumbers and currentSource are always updated
// together and a consumer query never observes numbers from one event paired
// with the source of another.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/quickwhats/quickwhats/notify"
	"github.com/quickwhats/quickwhats/recent"
	"github.com/quickwhats/quickwhats/walink"
)

// DefaultCountryCode is the dial code used until the user picks another.
const DefaultCountryCode = "+972"

// Provenance tags with fixed meaning. Anything else is a page hostname.
const (
	SourceUnknown     = "unknown"
	SourceImage       = "image"
	SourceContextMenu = "contextMenu"
	SourceRecent      = "recent"
)

// ErrStopped is returned when the coordinator's run loop has exited.
var ErrStopped = errors.New("detect: coordinator stopped")

var nonDigits = regexp.MustCompile(`\D`)

const toastDuration = 3 * time.Second

// NormalizeSource maps the malformed provenance values that leak out of
// loosely-typed producers to SourceUnknown. Ambiguity must resolve to
// "unknown" rather than propagate into durable history.
func NormalizeSource(s string) string {
	switch s {
	case "", "undefined", "null":
		return SourceUnknown
	}
	return s
}

// QueryResult answers a consumer query with mutually consistent state.
type QueryResult struct {
	Numbers     []string       `json:"phoneNumbers"`
	CountryCode string         `json:"countryCode"`
	Recent      []recent.Entry `json:"recentNumbers"`
}

// Coordinator owns the detection state. Construct with New, start Run in a
// goroutine, then use the exported methods from any goroutine.
type Coordinator struct {
	recent   *recent.Store
	sinks    notify.Sink
	launcher walink.Launcher
	logger   *slog.Logger

	msgs chan message
	done chan struct{}

	// Mutated only inside Run.
	numbers     []string
	source      string
	countryCode string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a Coordinator. Call Run to start processing events.
func New(store *recent.Store, sinks notify.Sink, launcher walink.Launcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		recent:      store,
		sinks:       sinks,
		launcher:    launcher,
		logger:      slog.Default(),
		msgs:        make(chan message),
		done:        make(chan struct{}),
		source:      SourceUnknown,
		countryCode: DefaultCountryCode,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run processes events until ctx is cancelled. Each event is handled to
// completion before the next is read.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.msgs:
			c.handle(ctx, m)
		}
	}
}

func (c *Coordinator) post(ctx context.Context, m message) error {
	select {
	case c.msgs <- m:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProducerEvent replaces the current detection wholesale. interactive marks
// events originating from a user gesture on the page (text selection,
// context menu); those also toast the page the user is viewing.
func (c *Coordinator) ProducerEvent(ctx context.Context, numbers []string, source string, interactive bool) error {
	return c.post(ctx, producerEvent{
		id:          uuid.NewString(),
		numbers:     numbers,
		source:      source,
		interactive: interactive,
	})
}

// ConsumerOpened clears the activity indicator. The current detection stays
// queryable until superseded.
func (c *Coordinator) ConsumerOpened(ctx context.Context) error {
	return c.post(ctx, consumerOpened{})
}

// Query returns the current detection plus the recent list. A store read
// failure degrades to an empty recent list rather than failing the query.
func (c *Coordinator) Query(ctx context.Context) (QueryResult, error) {
	reply := make(chan QueryResult, 1)
	if err := c.post(ctx, consumerQuery{reply: reply}); err != nil {
		return QueryResult{}, err
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return QueryResult{}, ctx.Err()
	}
}

// SetCountryCode overwrites the active dial code.
func (c *Coordinator) SetCountryCode(ctx context.Context, code string) error {
	return c.post(ctx, countryCodeChanged{code: code})
}

// SendRequest is a confirmed send from the panel.
type SendRequest struct {
	Number      string
	CountryCode string // empty: the active dial code
	Source      string // empty: fall back to the last detection's provenance
	Text        string // optional pre-filled chat message
}

// ConfirmSend records the number in history, opens the chat launch URL and
// returns the fresh recent list.
func (c *Coordinator) ConfirmSend(ctx context.Context, req SendRequest) ([]recent.Entry, error) {
	reply := make(chan []recent.Entry, 1)
	m := sendConfirmed{
		number:      req.Number,
		countryCode: req.CountryCode,
		source:      req.Source,
		text:        req.Text,
		reply:       reply,
	}
	if err := c.post(ctx, m); err != nil {
		return nil, err
	}
	return c.await(ctx, reply)
}

// ReuseFromHistory refreshes an existing history entry; provenance is
// forced to "recent".
func (c *Coordinator) ReuseFromHistory(ctx context.Context, number, countryCode string) ([]recent.Entry, error) {
	reply := make(chan []recent.Entry, 1)
	if err := c.post(ctx, reuseFromHistory{number: number, countryCode: countryCode, reply: reply}); err != nil {
		return nil, err
	}
	return c.await(ctx, reply)
}

// DeleteEntry removes one history entry and returns the fresh list.
// Deleting an absent number is a no-op.
func (c *Coordinator) DeleteEntry(ctx context.Context, number string) ([]recent.Entry, error) {
	reply := make(chan []recent.Entry, 1)
	if err := c.post(ctx, deleteEntry{number: number, reply: reply}); err != nil {
		return nil, err
	}
	return c.await(ctx, reply)
}

// ClearHistory empties the history and returns the (empty) fresh list.
func (c *Coordinator) ClearHistory(ctx context.Context) ([]recent.Entry, error) {
	reply := make(chan []recent.Entry, 1)
	if err := c.post(ctx, clearHistory{reply: reply}); err != nil {
		return nil, err
	}
	return c.await(ctx, reply)
}

// SendFromContextMenu handles the context-menu "send WhatsApp" action on a
// text selection: the digits become the current detection and the chat
// opens immediately, without a pre-filled message.
func (c *Coordinator) SendFromContextMenu(ctx context.Context, selection, source string) error {
	return c.post(ctx, contextMenuSend{selection: selection, source: source})
}

func (c *Coordinator) await(ctx context.Context, reply chan []recent.Entry) ([]recent.Entry, error) {
	select {
	case entries := <-reply:
		return entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// --- run-loop handlers ---

func (c *Coordinator) handle(ctx context.Context, m message) {
	switch m := m.(type) {
	case producerEvent:
		c.handleProducerEvent(ctx, m)
	case consumerOpened:
		c.sinks.Badge(ctx, 0)
	case consumerQuery:
		m.reply <- QueryResult{
			Numbers:     c.numbers,
			CountryCode: c.countryCode,
			Recent:      c.listRecent(ctx),
		}
	case countryCodeChanged:
		c.countryCode = m.code
	case sendConfirmed:
		c.handleSendConfirmed(ctx, m)
	case reuseFromHistory:
		c.handleReuse(ctx, m)
	case deleteEntry:
		if err := c.recent.Remove(ctx, m.number); err != nil {
			c.logger.Warn("detect: delete history entry", "error", err)
		}
		m.reply <- c.listRecent(ctx)
	case clearHistory:
		if err := c.recent.Clear(ctx); err != nil {
			c.logger.Warn("detect: clear history", "error", err)
		}
		m.reply <- c.listRecent(ctx)
	case contextMenuSend:
		c.handleContextMenuSend(ctx, m)
	}
}

func (c *Coordinator) handleProducerEvent(ctx context.Context, m producerEvent) {
	source := NormalizeSource(m.source)

	// numbers and source replace together; never merged with the previous
	// detection.
	c.numbers = m.numbers
	c.source = source

	c.logger.Info("detection updated",
		"event_id", m.id,
		"count", len(m.numbers),
		"source", source)

	if len(m.numbers) > 0 {
		n := notify.Notification{
			Message:  detectionMessage(len(m.numbers)),
			Severity: notify.SeveritySuccess,
			Duration: toastDuration,
		}
		c.sinks.Status(ctx, notify.SurfacePanel, n)
		if m.interactive {
			c.sinks.Status(ctx, notify.SurfacePage, n)
		}
	}
	c.sinks.Badge(ctx, len(m.numbers))
}

func (c *Coordinator) handleSendConfirmed(ctx context.Context, m sendConfirmed) {
	source := m.source
	if source == "" && c.source != SourceUnknown {
		source = c.source
	}
	source = NormalizeSource(source)

	countryCode := m.countryCode
	if countryCode == "" {
		countryCode = c.countryCode
	}

	if err := c.recent.Add(ctx, m.number, countryCode, source); err != nil {
		// History is best-effort; a lost entry never fails the send.
		c.logger.Warn("detect: record send", "error", err)
	}

	url := walink.URL(countryCode, m.number, m.text)
	if err := c.launcher.Open(ctx, url); err != nil {
		c.logger.Warn("detect: open chat", "error", err)
	}

	m.reply <- c.listRecent(ctx)
}

func (c *Coordinator) handleReuse(ctx context.Context, m reuseFromHistory) {
	countryCode := m.countryCode
	if countryCode == "" {
		countryCode = c.countryCode
	}
	if err := c.recent.Add(ctx, m.number, countryCode, SourceRecent); err != nil {
		c.logger.Warn("detect: refresh history entry", "error", err)
	}
	m.reply <- c.listRecent(ctx)
}

func (c *Coordinator) handleContextMenuSend(ctx context.Context, m contextMenuSend) {
	digits := nonDigits.ReplaceAllString(m.selection, "")
	if digits == "" {
		return
	}
	source := m.source
	if source == "" {
		source = SourceContextMenu
	}

	c.handleProducerEvent(ctx, producerEvent{
		id:          uuid.NewString(),
		numbers:     []string{digits},
		source:      source,
		interactive: true,
	})

	if err := c.recent.Add(ctx, digits, c.countryCode, source); err != nil {
		c.logger.Warn("detect: record context-menu send", "error", err)
	}
	if err := c.launcher.Open(ctx, walink.URL(c.countryCode, digits, "")); err != nil {
		c.logger.Warn("detect: open chat", "error", err)
	}
}

func (c *Coordinator) listRecent(ctx context.Context) []recent.Entry {
	entries, err := c.recent.List(ctx)
	if err != nil {
		c.logger.Warn("detect: list history", "error", err)
		return []recent.Entry{}
	}
	if entries == nil {
		entries = []recent.Entry{}
	}
	return entries
}

func detectionMessage(count int) string {
	if count == 1 {
		return "1 phone number detected"
	}
	return fmt.Sprintf("%d phone numbers detected", count)
}
