package detect

import (
	"context"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/quickwhats/quickwhats/notify"
	"github.com/quickwhats/quickwhats/recent"
	"github.com/quickwhats/quickwhats/storedb"
)

// recordingSink and recordingLauncher are only ever touched by the run loop;
// tests read them after a synchronous Query, which orders the accesses.
type recordingSink struct {
	statuses []notify.Notification
	surfaces []notify.Surface
	badges   []int
}

func (r *recordingSink) Status(_ context.Context, surface notify.Surface, n notify.Notification) error {
	r.surfaces = append(r.surfaces, surface)
	r.statuses = append(r.statuses, n)
	return nil
}

func (r *recordingSink) Badge(_ context.Context, count int) error {
	r.badges = append(r.badges, count)
	return nil
}

func (r *recordingSink) Close() error { return nil }

type recordingLauncher struct {
	urls []string
}

func (r *recordingLauncher) Open(_ context.Context, url string) error {
	r.urls = append(r.urls, url)
	return nil
}

func setupCoordinator(t *testing.T) (*Coordinator, *recordingSink, *recordingLauncher) {
	t.Helper()
	db := storedb.OpenMemory(t, storedb.WithSchema(recent.Schema))
	sink := &recordingSink{}
	launcher := &recordingLauncher{}
	c := New(recent.NewStore(db), sink, launcher)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c, sink, launcher
}

// sync drains the run loop: once Query replies, every earlier message has
// been fully handled.
func sync(t *testing.T, c *Coordinator) QueryResult {
	t.Helper()
	res, err := c.Query(context.Background())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return res
}

func TestProducerEvent_ReplacesDetectionWholesale(t *testing.T) {
	// WHAT: A new event replaces numbers and source together; nothing merges.
	// WHY: A consumer must never see one event's numbers with another's source.
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()

	if err := c.ProducerEvent(ctx, []string{"0501111111", "0502222222"}, "example.com", false); err != nil {
		t.Fatal(err)
	}
	if err := c.ProducerEvent(ctx, []string{"0503333333"}, "image", false); err != nil {
		t.Fatal(err)
	}

	res := sync(t, c)
	if !reflect.DeepEqual(res.Numbers, []string{"0503333333"}) {
		t.Errorf("numbers = %v, want only the latest event's", res.Numbers)
	}
}

func TestProducerEvent_BadgeTracksCount(t *testing.T) {
	// WHAT: The badge shows the current count; opening the consumer clears it.
	c, sink, _ := setupCoordinator(t)
	ctx := context.Background()

	if err := c.ProducerEvent(ctx, []string{"0501111111", "0502222222"}, "example.com", false); err != nil {
		t.Fatal(err)
	}
	if err := c.ConsumerOpened(ctx); err != nil {
		t.Fatal(err)
	}
	sync(t, c)

	if !reflect.DeepEqual(sink.badges, []int{2, 0}) {
		t.Errorf("badges = %v, want [2 0]", sink.badges)
	}
}

func TestProducerEvent_InteractiveAlsoToastsThePage(t *testing.T) {
	// WHAT: Gesture-driven events toast both surfaces; background events only
	// the panel.
	c, sink, _ := setupCoordinator(t)
	ctx := context.Background()

	if err := c.ProducerEvent(ctx, []string{"0501111111"}, "example.com", false); err != nil {
		t.Fatal(err)
	}
	sync(t, c)
	if !reflect.DeepEqual(sink.surfaces, []notify.Surface{notify.SurfacePanel}) {
		t.Fatalf("background event surfaces = %v", sink.surfaces)
	}

	if err := c.ProducerEvent(ctx, []string{"0501111111"}, "example.com", true); err != nil {
		t.Fatal(err)
	}
	sync(t, c)
	want := []notify.Surface{notify.SurfacePanel, notify.SurfacePanel, notify.SurfacePage}
	if !reflect.DeepEqual(sink.surfaces, want) {
		t.Errorf("surfaces = %v, want %v", sink.surfaces, want)
	}
	if sink.statuses[0].Message != "1 phone number detected" {
		t.Errorf("toast = %q", sink.statuses[0].Message)
	}
}

func TestQuery_EmptyStateDefaults(t *testing.T) {
	// WHAT: Before any event, the query answers with the default dial code and
	// an empty (not nil) recent list.
	c, _, _ := setupCoordinator(t)

	res := sync(t, c)
	if len(res.Numbers) != 0 {
		t.Errorf("numbers = %v, want none", res.Numbers)
	}
	if res.CountryCode != DefaultCountryCode {
		t.Errorf("countryCode = %q, want %q", res.CountryCode, DefaultCountryCode)
	}
	if res.Recent == nil || len(res.Recent) != 0 {
		t.Errorf("recent = %#v, want empty non-nil slice", res.Recent)
	}
}

func TestConfirmSend_RecordsHistoryAndOpensChat(t *testing.T) {
	// WHAT: A confirmed send canonicalizes the number into history under the
	// active dial code and opens the launch URL.
	c, _, launcher := setupCoordinator(t)
	ctx := context.Background()

	if err := c.SetCountryCode(ctx, "+33"); err != nil {
		t.Fatal(err)
	}
	entries, err := c.ConfirmSend(ctx, SendRequest{Number: "0612345678", Text: "bonjour"})
	if err != nil {
		t.Fatalf("confirm send: %v", err)
	}

	if len(entries) != 1 || entries[0].Number != "+33612345678" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].CountryCode != "+33" {
		t.Errorf("countryCode = %q", entries[0].CountryCode)
	}
	if len(launcher.urls) != 1 || launcher.urls[0] != "https://wa.me/33612345678?text=bonjour" {
		t.Errorf("launch urls = %v", launcher.urls)
	}
}

func TestConfirmSend_ProvenanceFallbackChain(t *testing.T) {
	// WHAT: An unsourced send inherits the current detection's provenance;
	// an explicit source wins; malformed values resolve to "unknown".
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()

	if err := c.ProducerEvent(ctx, []string{"0501111111"}, "example.com", false); err != nil {
		t.Fatal(err)
	}
	entries, err := c.ConfirmSend(ctx, SendRequest{Number: "0501111111"})
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Source != "example.com" {
		t.Errorf("inherited source = %q, want example.com", entries[0].Source)
	}

	entries, err = c.ConfirmSend(ctx, SendRequest{Number: "0502222222", Source: "contextMenu"})
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Source != "contextMenu" {
		t.Errorf("explicit source = %q, want contextMenu", entries[0].Source)
	}

	entries, err = c.ConfirmSend(ctx, SendRequest{Number: "0503333333", Source: "undefined"})
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Source != SourceUnknown {
		t.Errorf("malformed source = %q, want %q", entries[0].Source, SourceUnknown)
	}
}

func TestReuseFromHistory_ForcesRecentSource(t *testing.T) {
	// WHAT: Refreshing a history entry stamps it with the "recent" provenance
	// regardless of what it was stored with.
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()

	if _, err := c.ConfirmSend(ctx, SendRequest{Number: "0501111111", Source: "example.com"}); err != nil {
		t.Fatal(err)
	}
	entries, err := c.ReuseFromHistory(ctx, "0501111111", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Source != SourceRecent {
		t.Errorf("entries = %+v, want source %q", entries, SourceRecent)
	}
}

func TestDeleteAndClearHistory(t *testing.T) {
	// WHAT: Delete removes one entry, clear removes all; both reply with the
	// fresh list.
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()

	if _, err := c.ConfirmSend(ctx, SendRequest{Number: "0501111111"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ConfirmSend(ctx, SendRequest{Number: "0502222222"}); err != nil {
		t.Fatal(err)
	}

	entries, err := c.DeleteEntry(ctx, "+972501111111")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Number != "+972502222222" {
		t.Errorf("after delete: %+v", entries)
	}

	entries, err = c.ClearHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("after clear: %+v", entries)
	}
}

func TestSendFromContextMenu(t *testing.T) {
	// WHAT: A context-menu send turns the selection's digits into the current
	// detection, records history and opens the chat without a message.
	c, _, launcher := setupCoordinator(t)
	ctx := context.Background()

	if err := c.SendFromContextMenu(ctx, "call 050-123-4567 today", "example.com"); err != nil {
		t.Fatal(err)
	}
	res := sync(t, c)

	if !reflect.DeepEqual(res.Numbers, []string{"0501234567"}) {
		t.Errorf("numbers = %v", res.Numbers)
	}
	if len(res.Recent) != 1 || res.Recent[0].Number != "+972501234567" {
		t.Errorf("recent = %+v", res.Recent)
	}
	if len(launcher.urls) != 1 || launcher.urls[0] != "https://wa.me/972501234567" {
		t.Errorf("launch urls = %v", launcher.urls)
	}
}

func TestSendFromContextMenu_NoDigitsIsIgnored(t *testing.T) {
	// WHAT: A selection with no digits does nothing.
	c, _, launcher := setupCoordinator(t)
	ctx := context.Background()

	if err := c.SendFromContextMenu(ctx, "hello there", ""); err != nil {
		t.Fatal(err)
	}
	res := sync(t, c)
	if len(res.Numbers) != 0 || len(launcher.urls) != 0 {
		t.Errorf("numbers = %v, urls = %v, want nothing", res.Numbers, launcher.urls)
	}
}

func TestNormalizeSource(t *testing.T) {
	// WHAT: Loosely-typed producer values collapse to "unknown".
	for _, s := range []string{"", "undefined", "null"} {
		if got := NormalizeSource(s); got != SourceUnknown {
			t.Errorf("NormalizeSource(%q) = %q", s, got)
		}
	}
	if got := NormalizeSource("example.com"); got != "example.com" {
		t.Errorf("hostname mangled: %q", got)
	}
}
