package notify

import (
	"context"
	"encoding/json"
	"sync"
)

// SSE broadcasts panel-surface notifications to connected panel clients as
// JSON events. Page-surface notices are not forwarded; the page has its own
// sink. Slow or absent consumers are dropped rather than blocking the
// coordinator — the product only promises that the next consumer query
// returns the latest durable state.
type SSE struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	closed bool
}

// Event is the wire form pushed to panel subscribers.
type Event struct {
	Type  string        `json:"type"` // "toast" or "badge"
	Toast *Notification `json:"toast,omitempty"`
	Count int           `json:"count"`
}

// NewSSE creates an SSE broadcast sink.
func NewSSE() *SSE {
	return &SSE{subs: make(map[chan []byte]struct{})}
}

// Subscribe registers a panel client. The returned cancel must be called
// when the client disconnects.
func (s *SSE) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *SSE) Status(_ context.Context, surface Surface, n Notification) error {
	if surface != SurfacePanel {
		return nil
	}
	return s.broadcast(Event{Type: "toast", Toast: &n})
}

func (s *SSE) Badge(_ context.Context, count int) error {
	return s.broadcast(Event{Type: "badge", Count: count})
}

func (s *SSE) broadcast(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- data:
		default: // drop for slow consumers
		}
	}
	return nil
}

func (s *SSE) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	return nil
}
