package frame

import (
	"context"
	"sync"
)

// Headless is an in-memory Controller for tests and for hosts that render
// their own surface. Messages and dismissals are injected with Post and
// Dismiss; the lifecycle calls only record state.
type Headless struct {
	mu     sync.Mutex
	events chan Event

	opened     bool
	readyShown bool
	closed     bool
	openURL    string
}

// NewHeadless returns a Headless controller with a small event buffer so
// tests can inject without a consumer running yet.
func NewHeadless() *Headless {
	return &Headless{events: make(chan Event, 16)}
}

func (h *Headless) Open(_ context.Context, req OpenRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = true
	h.openURL = req.URL
	return nil
}

func (h *Headless) Ready(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readyShown = true
	return nil
}

func (h *Headless) Close(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	close(h.events)
	return nil
}

func (h *Headless) Events() <-chan Event { return h.events }

// Post injects an inbound message as if the embedded page had posted it.
// Returns false once the controller is closed or the buffer is full.
func (h *Headless) Post(origin string, data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	select {
	case h.events <- Event{Kind: KindMessage, Origin: origin, Data: data}:
		return true
	default:
		// Nobody is draining; drop rather than block under the lock.
		return false
	}
}

// Dismiss injects a user dismissal (Escape key or backdrop click).
func (h *Headless) Dismiss(reason DismissReason) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	select {
	case h.events <- Event{Kind: KindDismissed, Reason: reason}:
		return true
	default:
		return false
	}
}

// Opened reports whether Open was called.
func (h *Headless) Opened() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened
}

// ReadyShown reports whether Ready was called.
func (h *Headless) ReadyShown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readyShown
}

// Closed reports whether Close was called.
func (h *Headless) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// OpenURL returns the URL passed to Open.
func (h *Headless) OpenURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openURL
}
