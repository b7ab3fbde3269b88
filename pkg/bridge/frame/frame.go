// Package frame abstracts the presentation surface hosting the embedded
// Villa auth page. The bridge core drives a Controller and consumes its
// events; the actual DOM work (overlay, iframe element, focus trap) is done
// by whichever Controller implementation is wired in -- the bridged relay's
// web controller in production, Headless in tests.
package frame

import "context"

// EventKind discriminates Controller events.
type EventKind int

const (
	// KindMessage is an inbound postMessage from the embedded page, carrying
	// the sender origin exactly as the browser reported it.
	KindMessage EventKind = iota + 1
	// KindDismissed is a user-initiated dismissal of the surface.
	KindDismissed
)

// DismissReason identifies what dismissed the surface.
type DismissReason string

const (
	DismissEscape   DismissReason = "escape"
	DismissBackdrop DismissReason = "backdrop"
)

// Event is a signal from the presentation surface. Exactly the fields for
// its Kind are set.
type Event struct {
	Kind   EventKind
	Origin string        // KindMessage
	Data   []byte        // KindMessage
	Reason DismissReason // KindDismissed
}

// OpenRequest describes the surface to present.
type OpenRequest struct {
	// URL is the iframe target, already built by EmbedURL.
	URL string
	// SessionID identifies the owning bridge session, for logging and for
	// controllers that multiplex several sessions.
	SessionID string
}

// Controller owns the presentation surface for exactly one session. The
// bridge calls Open once, Ready at most once, and Close on every exit path;
// Close must be safe to call more than once. The Events channel belongs to
// the controller and is closed on teardown.
type Controller interface {
	// Open presents the surface with a loading indicator showing.
	Open(ctx context.Context, req OpenRequest) error
	// Ready hides the loading indicator once the embedded page is interactive.
	Ready(ctx context.Context) error
	// Close tears the surface down and releases its resources.
	Close(ctx context.Context) error
	// Events delivers inbound messages and dismissals in arrival order.
	Events() <-chan Event
}
