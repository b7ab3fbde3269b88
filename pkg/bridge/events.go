package bridge

import (
	"fmt"

	"github.com/rockfridrich/villa-sub000/pkg/bridge/protocol"
)

// Event names a consumer-visible bridge event.
type Event string

const (
	// EventReady fires when the embedded page reports it is interactive.
	EventReady Event = "ready"
	// EventSuccess fires with the validated identity on successful auth.
	EventSuccess Event = "success"
	// EventError fires with a message and code from the error taxonomy.
	EventError Event = "error"
	// EventCancel fires when the session ends without a result.
	EventCancel Event = "cancel"
)

// Payload carries event data to listeners. Identity is set for
// EventSuccess, Err for EventError; both are nil for ready and cancel.
type Payload struct {
	Identity *protocol.Identity
	Err      *Error
}

// Listener is a consumer callback. A panicking listener is recovered and
// logged; it never interrupts delivery to other listeners or teardown.
type Listener func(Payload)

// Handle identifies a registered listener for removal.
type Handle uint64

// Error is the terminal error surfaced through EventError and returned by
// SignIn helpers.
type Error struct {
	Code    protocol.Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("bridge: %s: %s", e.Code, e.Message)
}
