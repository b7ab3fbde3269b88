package service

import (
	"context"
	"sync"

	"github.com/rockfridrich/villa-sub000/pkg/bridge/frame"
)

// CommandKind enumerates the instructions streamed to the modal shell.
type CommandKind string

const (
	// CommandOpen tells the shell to mount the iframe at URL.
	CommandOpen CommandKind = "open"
	// CommandReady tells the shell to swap the loading indicator for the frame.
	CommandReady CommandKind = "ready"
	// CommandResolved reports the terminal event before the stream closes.
	CommandResolved CommandKind = "resolved"
	// CommandClose tells the shell to unmount everything.
	CommandClose CommandKind = "close"
)

// Command is one SSE instruction for the modal shell.
type Command struct {
	Kind  CommandKind `json:"kind"`
	URL   string      `json:"url,omitempty"`
	Event string      `json:"event,omitempty"`
	Code  string      `json:"code,omitempty"`
}

// webController adapts a browser modal shell to the frame.Controller
// contract. Lifecycle calls become outbound commands on an SSE stream;
// forwarded window messages and dismissals arrive through Post and Dismiss.
type webController struct {
	mu     sync.Mutex
	closed bool

	events   chan frame.Event
	commands chan Command
}

func newWebController() *webController {
	return &webController{
		// Buffered so the shell can lag briefly without stalling the
		// session goroutine.
		events:   make(chan frame.Event, 16),
		commands: make(chan Command, 16),
	}
}

func (c *webController) Open(_ context.Context, req frame.OpenRequest) error {
	c.send(Command{Kind: CommandOpen, URL: req.URL})
	return nil
}

func (c *webController) Ready(context.Context) error {
	c.send(Command{Kind: CommandReady})
	return nil
}

func (c *webController) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.enqueueLocked(Command{Kind: CommandClose})
	close(c.commands)
	close(c.events)
	return nil
}

func (c *webController) Events() <-chan frame.Event { return c.events }

// Commands is consumed by the SSE handler.
func (c *webController) Commands() <-chan Command { return c.commands }

// Post feeds a forwarded window message into the session. Returns false once
// the controller is closed.
func (c *webController) Post(origin string, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- frame.Event{Kind: frame.KindMessage, Origin: origin, Data: data}:
		return true
	default:
		// Shell is flooding past the session's consumption rate; drop.
		return false
	}
}

// Dismiss feeds a user dismissal (Escape key or backdrop click).
func (c *webController) Dismiss(reason frame.DismissReason) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- frame.Event{Kind: frame.KindDismissed, Reason: reason}:
		return true
	default:
		return false
	}
}

// resolve enqueues the terminal event so the shell sees it before the
// stream's close command.
func (c *webController) resolve(event, code string) {
	c.send(Command{Kind: CommandResolved, Event: event, Code: code})
}

func (c *webController) send(cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.enqueueLocked(cmd)
}

func (c *webController) enqueueLocked(cmd Command) {
	select {
	case c.commands <- cmd:
	default:
		// Command buffer full; the shell has stopped reading. Dropping is
		// fine, the channel close still signals shutdown.
	}
}
