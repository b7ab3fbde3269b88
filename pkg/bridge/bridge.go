package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rockfridrich/villa-sub000/pkg/bridge/frame"
	"github.com/rockfridrich/villa-sub000/pkg/bridge/protocol"
)

// ErrSessionActive reports a SignIn while a previous session is still open.
var ErrSessionActive = errors.New("bridge: a session is already active")

// Bridge orchestrates iframe-based Villa authentication sessions for one
// host application. A Bridge holds at most one active session at a time but
// is reusable: listener registrations survive across sessions.
type Bridge struct {
	cfg     Config
	emitter *emitter
	log     *slog.Logger

	// newController builds the presentation surface for each session.
	newController func() frame.Controller

	mu   sync.Mutex
	sess *session
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithController sets the factory for per-session frame controllers. The
// default is a headless controller; hosts that render a real surface (the
// bridged relay, custom UIs) wire their own.
func WithController(fn func() frame.Controller) Option {
	return func(b *Bridge) { b.newController = fn }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// New creates a Bridge. The config is normalized here and validated on
// SignIn, so construction never fails but a misconfigured bridge fails fast
// before opening anything.
func New(cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		cfg: cfg.normalized(),
		log: slog.Default(),
		newController: func() frame.Controller {
			return frame.NewHeadless()
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.emitter = newEmitter(b.log)
	return b
}

// SignIn starts an authentication session. It validates the config and
// opens the frame synchronously; results are delivered through the
// 'ready', 'success', 'error' and 'cancel' events.
func (b *Bridge) SignIn(ctx context.Context) error {
	if verr := b.cfg.validate(); verr != nil {
		return verr
	}

	url, err := frame.EmbedURL(b.cfg.Network, b.cfg.AppID, b.cfg.Scopes, b.cfg.CallerOrigin)
	if err != nil {
		return &Error{Code: protocol.CodeInvalidConfig, Message: err.Error()}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess != nil && b.sess.State() != StateClosed {
		return ErrSessionActive
	}

	sess := newSession(b.cfg, b.newController(), b.emitter, b.log)
	if err := sess.start(ctx, url); err != nil {
		return &Error{Code: protocol.CodeNetworkError, Message: err.Error()}
	}
	b.sess = sess
	return nil
}

// SignInAndWait runs a session to completion and returns the identity. It
// is a convenience wrapper over the event API: cancel maps to an Error with
// code CANCELLED. Context cancellation closes the session.
func (b *Bridge) SignInAndWait(ctx context.Context) (*protocol.Identity, error) {
	type outcome struct {
		identity *protocol.Identity
		err      error
	}
	results := make(chan outcome, 1)
	var once sync.Once
	report := func(o outcome) { once.Do(func() { results <- o }) }

	hSuccess := b.On(EventSuccess, func(p Payload) {
		report(outcome{identity: p.Identity})
	})
	hError := b.On(EventError, func(p Payload) {
		report(outcome{err: p.Err})
	})
	hCancel := b.On(EventCancel, func(p Payload) {
		report(outcome{err: &Error{Code: protocol.CodeCancelled, Message: "sign-in cancelled"}})
	})
	defer func() {
		b.Off(EventSuccess, hSuccess)
		b.Off(EventError, hError)
		b.Off(EventCancel, hCancel)
	}()

	if err := b.SignIn(ctx); err != nil {
		return nil, err
	}

	select {
	case o := <-results:
		return o.identity, o.err
	case <-ctx.Done():
		b.Close()
		return nil, ctx.Err()
	}
}

// Close cancels the active session, emitting 'cancel' unless a terminal
// event already fired. It is idempotent and a no-op with no active session.
func (b *Bridge) Close() {
	b.mu.Lock()
	sess := b.sess
	b.mu.Unlock()
	if sess == nil {
		return
	}
	sess.requestClose()
}

// State returns the current session state, or StateIdle between sessions.
func (b *Bridge) State() State {
	b.mu.Lock()
	sess := b.sess
	b.mu.Unlock()
	if sess == nil {
		return StateIdle
	}
	return sess.State()
}

// On registers a listener for an event. Listeners fire in registration
// order and persist across sessions.
func (b *Bridge) On(ev Event, fn Listener) Handle {
	return b.emitter.on(ev, fn)
}

// Off removes a previously registered listener.
func (b *Bridge) Off(ev Event, h Handle) {
	b.emitter.off(ev, h)
}

// RemoveAllListeners clears the given events, or every event when called
// with no arguments.
func (b *Bridge) RemoveAllListeners(events ...Event) {
	b.emitter.removeAll(events...)
}
