package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rockfridrich/villa-sub000/pkg/bridge/frame"
	"github.com/rockfridrich/villa-sub000/pkg/bridge/origin"
	"github.com/rockfridrich/villa-sub000/pkg/bridge/protocol"
	"github.com/rockfridrich/villa-sub000/pkg/idx"
)

// State is the bridge session state.
type State string

const (
	StateIdle           State = "idle"
	StateOpening        State = "opening"
	StateReady          State = "ready"
	StateAuthenticating State = "authenticating"
	StateClosing        State = "closing"
	StateClosed         State = "closed"
)

// session owns one sign-in attempt: the frame controller, the timeout timer
// and the state machine. All transitions run on the session goroutine, so no
// two are ever processed concurrently; overlapping triggers (Escape racing a
// success message) are resolved by the first-terminal-wins rule in finish.
type session struct {
	id      idx.ID
	cfg     Config
	ctrl    frame.Controller
	emitter *emitter
	log     *slog.Logger

	timer    *time.Timer
	closeReq chan struct{}
	done     chan struct{}

	mu       sync.Mutex
	state    State
	terminal bool
}

func newSession(cfg Config, ctrl frame.Controller, em *emitter, log *slog.Logger) *session {
	id := idx.New()
	return &session{
		id:       id,
		cfg:      cfg,
		ctrl:     ctrl,
		emitter:  em,
		log:      log.With("session_id", id.String()),
		closeReq: make(chan struct{}, 1),
		done:     make(chan struct{}),
		state:    StateIdle,
	}
}

// start opens the surface and begins the reactive loop. It fails
// synchronously if the controller cannot present; nothing is emitted and no
// resources remain held in that case.
func (s *session) start(ctx context.Context, url string) error {
	s.setState(StateOpening)
	if err := s.ctrl.Open(ctx, frame.OpenRequest{URL: url, SessionID: s.id.String()}); err != nil {
		s.setState(StateClosed)
		close(s.done)
		return err
	}
	s.timer = time.NewTimer(s.cfg.Timeout)
	go s.run()
	return nil
}

func (s *session) run() {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-s.ctrl.Events():
			if !ok {
				// Controller torn down underneath us without a terminal
				// message. Treat as cancellation.
				s.finish(EventCancel, Payload{})
				return
			}
			switch ev.Kind {
			case frame.KindMessage:
				s.handleMessage(ev.Origin, ev.Data)
			case frame.KindDismissed:
				s.log.Debug("surface dismissed", "reason", string(ev.Reason))
				s.finish(EventCancel, Payload{})
			}
		case <-s.timer.C:
			s.finish(EventError, Payload{Err: &Error{
				Code:    protocol.CodeTimeout,
				Message: "authentication timed out",
			}})
		case <-s.closeReq:
			s.finish(EventCancel, Payload{})
		}

		if s.State() == StateClosed {
			return
		}
	}
}

// handleMessage filters one inbound message by origin, parses it, and feeds
// the state machine. Untrusted and malformed messages are dropped with no
// observable effect so unrelated page scripts cannot probe the allowlist.
func (s *session) handleMessage(sender string, data []byte) {
	if !origin.IsTrusted(sender, s.cfg.Network, s.cfg.CallerOrigin) {
		s.logDropped("untrusted origin", sender)
		return
	}
	msg, err := protocol.Parse(data)
	if err != nil {
		s.logDropped("malformed message", sender)
		return
	}

	switch msg.Type {
	case protocol.TypeReady:
		if s.State() != StateOpening {
			return
		}
		s.setState(StateReady)
		if err := s.ctrl.Ready(context.Background()); err != nil {
			s.log.Warn("frame ready signal failed", "err", err)
		}
		s.emitter.emit(EventReady, Payload{})

	case protocol.TypeConsentGranted:
		// Advisory transition for host UIs that show a "signing in"
		// affordance; not required for correctness.
		if s.State() == StateReady {
			s.setState(StateAuthenticating)
		}
		s.log.Debug("consent granted", "app_id", msg.Consent.AppID, "scopes", msg.Consent.Scopes)

	case protocol.TypeConsentDenied:
		s.log.Debug("consent denied", "app_id", msg.Consent.AppID)

	case protocol.TypeAuthSuccess:
		s.finish(EventSuccess, Payload{Identity: msg.Identity})

	case protocol.TypeAuthCancel:
		s.finish(EventCancel, Payload{})

	case protocol.TypeAuthError:
		s.finish(EventError, Payload{Err: &Error{
			Code:    msg.Error.Code,
			Message: msg.Error.Message,
		}})
	}
}

// finish performs the single terminal transition for this session: emit the
// terminal event, then tear everything down. The first terminal trigger
// wins; later triggers for the same session are dropped, so overlapping
// cancellation and a just-in-time success never double-emit.
func (s *session) finish(ev Event, p Payload) {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return
	}
	s.terminal = true
	s.state = StateClosing
	s.mu.Unlock()

	s.emitter.emit(ev, p)
	s.teardown()
	s.setState(StateClosed)
}

// teardown releases every session-owned resource: the timeout timer and the
// frame surface (which also removes the message conduit). Required on every
// exit path so no stale timer or listener outlives the session.
func (s *session) teardown() {
	if s.timer != nil {
		s.timer.Stop()
	}
	if err := s.ctrl.Close(context.Background()); err != nil {
		s.log.Warn("frame teardown failed", "err", err)
	}
}

// requestClose asks the session loop to cancel. Safe from any goroutine and
// any state; duplicate requests coalesce.
func (s *session) requestClose() {
	select {
	case s.closeReq <- struct{}{}:
	default:
	}
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *session) logDropped(why, sender string) {
	if s.cfg.Debug {
		s.log.Info("message dropped", "reason", why, "origin", sender)
		return
	}
	s.log.Debug("message dropped", "reason", why, "origin", sender)
}
