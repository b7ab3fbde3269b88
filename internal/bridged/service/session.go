package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rockfridrich/villa-sub000/internal/bridged/domain"
	"github.com/rockfridrich/villa-sub000/internal/bridged/store"
	"github.com/rockfridrich/villa-sub000/pkg/bridge"
	"github.com/rockfridrich/villa-sub000/pkg/bridge/frame"
	"github.com/rockfridrich/villa-sub000/pkg/cryptox"
	"github.com/rockfridrich/villa-sub000/pkg/idx"
)

var ErrSessionNotFound = errors.New("service: session not found")

// SessionService owns the live bridge sessions of the relay. Each session
// pairs a bridge.Bridge with a webController; the HTTP layer feeds forwarded
// messages in and streams frame commands out, and every lifecycle transition
// lands in the audit store.
type SessionService struct {
	Store   store.Store
	Tickets *TicketService
	Logger  *slog.Logger

	// Host application configuration; one relay fronts one app.
	AppID      string
	Network    bridge.Network
	HostOrigin string
	Scopes     []string
	SessionTTL time.Duration

	mu     sync.Mutex
	active map[string]*activeSession
}

type activeSession struct {
	id     string
	bridge *bridge.Bridge
	ctrl   *webController
}

// StartResult is everything the host page needs to drive a sign-in.
type StartResult struct {
	SessionID string
	Ticket    string
	EmbedURL  string
}

// Start creates a session: audit record, bridge with a web frame controller,
// and a ticket bound to the new session id. The bridge opens immediately;
// the open command waits in the controller buffer for the SSE consumer.
func (s *SessionService) Start(ctx context.Context, callerOrigin string) (StartResult, error) {
	if callerOrigin != s.HostOrigin {
		return StartResult{}, fmt.Errorf("service: origin %q is not the configured host", callerOrigin)
	}

	sid := idx.New().String()
	log := s.Logger.With("session_id", sid)

	ctrl := newWebController()
	br := bridge.New(bridge.Config{
		AppID:        s.AppID,
		Network:      s.Network,
		CallerOrigin: s.HostOrigin,
		Scopes:       s.Scopes,
		Timeout:      s.SessionTTL,
	},
		bridge.WithController(func() frame.Controller { return ctrl }),
		bridge.WithLogger(log),
	)

	s.watch(br, ctrl, sid)

	rec := domain.SessionRecord{
		ID:           sid,
		AppID:        s.AppID,
		Network:      string(s.Network),
		CallerOrigin: s.HostOrigin,
		State:        string(bridge.StateOpening),
	}
	if err := s.Store.Sessions().CreateSession(ctx, rec); err != nil {
		return StartResult{}, fmt.Errorf("service: create session record: %w", err)
	}

	// Registered before SignIn so a terminal event firing during startup
	// always finds the entry to release.
	s.mu.Lock()
	if s.active == nil {
		s.active = make(map[string]*activeSession)
	}
	s.active[sid] = &activeSession{id: sid, bridge: br, ctrl: ctrl}
	s.mu.Unlock()

	if err := br.SignIn(ctx); err != nil {
		code := "INVALID_CONFIG"
		var berr *bridge.Error
		if errors.As(err, &berr) {
			code = string(berr.Code)
		}
		s.recordOutcome(sid, domain.OutcomeError, code, "", "")
		s.release(sid)
		return StartResult{}, err
	}

	ticket, err := s.Tickets.Mint(sid, s.AppID, s.HostOrigin, string(s.Network))
	if err != nil {
		br.Close()
		s.release(sid)
		return StartResult{}, fmt.Errorf("service: mint ticket: %w", err)
	}

	embedURL, err := frame.EmbedURL(s.Network, s.AppID, s.Scopes, s.HostOrigin)
	if err != nil {
		br.Close()
		s.release(sid)
		return StartResult{}, err
	}

	// The ticket itself never lands in logs, only its fingerprint.
	log.Info("session started",
		"app_id", s.AppID,
		"network", s.Network,
		"ticket_fp", cryptox.FingerprintToken(ticket),
	)
	return StartResult{SessionID: sid, Ticket: ticket, EmbedURL: embedURL}, nil
}

// watch wires bridge events to the audit store and the SSE command stream.
// Listeners run on the session goroutine before the controller closes, so
// the resolved command always precedes the close command.
func (s *SessionService) watch(br *bridge.Bridge, ctrl *webController, sid string) {
	br.On(bridge.EventReady, func(bridge.Payload) {
		s.updateState(sid, string(bridge.StateReady))
	})
	br.On(bridge.EventSuccess, func(p bridge.Payload) {
		var address, nickname string
		if p.Identity != nil {
			address = p.Identity.Address
			nickname = p.Identity.Nickname
		}
		ctrl.resolve(string(bridge.EventSuccess), "")
		s.recordOutcome(sid, domain.OutcomeSuccess, "", address, nickname)
		s.release(sid)
	})
	br.On(bridge.EventError, func(p bridge.Payload) {
		code := ""
		if p.Err != nil {
			code = string(p.Err.Code)
		}
		ctrl.resolve(string(bridge.EventError), code)
		s.recordOutcome(sid, domain.OutcomeError, code, "", "")
		s.release(sid)
	})
	br.On(bridge.EventCancel, func(bridge.Payload) {
		ctrl.resolve(string(bridge.EventCancel), "")
		s.recordOutcome(sid, domain.OutcomeCancelled, "", "", "")
		s.release(sid)
	})
}

// Ingest feeds a forwarded window message into the session's bridge. The
// bridge drops untrusted origins and malformed payloads itself; ingest only
// fails when the session is gone.
func (s *SessionService) Ingest(sid, origin string, data []byte) error {
	as, ok := s.lookup(sid)
	if !ok {
		return ErrSessionNotFound
	}
	as.ctrl.Post(origin, data)
	return nil
}

// Dismiss reports a user dismissal (Escape or backdrop) from the shell.
func (s *SessionService) Dismiss(sid string, reason frame.DismissReason) error {
	as, ok := s.lookup(sid)
	if !ok {
		return ErrSessionNotFound
	}
	as.ctrl.Dismiss(reason)
	return nil
}

// Close cancels the session. Idempotent: closing a session that already
// resolved is a no-op, closing an unknown one is ErrSessionNotFound.
func (s *SessionService) Close(ctx context.Context, sid string) error {
	as, ok := s.lookup(sid)
	if ok {
		as.bridge.Close()
		return nil
	}

	// Already resolved sessions still close cleanly.
	if _, err := s.Store.Sessions().GetSessionByID(ctx, sid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// Commands returns the SSE command stream for a session.
func (s *SessionService) Commands(sid string) (<-chan Command, error) {
	as, ok := s.lookup(sid)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return as.ctrl.Commands(), nil
}

// ActiveCount reports how many sessions are currently live.
func (s *SessionService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *SessionService) lookup(sid string) (*activeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	as, ok := s.active[sid]
	return as, ok
}

func (s *SessionService) release(sid string) {
	s.mu.Lock()
	delete(s.active, sid)
	s.mu.Unlock()
}

func (s *SessionService) updateState(sid, state string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Store.Sessions().UpdateSessionState(ctx, sid, state); err != nil {
		s.Logger.Error("failed to update session state", "session_id", sid, "state", state, "error", err)
	}
}

func (s *SessionService) recordOutcome(sid string, outcome domain.Outcome, code, address, nickname string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Store.Sessions().RecordOutcome(ctx, sid, outcome, code, address, nickname); err != nil {
		s.Logger.Error("failed to record session outcome", "session_id", sid, "outcome", outcome, "error", err)
	}
}
