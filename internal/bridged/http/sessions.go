package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rockfridrich/villa-sub000/internal/bridged/service"
	"github.com/rockfridrich/villa-sub000/pkg/bridge/frame"
	"github.com/rockfridrich/villa-sub000/pkg/httpx"
	"github.com/rockfridrich/villa-sub000/pkg/slogx"
)

// SessionsHandler serves the session lifecycle endpoints.
type SessionsHandler struct {
	SessionService *service.SessionService
	Logger         *slog.Logger
}

// HandleCreate godoc
//
//	@Summary		Start a sign-in session
//	@Description	Creates a bridge session for the configured application. The Origin
//	@Description	header must match the configured host origin. Returns the session id,
//	@Description	a session-bound ticket, and the URLs the host page needs.
//	@Tags			Sessions
//	@Produce		json
//	@Success		201	{object}	CreateSessionResponse
//	@Failure		403	{object}	ErrorResponse	"origin not allowed"
//	@Failure		422	{object}	ErrorResponse	"invalid relay configuration"
//	@Router			/v1/sessions [post].
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	callerOrigin := r.Header.Get("Origin")
	if callerOrigin == "" {
		// Non-browser callers (tests, curl) state the origin explicitly.
		callerOrigin = r.Header.Get("X-Caller-Origin")
	}

	res, err := h.SessionService.Start(r.Context(), callerOrigin)
	if err != nil {
		log.Warn("session start rejected", "caller_origin", callerOrigin, "err", err)
		status := http.StatusForbidden
		code := "origin_not_allowed"
		if callerOrigin == h.SessionService.HostOrigin {
			// Origin was fine, the bridge config was not.
			status = http.StatusUnprocessableEntity
			code = "invalid_configuration"
		}
		httpx.WriteJSON(w, status, ErrorResponse{Error: code, ErrorDescription: err.Error()})
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID: res.SessionID,
		Ticket:    res.Ticket,
		EmbedURL:  res.EmbedURL,
		EventsURL: fmt.Sprintf("/v1/sessions/%s/events?ticket=%s", res.SessionID, url.QueryEscape(res.Ticket)),
		ModalURL:  fmt.Sprintf("/modal?session_id=%s&ticket=%s", res.SessionID, url.QueryEscape(res.Ticket)),
	})
}

// HandleEvents godoc
//
//	@Summary		Stream frame commands
//	@Description	Server-sent events stream of frame commands (open, ready, resolved,
//	@Description	close) for the modal shell. The ticket travels as a query parameter
//	@Description	because EventSource cannot set request headers.
//	@Tags			Sessions
//	@Produce		text/event-stream
//	@Param			id		path	string	true	"session id"
//	@Param			ticket	query	string	true	"session ticket"
//	@Success		200
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/v1/sessions/{id}/events [get].
func (h *SessionsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())
	sid := r.PathValue("id")

	if _, err := h.SessionService.Tickets.VerifyForSession(r.URL.Query().Get("ticket"), sid); err != nil {
		log.Warn("events stream rejected", "session_id", sid, "err", err)
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid_ticket"})
		return
	}

	cmds, err := h.SessionService.Commands(sid)
	if err != nil {
		httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "session_not_found"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming_unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case cmd, open := <-cmds:
			if !open {
				return
			}
			data, err := json.Marshal(cmd)
			if err != nil {
				log.Error("failed to marshal command", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: command\ndata: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// HandleMessage godoc
//
//	@Summary		Forward a window message
//	@Description	Accepts one forwarded window.message event from the modal shell and
//	@Description	feeds it into the bridge. Untrusted origins and malformed payloads
//	@Description	are dropped silently; the response never reveals which.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string			true	"session id"
//	@Param			body	body	MessageRequest	true	"forwarded message"
//	@Security		TicketAuth
//	@Success		202
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/v1/sessions/{id}/messages [post].
func (h *SessionsHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	sid := r.PathValue("id")
	if httpx.SessionIDFromCtx(r.Context()) != sid {
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "ticket_session_mismatch"})
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_body"})
		return
	}

	if err := h.SessionService.Ingest(sid, req.Origin, []byte(req.Data)); err != nil {
		httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "session_not_found"})
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleClose godoc
//
//	@Summary		Close a session
//	@Description	Cancels the session. With a reason ("escape", "backdrop") the close is
//	@Description	recorded as a user dismissal. Idempotent: closing a session that
//	@Description	already resolved succeeds.
//	@Tags			Sessions
//	@Accept			json
//	@Param			id		path	string			true	"session id"
//	@Param			body	body	CloseRequest	false	"dismissal reason"
//	@Security		TicketAuth
//	@Success		204
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/v1/sessions/{id}/close [post].
func (h *SessionsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	sid := r.PathValue("id")
	if httpx.SessionIDFromCtx(r.Context()) != sid {
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "ticket_session_mismatch"})
		return
	}

	var req CloseRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional

	var err error
	switch req.Reason {
	case "escape":
		err = h.SessionService.Dismiss(sid, frame.DismissEscape)
	case "backdrop":
		err = h.SessionService.Dismiss(sid, frame.DismissBackdrop)
	default:
		err = h.SessionService.Close(r.Context(), sid)
	}
	if err != nil {
		// A dismissal racing the session's own teardown still counts as
		// closed; only a genuinely unknown session is a 404.
		err = h.SessionService.Close(r.Context(), sid)
	}
	if err != nil {
		httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "session_not_found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
