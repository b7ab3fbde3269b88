package http

// CreateSessionResponse is returned by POST /v1/sessions.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Ticket    string `json:"ticket"`
	EmbedURL  string `json:"embed_url"`
	EventsURL string `json:"events_url"`
	ModalURL  string `json:"modal_url"`
}

// MessageRequest is the body of POST /v1/sessions/{id}/messages: one
// forwarded window message from the modal shell.
type MessageRequest struct {
	Origin string `json:"origin"`
	Data   string `json:"data"`
}

// CloseRequest optionally names the dismissal gesture.
type CloseRequest struct {
	Reason string `json:"reason,omitempty"` // "escape" or "backdrop"
}

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// HealthChecks reports per-dependency health.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
