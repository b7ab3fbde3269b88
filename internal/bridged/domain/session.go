package domain

import "time"

// Outcome is the terminal result of a bridge session as recorded in the
// audit log. Open sessions have no outcome yet.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// SessionRecord is the audit row for one bridge session. It captures the
// lifecycle of the sign-in, not its content: no consent payloads, no avatar
// data, only the resolved address and nickname on success.
type SessionRecord struct {
	ID           string
	AppID        string
	Network      string
	CallerOrigin string

	State string

	// Terminal fields, nil/empty until the session resolves.
	Outcome    Outcome
	ErrorCode  string
	Address    string
	Nickname   string
	ResolvedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resolved reports whether the session reached a terminal outcome.
func (r SessionRecord) Resolved() bool { return r.Outcome != "" }
