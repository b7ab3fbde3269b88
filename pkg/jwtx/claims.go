package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rockfridrich/villa-sub000/pkg/cryptox"
)

// DefaultTicketTTL is the default lifetime for bridge session tickets. A
// ticket only needs to outlive one sign-in attempt, so it is kept short.
const DefaultTicketTTL = 10 * time.Minute

// Claims are the session-ticket claims minted by the relay. A ticket binds
// the modal shell to exactly one bridge session: the shell presents it on
// every message it forwards, and the relay refuses anything else.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the bridge session this ticket belongs to.
	SID string `json:"sid,omitempty"`

	// AppID is the requesting application.
	AppID string `json:"app_id,omitempty"`

	// Origin is the host page origin the session was started for.
	Origin string `json:"origin,omitempty"`

	// Network is the Villa deployment the session targets.
	Network string `json:"network,omitempty"`
}

// NewTicketClaims builds minimally-correct ticket claims.
func NewTicketClaims(sid, appID, hostOrigin, network, issuer string, ttl time.Duration, now time.Time) Claims {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sid,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:     sid,
		AppID:   appID,
		Origin:  hostOrigin,
		Network: network,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	return cryptox.MustGenerateToken(cryptox.TokenSize128)
}

// ValidateIssuer checks the issuer when one is expected.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the ticket is within its exp/nbf window.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
