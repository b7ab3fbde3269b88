package service

import (
	"errors"
	"time"

	"github.com/rockfridrich/villa-sub000/pkg/jwtx"
)

var ErrTicketSessionMismatch = errors.New("service: ticket not issued for this session")

// TicketService mints and verifies the EdDSA session tickets the modal shell
// presents on every request. A ticket is bound to exactly one session.
type TicketService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string
	TTL      time.Duration
}

// Mint issues a ticket for a freshly created session.
func (s *TicketService) Mint(sid, appID, hostOrigin, network string) (string, error) {
	claims := jwtx.NewTicketClaims(sid, appID, hostOrigin, network, s.Issuer, s.TTL, time.Now().UTC())
	return s.Signer.Sign(claims)
}

// VerifyForSession checks the ticket signature, expiry and issuer, then that
// it was minted for the given session.
func (s *TicketService) VerifyForSession(token, sid string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.SID != sid {
		return jwtx.Claims{}, ErrTicketSessionMismatch
	}
	return claims, nil
}
