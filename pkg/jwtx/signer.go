// Package jwtx signs and verifies the relay's bridge session tickets.
// Tickets are EdDSA-signed JWTs; Ed25519 is the only algorithm this service
// mints or accepts.
package jwtx

// Signer is anything that can sign ticket claims.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// NewSignerEdDSA creates an EdDSA signer from PEM bytes. Ed25519 keys must
// be in PKCS8 format.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	return newEdDSASigner(kid, pemKey)
}
