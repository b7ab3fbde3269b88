package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTicketRoundTrip(t *testing.T) {
	t.Parallel()

	signer, pemData, err := GenerateEdDSA("bridged-key-001")
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	require.NotEmpty(t, pemData)

	keys := NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	require.True(t, keys.IsReady())

	verifier := NewCommonEdDSA(keys, "bridged")

	claims := NewTicketClaims("01ARZ3SESSION", "app_demo", "https://shop.example.com", "base", "bridged", time.Minute, time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01ARZ3SESSION", got.SID)
	require.Equal(t, "app_demo", got.AppID)
	require.Equal(t, "https://shop.example.com", got.Origin)
	require.Equal(t, "base", got.Network)
	require.NotEmpty(t, got.ID, "jti is set")
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	t.Parallel()

	signerA, _, err := GenerateEdDSA("key-a")
	require.NoError(t, err)
	signerB, _, err := GenerateEdDSA("key-a") // same kid, different key
	require.NoError(t, err)

	keys := NewKeySet()
	require.NoError(t, keys.AddSigner(signerA))
	verifier := NewCommonEdDSA(keys, "")

	token, err := signerB.Sign(NewTicketClaims("sid", "app", "https://x.test", "base", "", time.Minute, time.Now().UTC()))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	signer, _, err := GenerateEdDSA("key-001")
	require.NoError(t, err)
	keys := NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := NewCommonEdDSA(keys, "")

	stale := NewTicketClaims("sid", "app", "https://x.test", "base", "", time.Minute, time.Now().UTC().Add(-time.Hour))
	token, err := signer.Sign(stale)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsIssuerMismatch(t *testing.T) {
	t.Parallel()

	signer, _, err := GenerateEdDSA("key-001")
	require.NoError(t, err)
	keys := NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := NewCommonEdDSA(keys, "bridged")

	token, err := signer.Sign(NewTicketClaims("sid", "app", "https://x.test", "base", "someone-else", time.Minute, time.Now().UTC()))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestSignerFromPEM(t *testing.T) {
	t.Parallel()

	_, pemData, err := GenerateEdDSA("key-001")
	require.NoError(t, err)

	reloaded, err := NewSignerEdDSA("key-001", pemData)
	require.NoError(t, err)
	require.Equal(t, "EdDSA", reloaded.Alg())
	require.Equal(t, "key-001", reloaded.KID())

	_, err = NewSignerEdDSA("key-001", []byte("not pem"))
	require.Error(t, err)
}
