package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validAddress = "0x1234567890123456789012345678901234567890"

func TestParseRejectsNonObjects(t *testing.T) {
	t.Parallel()

	inputs := []string{
		``,
		`not json at all`,
		`"a string"`,
		`42`,
		`null`,
		`true`,
		`[1,2,3]`,
		`{"type": 5}`,
		`{broken`,
	}
	for _, in := range inputs {
		msg, err := Parse([]byte(in))
		require.Nil(t, msg, "input %q", in)
		require.Error(t, err, "input %q", in)
	}
}

func TestParseRejectsUnknownTypes(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		`{}`,
		`{"type":""}`,
		`{"type":"VILLA_SOMETHING_ELSE"}`,
		`{"type":"villa_ready"}`,
		`{"type":"VILLA_READY "}`,
	} {
		_, err := Parse([]byte(in))
		require.ErrorIs(t, err, ErrUnknownType, "input %q", in)
	}
}

func TestParseNoPayloadTypes(t *testing.T) {
	t.Parallel()

	msg, err := Parse([]byte(`{"type":"VILLA_READY"}`))
	require.NoError(t, err)
	require.Equal(t, TypeReady, msg.Type)
	require.False(t, msg.Type.Terminal())

	msg, err = Parse([]byte(`{"type":"VILLA_AUTH_CANCEL"}`))
	require.NoError(t, err)
	require.Equal(t, TypeAuthCancel, msg.Type)
	require.True(t, msg.Type.Terminal())
}

func TestParseAuthSuccess(t *testing.T) {
	t.Parallel()

	t.Run("valid identity", func(t *testing.T) {
		msg, err := Parse([]byte(`{
			"type": "VILLA_AUTH_SUCCESS",
			"payload": {"identity": {
				"address": "` + validAddress + `",
				"nickname": "alice",
				"avatar": {"style": "adventurer", "seed": "x"}
			}}
		}`))
		require.NoError(t, err)
		require.Equal(t, TypeAuthSuccess, msg.Type)
		require.NotNil(t, msg.Identity)
		require.Equal(t, validAddress, msg.Identity.Address)
		require.Equal(t, "alice", msg.Identity.Nickname)
		require.Equal(t, "adventurer", msg.Identity.Avatar.Style)
	})

	t.Run("whole message rejected on bad address", func(t *testing.T) {
		_, err := Parse([]byte(`{
			"type": "VILLA_AUTH_SUCCESS",
			"payload": {"identity": {
				"address": "not-an-address",
				"nickname": "x",
				"avatar": {"style": "adventurer", "seed": "s"}
			}}
		}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("rejected on unregistered avatar style", func(t *testing.T) {
		_, err := Parse([]byte(`{
			"type": "VILLA_AUTH_SUCCESS",
			"payload": {"identity": {
				"address": "` + validAddress + `",
				"nickname": "x",
				"avatar": {"style": "mspaint", "seed": "s"}
			}}
		}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("rejected without identity", func(t *testing.T) {
		_, err := Parse([]byte(`{"type":"VILLA_AUTH_SUCCESS","payload":{}}`))
		require.ErrorIs(t, err, ErrInvalidPayload)

		_, err = Parse([]byte(`{"type":"VILLA_AUTH_SUCCESS"}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestParseAuthError(t *testing.T) {
	t.Parallel()

	t.Run("message with known code", func(t *testing.T) {
		msg, err := Parse([]byte(`{"type":"VILLA_AUTH_ERROR","payload":{"error":"passkey ceremony failed","code":"PASSKEY_ERROR"}}`))
		require.NoError(t, err)
		require.Equal(t, "passkey ceremony failed", msg.Error.Message)
		require.Equal(t, CodePasskeyError, msg.Error.Code)
	})

	t.Run("code is optional", func(t *testing.T) {
		msg, err := Parse([]byte(`{"type":"VILLA_AUTH_ERROR","payload":{"error":"boom"}}`))
		require.NoError(t, err)
		require.Equal(t, Code(""), msg.Error.Code)
	})

	t.Run("non-string error rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"type":"VILLA_AUTH_ERROR","payload":{"error":42}}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("unknown code rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"type":"VILLA_AUTH_ERROR","payload":{"error":"x","code":"EXPLODED"}}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestParseConsent(t *testing.T) {
	t.Parallel()

	t.Run("granted with scopes", func(t *testing.T) {
		msg, err := Parse([]byte(`{"type":"VILLA_CONSENT_GRANTED","payload":{"appId":"app_1","scopes":["profile","wallet"]}}`))
		require.NoError(t, err)
		require.Equal(t, TypeConsentGranted, msg.Type)
		require.Equal(t, "app_1", msg.Consent.AppID)
		require.Equal(t, []string{"profile", "wallet"}, msg.Consent.Scopes)
	})

	t.Run("denied without scopes", func(t *testing.T) {
		msg, err := Parse([]byte(`{"type":"VILLA_CONSENT_DENIED","payload":{"appId":"app_1"}}`))
		require.NoError(t, err)
		require.Equal(t, TypeConsentDenied, msg.Type)
		require.Empty(t, msg.Consent.Scopes)
	})

	t.Run("blank appId rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"type":"VILLA_CONSENT_GRANTED","payload":{"appId":""}}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("non-string scope rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"type":"VILLA_CONSENT_GRANTED","payload":{"appId":"a","scopes":["profile",7]}}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestValidAddress(t *testing.T) {
	t.Parallel()

	require.True(t, ValidAddress(validAddress))
	require.True(t, ValidAddress("0xAbCdEf1234567890aBcDeF1234567890abcdef12"))
	require.False(t, ValidAddress("0x123"))
	require.False(t, ValidAddress(validAddress+"00"))
	require.False(t, ValidAddress("1234567890123456789012345678901234567890"))
	require.False(t, ValidAddress("0xGGGG567890123456789012345678901234567890"))
}

func TestCodeValid(t *testing.T) {
	t.Parallel()

	for _, c := range []Code{
		CodeCancelled, CodeTimeout, CodeNetworkError, CodeInvalidOrigin,
		CodeInvalidConfig, CodeAuthFailed, CodePasskeyError, CodeConsentRequired,
	} {
		require.True(t, c.Valid())
	}
	require.False(t, Code("timeout").Valid())
	require.False(t, Code("").Valid())
}
