package protocol

// Code is the fixed error taxonomy carried in VILLA_AUTH_ERROR payloads.
// CodeTimeout is the only code the bridge generates itself; everything else
// passes through verbatim from the embedded page after validation.
type Code string

const (
	CodeCancelled       Code = "CANCELLED"
	CodeTimeout         Code = "TIMEOUT"
	CodeNetworkError    Code = "NETWORK_ERROR"
	CodeInvalidOrigin   Code = "INVALID_ORIGIN"
	CodeInvalidConfig   Code = "INVALID_CONFIG"
	CodeAuthFailed      Code = "AUTH_FAILED"
	CodePasskeyError    Code = "PASSKEY_ERROR"
	CodeConsentRequired Code = "CONSENT_REQUIRED"
)

var knownCodes = map[Code]struct{}{
	CodeCancelled:       {},
	CodeTimeout:         {},
	CodeNetworkError:    {},
	CodeInvalidOrigin:   {},
	CodeInvalidConfig:   {},
	CodeAuthFailed:      {},
	CodePasskeyError:    {},
	CodeConsentRequired: {},
}

// Valid reports whether c is part of the fixed taxonomy.
func (c Code) Valid() bool {
	_, ok := knownCodes[c]
	return ok
}
