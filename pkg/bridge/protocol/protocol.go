// Package protocol implements the Villa bridge wire protocol: the typed
// message union posted by the embedded auth page and the codec that
// validates raw payloads before they reach the state machine.
//
// The codec is the trust boundary for message shape. Everything that fails
// validation is rejected as a whole; there is no partial interpretation of
// unknown or half-valid messages.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type tags the message union.
type Type string

const (
	TypeReady          Type = "VILLA_READY"
	TypeAuthSuccess    Type = "VILLA_AUTH_SUCCESS"
	TypeAuthCancel     Type = "VILLA_AUTH_CANCEL"
	TypeAuthError      Type = "VILLA_AUTH_ERROR"
	TypeConsentGranted Type = "VILLA_CONSENT_GRANTED"
	TypeConsentDenied  Type = "VILLA_CONSENT_DENIED"
)

// Terminal reports whether this message type ends a session.
func (t Type) Terminal() bool {
	return t == TypeAuthSuccess || t == TypeAuthCancel || t == TypeAuthError
}

var (
	// ErrMalformed reports input that is not a JSON object.
	ErrMalformed = errors.New("protocol: malformed message")
	// ErrUnknownType reports a type tag outside the recognized set.
	ErrUnknownType = errors.New("protocol: unknown message type")
	// ErrInvalidPayload reports a recognized type with an invalid payload.
	ErrInvalidPayload = errors.New("protocol: invalid payload")
)

// Message is the validated form of a bridge protocol message. Exactly one
// payload field is set, matching Type.
type Message struct {
	Type Type

	Identity *Identity       // TypeAuthSuccess
	Error    *ErrorPayload   // TypeAuthError
	Consent  *ConsentPayload // TypeConsentGranted, TypeConsentDenied
}

// ErrorPayload carries a terminal error from the embedded page.
type ErrorPayload struct {
	Message string `json:"error"`
	Code    Code   `json:"code,omitempty"`
}

// ConsentPayload reports the outcome of the consent step for an application.
type ConsentPayload struct {
	AppID  string   `json:"appId"`
	Scopes []string `json:"scopes,omitempty"`
}

// envelope is the raw outer shape before payload validation.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Parse validates raw postMessage data into a Message. It never panics;
// every malformed input maps to one of the sentinel errors above. Callers
// are expected to drop failures silently (they may come from unrelated
// scripts sharing the page) rather than surface them.
func Parse(raw []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformed
	}
	// json.Unmarshal accepts bare "null" without error; reject it and any
	// other input that produced no type tag alongside no object.
	if env.Type == "" && !isJSONObject(raw) {
		return nil, ErrMalformed
	}

	switch Type(env.Type) {
	case TypeReady, TypeAuthCancel:
		// No payload required.
		return &Message{Type: Type(env.Type)}, nil

	case TypeAuthSuccess:
		return parseSuccess(env.Payload)

	case TypeAuthError:
		return parseError(env.Payload)

	case TypeConsentGranted, TypeConsentDenied:
		return parseConsent(Type(env.Type), env.Payload)

	default:
		return nil, ErrUnknownType
	}
}

func parseSuccess(payload json.RawMessage) (*Message, error) {
	var p struct {
		Identity *Identity `json:"identity"`
	}
	if err := strictUnmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.Identity == nil {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidPayload)
	}
	if err := p.Identity.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &Message{Type: TypeAuthSuccess, Identity: p.Identity}, nil
}

func parseError(payload json.RawMessage) (*Message, error) {
	// Unmarshal into loose types first so a non-string "error" field is a
	// validation failure rather than a JSON type error we cannot tell apart
	// from garbage input.
	var p struct {
		Message any `json:"error"`
		Code    any `json:"code"`
	}
	if err := strictUnmarshal(payload, &p); err != nil {
		return nil, err
	}
	msg, ok := p.Message.(string)
	if !ok {
		return nil, fmt.Errorf("%w: error must be a string", ErrInvalidPayload)
	}
	ep := &ErrorPayload{Message: msg}
	if p.Code != nil {
		code, ok := p.Code.(string)
		if !ok || !Code(code).Valid() {
			return nil, fmt.Errorf("%w: unrecognized error code", ErrInvalidPayload)
		}
		ep.Code = Code(code)
	}
	return &Message{Type: TypeAuthError, Error: ep}, nil
}

func parseConsent(t Type, payload json.RawMessage) (*Message, error) {
	var p struct {
		AppID  string `json:"appId"`
		Scopes []any  `json:"scopes"`
	}
	if err := strictUnmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.AppID == "" {
		return nil, fmt.Errorf("%w: missing appId", ErrInvalidPayload)
	}
	cp := &ConsentPayload{AppID: p.AppID}
	for _, s := range p.Scopes {
		scope, ok := s.(string)
		if !ok {
			return nil, fmt.Errorf("%w: scopes must be strings", ErrInvalidPayload)
		}
		cp.Scopes = append(cp.Scopes, scope)
	}
	return &Message{Type: t, Consent: cp}, nil
}

// strictUnmarshal decodes a payload that must be a JSON object.
func strictUnmarshal(payload json.RawMessage, v any) error {
	if len(payload) == 0 || !isJSONObject(payload) {
		return fmt.Errorf("%w: payload must be an object", ErrInvalidPayload)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// isJSONObject reports whether raw starts a JSON object once leading
// whitespace is skipped.
func isJSONObject(raw []byte) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
