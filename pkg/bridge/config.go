package bridge

import (
	"strings"
	"time"

	"github.com/rockfridrich/villa-sub000/pkg/bridge/origin"
	"github.com/rockfridrich/villa-sub000/pkg/bridge/protocol"
)

// Network selects the Villa deployment. Re-exported so most hosts only
// import this package.
type Network = origin.Network

const (
	NetworkBase        = origin.NetworkBase
	NetworkBaseSepolia = origin.NetworkBaseSepolia
)

// DefaultTimeout bounds how long a session may stay open without a terminal
// message before the bridge gives up.
const DefaultTimeout = 5 * time.Minute

// Config describes a bridge. Immutable after New; SignIn rejects invalid
// configs synchronously, before any surface is opened.
type Config struct {
	// AppID identifies the requesting application. Required; trimmed.
	AppID string
	// Network selects the Villa deployment. Required.
	Network Network
	// CallerOrigin is the origin of the page hosting the bridge. Required.
	// It is forwarded to the embedded page for response targeting and gates
	// the development allowlist; it never widens message trust by itself.
	CallerOrigin string
	// Scopes are the consent scopes to request. Optional.
	Scopes []string
	// Timeout bounds the session. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Debug raises dropped-message logging from debug to info level.
	Debug bool
}

// normalized returns a copy with whitespace trimmed and defaults applied.
func (c Config) normalized() Config {
	c.AppID = strings.TrimSpace(c.AppID)
	c.CallerOrigin = strings.TrimSpace(c.CallerOrigin)
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// validate reports the first configuration problem as an INVALID_CONFIG
// bridge error.
func (c Config) validate() *Error {
	if c.AppID == "" {
		return &Error{Code: protocol.CodeInvalidConfig, Message: "appId must not be blank"}
	}
	if !c.Network.Valid() {
		return &Error{Code: protocol.CodeInvalidConfig, Message: "unknown network " + string(c.Network)}
	}
	if c.CallerOrigin == "" {
		return &Error{Code: protocol.CodeInvalidConfig, Message: "caller origin must not be blank"}
	}
	return nil
}
