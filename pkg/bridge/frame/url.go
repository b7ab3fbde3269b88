package frame

import (
	"errors"
	"net/url"
	"strings"

	"github.com/rockfridrich/villa-sub000/pkg/bridge/origin"
)

// Per-network embed page locations. Fixed hosts: caller input only ever
// lands in whitelisted query parameters, never in the host or path, which
// closes off open-redirect-style abuse.
var embedBase = map[origin.Network]string{
	origin.NetworkBase:        "https://villa.cash/embed",
	origin.NetworkBaseSepolia: "https://staging.villa.cash/embed",
}

// ErrUnknownNetwork reports a network with no embed deployment.
var ErrUnknownNetwork = errors.New("frame: unknown network")

// EmbedURL builds the iframe target URL for a session. appID and
// callerOrigin are required; scopes are optional and joined comma-separated.
// callerOrigin is passed through so the embedded page can target its
// responses -- it plays no part in the bridge's own trust decisions.
func EmbedURL(network origin.Network, appID string, scopes []string, callerOrigin string) (string, error) {
	base, ok := embedBase[network]
	if !ok {
		return "", ErrUnknownNetwork
	}

	q := url.Values{}
	q.Set("appId", appID)
	if len(scopes) > 0 {
		q.Set("scopes", strings.Join(scopes, ","))
	}
	q.Set("origin", callerOrigin)

	return base + "?" + q.Encode(), nil
}
