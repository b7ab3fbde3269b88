// Package origin decides whether a message sender is trusted to speak the
// Villa bridge protocol. Trust is an exact-match allowlist keyed by network;
// there is no substring, prefix or suffix matching anywhere in this package,
// so typo-squats (vila.cash), wrong TLDs (villa.com), subdomain-spoof
// suffixes (villa.cash.evil.com) and scheme downgrades are all rejected.
package origin

// Network selects which Villa deployment the bridge talks to.
type Network string

const (
	// NetworkBase is the production deployment.
	NetworkBase Network = "base"
	// NetworkBaseSepolia is the staging/testnet deployment.
	NetworkBaseSepolia Network = "base-sepolia"
)

// Valid reports whether n is a known network.
func (n Network) Valid() bool {
	return n == NetworkBase || n == NetworkBaseSepolia
}

// Production allowlists. These are fixed at compile time on purpose: the
// embed host must never be influenced by caller-supplied strings.
var trustedOrigins = map[Network][]string{
	NetworkBase: {
		"https://villa.cash",
		"https://www.villa.cash",
	},
	NetworkBaseSepolia: {
		"https://staging.villa.cash",
		"https://preview-1.villa.cash",
		"https://preview-2.villa.cash",
		"https://preview-3.villa.cash",
	},
}

// Development allowlist. Only consulted when the host page itself runs from
// a local origin, so a production deployment never trusts localhost.
var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:8080",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:8080",
}

// IsTrusted reports whether a message from the given sender origin may be
// acted on for a session on the given network. hostOrigin is the origin of
// the page hosting the bridge; it gates the development allowlist and is
// never itself trusted. Pure function, no side effects.
func IsTrusted(sender string, network Network, hostOrigin string) bool {
	for _, o := range trustedOrigins[network] {
		if sender == o {
			return true
		}
	}
	if IsLocal(hostOrigin) {
		for _, o := range devOrigins {
			if sender == o {
				return true
			}
		}
	}
	return false
}

// IsLocal reports whether the given origin is one of the fixed local
// development origins.
func IsLocal(o string) bool {
	for _, d := range devOrigins {
		if o == d {
			return true
		}
	}
	return false
}
