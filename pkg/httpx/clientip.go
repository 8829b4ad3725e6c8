package httpx

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the sentinel used when no client IP can be derived. All
// such requests share one low-trust rate-limit bucket rather than bypassing
// the limiter.
const UnknownClient = "unknown"

// ClientIP derives the client address for rate-limit keys and audit records.
//
// Forwarding headers are attacker-controlled unless a trusted proxy strips
// and rewrites them, so they are only consulted when trustProxy is set.
// Precedence with trustProxy: first X-Forwarded-For entry, then X-Real-IP,
// then the transport peer address. Without it: transport peer address only.
// Every request maps to exactly one key; a request with no derivable address
// maps to UnknownClient.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host = strings.TrimSpace(host); host != "" {
		return host
	}
	return UnknownClient
}
