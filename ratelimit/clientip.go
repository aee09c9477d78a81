package ratelimit

import (
	"net/http"
	"strings"
)

// ClientIP extracts the client address from proxy headers: X-Real-IP first,
// then the first X-Forwarded-For entry, then the loopback fallback.
//
// Values are trusted as-is. Without a trusted proxy in front that overwrites
// these headers, a client can spoof its address and dodge per-IP budgets;
// that trust boundary belongs to the deployment, not this function.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return "127.0.0.1"
}
