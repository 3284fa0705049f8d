package api

import (
	"net/http"
	"strings"
)

// unknownClient is the identity used when no forwarding header names a
// client. All such requests share one rate-limit bucket, which is the safe
// direction to fail: anonymous traffic is throttled together rather than
// each request getting a fresh allowance.
const unknownClient = "unknown"

// resolveClientIdentity extracts the client identity used for rate limiting
// and audit logs. Proxy headers are consulted in precedence order:
// X-Forwarded-For (first entry), then X-Real-IP, then CF-Connecting-IP.
// The server is expected to sit behind a trusted proxy that sets these.
func resolveClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// The first comma-separated entry is the original client; later
		// entries are the proxies the request passed through.
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	return unknownClient
}
