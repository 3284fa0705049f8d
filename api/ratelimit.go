package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/curmorpheus/safesite/ratelimit"
)

// rateLimit returns middleware applying a fixed-window limit to the named
// route. It must sit outermost on its route, before authentication or any
// validation, so that every request is counted and rejected before costing
// anything: unauthenticated spam consumes the window like everything else.
//
// Rejected requests get a 429 with Retry-After and the X-RateLimit family of
// headers, plus a JSON body carrying the same retry hint for clients that
// never look at headers.
func (a *API) rateLimit(route, message string, cfg ratelimit.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := a.limits.Check(resolveClientIdentity(r), route, cfg)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(res.RetryAfter(a.now()) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				a.audit.logFailure(EventRateLimited, r, "too many requests")
				writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
					Error:      message,
					RetryAfter: retryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
