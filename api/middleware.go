package api

import (
	"context"
	"net/http"
	"time"

	"github.com/curmorpheus/safesite/auth"
)

type contextKey int

const claimsKey contextKey = iota

const (
	authCookieName = "auth-token"

	// RoleAdmin is the site-office administrator role.
	RoleAdmin = "admin"
	// RoleSuperintendent is the field superintendent role.
	RoleSuperintendent = "superintendent"
)

// AuthMiddleware requires a valid session cookie and stores the verified
// claims on the request context. Any verification failure, expired token
// included, yields the same 401.
func (a *API) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		claims := a.tokens.Verify(cookie.Value)
		if claims == nil {
			a.audit.logFailure(EventInvalidToken, r, "token rejected")
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route to one role. It must be mounted inside
// AuthMiddleware so claims are already on the context.
func (a *API) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil || claims.Role != role {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromContext(ctx context.Context) *auth.SessionClaims {
	claims, _ := ctx.Value(claimsKey).(*auth.SessionClaims)
	return claims
}

// writeAuthCookie sets the session cookie. Max-Age matches the token's own
// 8-hour lifetime so the browser drops the cookie when the token dies.
func writeAuthCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionLifetime / time.Second),
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}
