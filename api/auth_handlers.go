package api

import (
	"net/http"
)

// invalidCredentials is the single message for every failed login. Wrong
// password, unknown email, and unconfigured admin credential all read the
// same from outside.
const invalidCredentials = "Invalid credentials"

// Login handles POST /auth/login. A request without an email is an
// administrator login against the configured admin credential; with an
// email it is a superintendent login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r)
	if !ok {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	var userID, email, role string
	switch {
	case req.Email == "":
		if !a.admin.Verify(req.Password) {
			a.audit.logFailure(EventLoginFailure, r, "admin credential rejected")
			writeError(w, http.StatusUnauthorized, invalidCredentials)
			return
		}
		userID, email, role = "admin", a.adminEmail, RoleAdmin
	default:
		acct, err := a.accounts.Authenticate(req.Email, req.Password)
		if err != nil {
			a.audit.logFailure(EventLoginFailure, r, "superintendent credential rejected")
			writeError(w, http.StatusUnauthorized, invalidCredentials)
			return
		}
		userID, email, role = acct.ID, acct.Email, RoleSuperintendent
	}

	token, expiresAt, err := a.tokens.Issue(userID, email, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeAuthCookie(w, r, token)

	a.audit.logUser(EventLoginSuccess, r, userID)
	writeJSON(w, http.StatusOK, LoginResponse{
		UserID:    userID,
		Email:     email,
		Role:      role,
		ExpiresAt: expiresAt,
	})
}

// Session handles GET /auth/session, the probe clients run on startup.
// A missing or invalid token answers 401 with authenticated=false rather
// than an error body, so probing is cheap on both sides.
func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, SessionResponse{Authenticated: false})
		return
	}
	claims := a.tokens.Verify(cookie.Value)
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, SessionResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Authenticated: true,
		User: &SessionUser{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		},
	})
}

// Logout handles POST /auth/logout. Logging out without a session is fine;
// the cookie is cleared either way.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(authCookieName); err == nil {
		if claims := a.tokens.Verify(cookie.Value); claims != nil {
			a.audit.logUser(EventLogout, r, claims.UserID)
		}
	}
	clearAuthCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ChangePassword handles POST /auth/password for authenticated
// superintendents.
func (a *API) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil || claims.Role != RoleSuperintendent {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	req, ok := decodeJSON[changePasswordRequest](w, r)
	if !ok {
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "newPassword is required")
		return
	}

	// The current password must verify before the hash is replaced.
	if _, err := a.accounts.Authenticate(claims.Email, req.CurrentPassword); err != nil {
		a.audit.logFailure(EventLoginFailure, r, "password change with wrong current password")
		writeError(w, http.StatusUnauthorized, invalidCredentials)
		return
	}
	if err := a.accounts.ChangePassword(claims.Email, req.NewPassword); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logUser(EventPasswordChanged, r, claims.UserID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

