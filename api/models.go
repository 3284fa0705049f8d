package api

import (
	"encoding/json"
	"time"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	// RetryAfter is set only on rate-limited responses, in whole seconds.
	RetryAfter int `json:"retryAfter,omitempty"`
}

// LoginRequest is the JSON body for POST /auth/login. An empty email means
// an administrator login against the configured admin credential; otherwise
// the pair is checked against superintendent accounts.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// LoginResponse is returned from a successful POST /auth/login.
type LoginResponse struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionResponse is returned from GET /auth/session.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *SessionUser `json:"user,omitempty"`
}

// SessionUser describes the authenticated user in a SessionResponse.
type SessionUser struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// SubmitFormRequest is the JSON body for POST /forms.
type SubmitFormRequest struct {
	Site     string          `json:"site"`
	FormType string          `json:"formType"`
	Data     json.RawMessage `json:"data"`
}

// FormRecord is one stored safety form.
type FormRecord struct {
	ID          string          `json:"id"`
	Site        string          `json:"site"`
	FormType    string          `json:"formType"`
	Data        json.RawMessage `json:"data"`
	SubmittedBy string          `json:"submittedBy"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

// ListFormsResponse is returned from GET /forms.
type ListFormsResponse struct {
	Forms []FormRecord `json:"forms"`
	PaginationMeta
}

// EmailFormRequest is the JSON body for POST /forms/{formID}/email.
type EmailFormRequest struct {
	To string `json:"to"`
}

// CreateInviteRequest is the JSON body for POST /invites.
type CreateInviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateInviteResponse is returned from POST /invites. The URL doubles as
// the QR payload rendered by the invite screen.
type CreateInviteResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// InviteDetails is returned from GET /invites/{token}.
type InviteDetails struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AcceptInviteRequest is the JSON body for POST /invites/{token}/accept.
type AcceptInviteRequest struct {
	Password string `json:"password"`
}

// AcceptInviteResponse is returned from a successful invite acceptance.
type AcceptInviteResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
