package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/curmorpheus/safesite/internal/util"
)

const (
	inviteTokenBytes = 32
	defaultInviteTTL = 48 * time.Hour
)

// inviteState holds the server-side state for a pending superintendent
// invite. Invites live in memory only and do not survive server restarts;
// an unredeemed invite is simply reissued.
type inviteState struct {
	Token     string
	Email     string
	Name      string
	CreatedBy string
	ExpiresAt time.Time
	Accepted  bool
}

// inviteStore is a thread-safe in-memory store for pending invites.
type inviteStore struct {
	mu      sync.Mutex
	invites map[string]*inviteState
	now     func() time.Time
}

func newInviteStore() *inviteStore {
	return &inviteStore{
		invites: make(map[string]*inviteState),
		now:     time.Now,
	}
}

func (s *inviteStore) create(email, name, createdBy string, ttl time.Duration) (*inviteState, error) {
	tokenBytes, err := util.RandomBytes(inviteTokenBytes)
	if err != nil {
		return nil, err
	}

	inv := &inviteState{
		Token:     util.HexEncode(tokenBytes),
		Email:     email,
		Name:      name,
		CreatedBy: createdBy,
		ExpiresAt: s.now().Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	s.invites[inv.Token] = inv
	return inv, nil
}

// get returns a pending invite if it exists and is still valid.
func (s *inviteStore) get(token string) (*inviteState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[token]
	if !ok || inv.Accepted || s.now().After(inv.ExpiresAt) {
		return nil, false
	}
	return inv, true
}

// accept marks an invite as redeemed. Returns false if the invite doesn't
// exist, is expired, or was already redeemed.
func (s *inviteStore) accept(token string) (*inviteState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[token]
	if !ok || inv.Accepted || s.now().After(inv.ExpiresAt) {
		return nil, false
	}
	inv.Accepted = true
	return inv, true
}

// cleanupLocked removes expired or redeemed invites. Must be called with mu held.
func (s *inviteStore) cleanupLocked() {
	now := s.now()
	for token, inv := range s.invites {
		if inv.Accepted || now.After(inv.ExpiresAt) {
			delete(s.invites, token)
		}
	}
}

// CreateInvite handles POST /invites, admin only. The returned URL is also
// the payload the admin screen renders as a QR code for the superintendent
// to scan on their phone.
func (a *API) CreateInvite(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	req, ok := decodeJSON[CreateInviteRequest](w, r)
	if !ok {
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "email and name are required")
		return
	}

	inv, err := a.invites.create(req.Email, req.Name, claims.UserID, defaultInviteTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}

	a.audit.logUser(EventInviteCreated, r, claims.UserID,
		slog.String("invitee", req.Email))
	writeJSON(w, http.StatusCreated, CreateInviteResponse{
		Token:     inv.Token,
		URL:       fmt.Sprintf("%s/invite/%s", a.baseURL, inv.Token),
		ExpiresAt: inv.ExpiresAt,
	})
}

// GetInvite handles GET /invites/{token}. The field client calls this after
// scanning the QR code to show who the invite is for before asking the
// superintendent to choose a password.
func (a *API) GetInvite(w http.ResponseWriter, r *http.Request) {
	inv, ok := a.invites.get(chi.URLParam(r, "token"))
	if !ok {
		writeError(w, http.StatusNotFound, "invite not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, InviteDetails{
		Email:     inv.Email,
		Name:      inv.Name,
		ExpiresAt: inv.ExpiresAt,
	})
}

// AcceptInvite handles POST /invites/{token}/accept. Redeeming the invite
// provisions the superintendent account with the chosen password.
func (a *API) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[AcceptInviteRequest](w, r)
	if !ok {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	inv, ok := a.invites.accept(chi.URLParam(r, "token"))
	if !ok {
		writeError(w, http.StatusNotFound, "invite not found or expired")
		return
	}

	acct, err := a.accounts.Provision(inv.Email, inv.Name, req.Password)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logUser(EventInviteAccepted, r, acct.ID,
		slog.String("email", acct.Email))
	a.audit.logUser(EventAccountProvisioned, r, acct.ID,
		slog.String("email", acct.Email),
		slog.String("invited_by", inv.CreatedBy))
	writeJSON(w, http.StatusCreated, AcceptInviteResponse{
		UserID: acct.ID,
		Email:  acct.Email,
	})
}
