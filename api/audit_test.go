package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curmorpheus/safesite/auth"
	"github.com/curmorpheus/safesite/storage/memory"
)

func TestEventSeverities(t *testing.T) {
	for event, want := range map[SecurityEvent]string{
		EventRateLimited:        "high",
		EventLoginSuccess:       "low",
		EventInvalidToken:       "medium",
		EventAccountProvisioned: "critical",
	} {
		assert.Equal(t, want, eventSeverities[event], "event %s", event)
	}
}

func TestSecurityLoggerSeverityAttr(t *testing.T) {
	var buf bytes.Buffer
	sl := newSecurityLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	req := httptest.NewRequest("POST", "/invites/x/accept", nil)
	sl.logUser(EventAccountProvisioned, req, "u1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "account_provisioned", entry["event"])
	assert.Equal(t, "critical", entry["severity"])
	assert.Equal(t, "ERROR", entry["level"], "critical events log at error level")
}

func TestAcceptInviteRecordsProvisioning(t *testing.T) {
	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	adminHash, err := auth.HashPassword(testAdminPassword)
	require.NoError(t, err)

	var buf bytes.Buffer
	a := New(memory.NewStore(), tokens, auth.NewAdminCredential(adminHash),
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	t.Cleanup(a.Close)

	inv, err := a.invites.create("pat@example.com", "Pat", "admin", defaultInviteTTL)
	require.NoError(t, err)

	body, err := json.Marshal(AcceptInviteRequest{Password: "steel-toe-boots"})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/invites/"+inv.Token+"/accept", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	events := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		event, _ := entry["event"].(string)
		severity, _ := entry["severity"].(string)
		events[event] = severity
	}
	assert.Equal(t, "low", events["invite_accepted"])
	assert.Equal(t, "critical", events["account_provisioned"],
		"provisioning an account must be audited")
}
