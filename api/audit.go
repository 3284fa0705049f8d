package api

import (
	"log/slog"
	"net/http"
	"time"
)

// SecurityEvent identifies the type of security-relevant action being logged.
type SecurityEvent string

const (
	EventLoginSuccess       SecurityEvent = "login_success"
	EventLoginFailure       SecurityEvent = "login_failure"
	EventLogout             SecurityEvent = "logout"
	EventRateLimited        SecurityEvent = "rate_limit_exceeded"
	EventInvalidToken       SecurityEvent = "invalid_token"
	EventFormSubmitted      SecurityEvent = "form_submitted"
	EventFormEmailed        SecurityEvent = "form_emailed"
	EventInviteCreated      SecurityEvent = "invite_created"
	EventInviteAccepted     SecurityEvent = "invite_accepted"
	EventAccountProvisioned SecurityEvent = "account_provisioned"
	EventPasswordChanged    SecurityEvent = "password_changed"
)

// eventSeverities maps each event type to its fixed severity. The mapping
// is not caller-configurable: a rate-limit rejection is always high, a
// successful login always low, no matter which handler records it.
var eventSeverities = map[SecurityEvent]string{
	EventLoginSuccess:       "low",
	EventLoginFailure:       "medium",
	EventLogout:             "low",
	EventRateLimited:        "high",
	EventInvalidToken:       "medium",
	EventFormSubmitted:      "low",
	EventFormEmailed:        "low",
	EventInviteCreated:      "low",
	EventInviteAccepted:     "low",
	EventAccountProvisioned: "critical",
	EventPasswordChanged:    "medium",
}

// severityLevels translates a severity into the slog level it logs at, so
// operators can filter on level alone.
var severityLevels = map[string]slog.Level{
	"low":      slog.LevelInfo,
	"medium":   slog.LevelWarn,
	"high":     slog.LevelWarn,
	"critical": slog.LevelError,
}

// securityLogger writes structured security audit entries. Logging is
// fire-and-forget: a handler never fails or blocks its request because an
// audit write had a problem.
type securityLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newSecurityLogger(logger *slog.Logger) *securityLogger {
	return &securityLogger{
		logger: logger.With("component", "security"),
	}
}

// log writes one audit entry. Panics from a misbehaving slog handler are
// swallowed so audit logging can never take down a request.
func (sl *securityLogger) log(event SecurityEvent, r *http.Request, attrs ...slog.Attr) {
	defer func() { recover() }()

	severity, ok := eventSeverities[event]
	if !ok {
		severity = "low"
	}
	level, ok := severityLevels[severity]
	if !ok {
		level = slog.LevelInfo
	}
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("severity", severity),
		slog.String("client", resolveClientIdentity(r)),
		slog.String("path", r.URL.Path),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	sl.logger.LogAttrs(r.Context(), level, "security", baseAttrs...)
	if sl.metrics != nil {
		sl.metrics.recordEvent(event)
	}
}

// logUser is a convenience for events attributable to a known user.
func (sl *securityLogger) logUser(event SecurityEvent, r *http.Request, userID string, extra ...slog.Attr) {
	attrs := []slog.Attr{slog.String("user_id", userID)}
	attrs = append(attrs, extra...)
	sl.log(event, r, attrs...)
}

// logFailure is a convenience for failed or rejected actions.
func (sl *securityLogger) logFailure(event SecurityEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{slog.String("reason", reason)}
	attrs = append(attrs, extra...)
	sl.log(event, r, attrs...)
}
