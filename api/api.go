// Package api implements the HTTP surface of the safety form service:
// session authentication, rate-limited login, form submission and delivery,
// and superintendent invites.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/curmorpheus/safesite/accounts"
	"github.com/curmorpheus/safesite/auth"
	"github.com/curmorpheus/safesite/ratelimit"
	"github.com/curmorpheus/safesite/storage"
)

//go:embed openapi.yaml
var openapiSpec []byte

// API holds the dependencies needed by the REST handlers.
type API struct {
	store    storage.Store
	accounts *accounts.Service
	tokens   *auth.TokenService
	admin    auth.AdminCredential

	limits     *ratelimit.Store
	ownsLimits bool
	invites    *inviteStore
	audit      *securityLogger
	metrics    *metricsCollector
	email      EmailSender

	adminEmail string
	baseURL    string
	now        func() time.Time
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for security audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newSecurityLogger(logger)
	}
}

// WithEmailSender sets the outbound mail implementation.
func WithEmailSender(sender EmailSender) Option {
	return func(a *API) {
		if sender != nil {
			a.email = sender
		}
	}
}

// WithRateLimitStore supplies an externally owned limiter, for example one
// shared with another listener. The API will not close it.
func WithRateLimitStore(s *ratelimit.Store) Option {
	return func(a *API) {
		if s != nil {
			a.limits = s
			a.ownsLimits = false
		}
	}
}

// WithBaseURL sets the externally reachable base URL used in invite links.
func WithBaseURL(u string) Option {
	return func(a *API) {
		a.baseURL = u
	}
}

// WithAdminEmail sets the email embedded in administrator session tokens.
func WithAdminEmail(email string) Option {
	return func(a *API) {
		if email != "" {
			a.adminEmail = email
		}
	}
}

// New creates a new API instance over the given store and credentials.
func New(store storage.Store, tokens *auth.TokenService, admin auth.AdminCredential, opts ...Option) *API {
	a := &API{
		store:      store,
		accounts:   accounts.NewService(store),
		tokens:     tokens,
		admin:      admin,
		invites:    newInviteStore(),
		metrics:    newMetricsCollector(),
		adminEmail: "admin@local",
		baseURL:    "http://localhost:8080",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.limits == nil {
		a.limits = ratelimit.NewStore()
		a.ownsLimits = true
	}
	if a.audit == nil {
		a.audit = newSecurityLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	a.audit.metrics = a.metrics
	if a.email == nil {
		a.email = logEmailSender{logger: a.audit.logger}
	}
	return a
}

// Close releases resources owned by the API, currently the rate limiter's
// background sweeper.
func (a *API) Close() {
	if a.ownsLimits {
		a.limits.Close()
	}
}

// Accounts exposes the account service for provisioning from the CLI.
func (a *API) Accounts() *accounts.Service {
	return a.accounts
}

// MetricsHandler serves the Prometheus exposition endpoint. It is returned
// separately so the server can mount it outside the versioned API prefix.
func (a *API) MetricsHandler() http.Handler {
	return a.metrics.Handler()
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(a.countRequests)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	// The limiter is mounted before AuthMiddleware on every rate-limited
	// route: requests are counted and rejected before session verification
	// or any other work.
	r.With(a.rateLimit("login", "Too many login attempts", ratelimit.Strict)).
		Post("/auth/login", a.Login)
	r.With(a.rateLimit("session", "Too many requests", ratelimit.Lenient)).
		Get("/auth/session", a.Session)
	r.Post("/auth/logout", a.Logout)
	r.With(a.rateLimit("password_change", "Too many requests", ratelimit.Moderate), a.AuthMiddleware).
		Post("/auth/password", a.ChangePassword)

	r.Route("/forms", func(r chi.Router) {
		r.With(a.rateLimit("forms_submit", "Too many form submissions", ratelimit.Moderate), a.AuthMiddleware).
			Post("/", a.SubmitForm)
		r.With(a.rateLimit("forms_list", "Too many requests", ratelimit.Lenient), a.AuthMiddleware).
			Get("/", a.ListForms)
		r.With(a.rateLimit("forms_get", "Too many requests", ratelimit.Lenient), a.AuthMiddleware).
			Get("/{formID}", a.GetForm)
		r.With(a.rateLimit("forms_email", "Too many email requests", ratelimit.Moderate), a.AuthMiddleware).
			Post("/{formID}/email", a.EmailForm)
	})

	r.With(a.rateLimit("invite_create", "Too many requests", ratelimit.Moderate), a.AuthMiddleware, a.RequireRole(RoleAdmin)).
		Post("/invites", a.CreateInvite)
	r.With(a.rateLimit("invite_get", "Too many requests", ratelimit.Lenient)).
		Get("/invites/{token}", a.GetInvite)
	r.With(a.rateLimit("invite_accept", "Too many requests", ratelimit.Strict)).
		Post("/invites/{token}/accept", a.AcceptInvite)

	return r
}
