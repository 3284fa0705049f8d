package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"

	"github.com/curmorpheus/safesite/internal/util"
	"github.com/curmorpheus/safesite/internal/uuid"
)

const (
	// SessionLifetime is the fixed validity window stamped into every
	// issued token. Expiry is always issue time plus this duration.
	SessionLifetime = 8 * time.Hour

	// minSecretLen is the minimum length of the HS256 signing secret.
	minSecretLen = 32
)

// ErrSecretTooShort is returned when the configured signing secret does not
// meet the minimum length. The server treats this as fatal at startup.
var ErrSecretTooShort = fmt.Errorf("signing secret must be at least %d bytes", minSecretLen)

// SessionClaims is the verified identity carried by a session token.
type SessionClaims struct {
	UserID    string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the wire shape of the JWT payload.
type tokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed session tokens. The signing
// secret is held in a memguard enclave so it is encrypted at rest in process
// memory and only materialized for the duration of a sign or verify call.
type TokenService struct {
	secret   *memguard.Enclave
	lifetime time.Duration
	now      func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source. Only intended for tests.
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLifetime overrides the session lifetime.
func WithLifetime(d time.Duration) TokenOption {
	return func(s *TokenService) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// NewTokenService constructs a TokenService from the given signing secret.
// The secret slice is wiped after it is sealed into the enclave. Secrets
// shorter than 32 bytes are rejected outright.
func NewTokenService(secret []byte, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < minSecretLen {
		return nil, ErrSecretTooShort
	}
	s := &TokenService{
		// NewEnclave wipes the source buffer after sealing.
		secret:   memguard.NewEnclave(secret),
		lifetime: SessionLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a fresh token for the given identity. Every call mints a new
// token: issue time is stamped from the clock and a unique token ID is
// included, so tokens are never reused or memoized.
func (s *TokenService) Issue(userID, email, role string) (string, time.Time, error) {
	if userID == "" || email == "" || role == "" {
		return "", time.Time{}, errors.New("userID, email, and role are required")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.lifetime)
	claims := tokenClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New(),
		},
	}

	buf, err := s.secret.Open()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("opening signing secret: %w", err)
	}
	defer buf.Destroy()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(buf.Bytes())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of a token and returns its claims,
// or nil if the token is invalid in any way: empty input, wrong number of
// segments, bad signature, expired, or any of userId/email/role missing.
// Verify is total over all string inputs and never panics or mutates state.
func (s *TokenService) Verify(token string) *SessionClaims {
	if token == "" {
		return nil
	}

	buf, err := s.secret.Open()
	if err != nil {
		return nil
	}
	defer buf.Destroy()

	secretBytes := append([]byte(nil), buf.Bytes()...)
	defer util.WipeBytes(secretBytes)

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secretBytes, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil
	}
	if claims.UserID == "" || claims.Email == "" || claims.Role == "" {
		return nil
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil
	}
	// Expiry must be strictly in the future.
	if !claims.ExpiresAt.Time.After(s.now()) {
		return nil
	}
	return &SessionClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}
