package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret() []byte {
	// NewTokenService wipes the slice it is handed, so mint a fresh copy
	// per call.
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestNewTokenService(t *testing.T) {
	t.Run("RejectsShortSecret", func(t *testing.T) {
		_, err := NewTokenService([]byte("too-short"))
		assert.ErrorIs(t, err, ErrSecretTooShort)
	})

	t.Run("AcceptsMinimumLength", func(t *testing.T) {
		svc, err := NewTokenService(testSecret())
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})
}

func TestTokenIssue(t *testing.T) {
	svc, err := NewTokenService(testSecret())
	require.NoError(t, err)

	t.Run("WellFormed", func(t *testing.T) {
		token, expiresAt, err := svc.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)
		assert.Len(t, strings.Split(token, "."), 3)
		assert.WithinDuration(t, time.Now().Add(SessionLifetime), expiresAt, time.Minute)
	})

	t.Run("FreshTokenEachCall", func(t *testing.T) {
		t1, _, err := svc.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)
		t2, _, err := svc.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)
		assert.NotEqual(t, t1, t2, "token IDs should make each token unique")
	})

	t.Run("RejectsMissingFields", func(t *testing.T) {
		_, _, err := svc.Issue("", "pat@example.com", "superintendent")
		assert.Error(t, err)
		_, _, err = svc.Issue("super-1", "", "superintendent")
		assert.Error(t, err)
		_, _, err = svc.Issue("super-1", "pat@example.com", "")
		assert.Error(t, err)
	})
}

func TestTokenVerify(t *testing.T) {
	svc, err := NewTokenService(testSecret())
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		token, expiresAt, err := svc.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)

		claims := svc.Verify(token)
		require.NotNil(t, claims)
		assert.Equal(t, "super-1", claims.UserID)
		assert.Equal(t, "pat@example.com", claims.Email)
		assert.Equal(t, "superintendent", claims.Role)
		assert.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
	})

	t.Run("EmptyToken", func(t *testing.T) {
		assert.Nil(t, svc.Verify(""))
	})

	t.Run("Garbage", func(t *testing.T) {
		assert.Nil(t, svc.Verify("not a token"))
		assert.Nil(t, svc.Verify("only.two"))
		assert.Nil(t, svc.Verify("a.b.c.d"))
	})

	t.Run("TamperedSignature", func(t *testing.T) {
		token, _, err := svc.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)
		assert.Nil(t, svc.Verify(token[:len(token)-2]+"xx"))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewTokenService([]byte("ffffffffffffffffffffffffffffffff"))
		require.NoError(t, err)
		token, _, err := other.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)
		assert.Nil(t, svc.Verify(token))
	})

	t.Run("Expired", func(t *testing.T) {
		past := time.Now().Add(-24 * time.Hour)
		issuer, err := NewTokenService(testSecret(), WithClock(func() time.Time { return past }))
		require.NoError(t, err)
		token, _, err := issuer.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)

		assert.Nil(t, svc.Verify(token), "token expired 16h ago")
		assert.NotNil(t, issuer.Verify(token), "still valid on the issuer's frozen clock")
	})

	t.Run("ExpiryBoundaryIsExclusive", func(t *testing.T) {
		issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		issuer, err := NewTokenService(testSecret(), WithClock(func() time.Time { return issued }))
		require.NoError(t, err)
		token, expiresAt, err := issuer.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)

		atExpiry, err := NewTokenService(testSecret(), WithClock(func() time.Time { return expiresAt }))
		require.NoError(t, err)
		assert.Nil(t, atExpiry.Verify(token), "a token is invalid at its exact expiry instant")
	})

	t.Run("RepeatedVerifyIsStable", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.Nil(t, svc.Verify("bogus.bogus.bogus"))
		}
		token, _, err := svc.Issue("super-1", "pat@example.com", "superintendent")
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			assert.NotNil(t, svc.Verify(token))
		}
	})
}
