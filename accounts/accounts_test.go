package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curmorpheus/safesite/storage/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.NewStore())
}

func TestProvision(t *testing.T) {
	t.Run("CreatesAccount", func(t *testing.T) {
		svc := newTestService(t)
		acct, err := svc.Provision("Pat@Example.com", "Pat Rivera", "steel-toe-boots")
		require.NoError(t, err)
		assert.NotEmpty(t, acct.ID)
		assert.Equal(t, "pat@example.com", acct.Email, "email stored lowercased")
		assert.Equal(t, "Pat Rivera", acct.Name)
		assert.NotEqual(t, "steel-toe-boots", acct.PasswordHash)
		assert.False(t, acct.CreatedAt.IsZero())
	})

	t.Run("RejectsDuplicateEmail", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Provision("pat@example.com", "Pat", "pw-one")
		require.NoError(t, err)
		_, err = svc.Provision("PAT@EXAMPLE.COM", "Other Pat", "pw-two")
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("RejectsBadInput", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Provision("not-an-email", "Pat", "pw")
		assert.Error(t, err)
		_, err = svc.Provision("pat@example.com", "", "pw")
		assert.Error(t, err)
		_, err = svc.Provision("pat@example.com", "Pat", "")
		assert.Error(t, err)
	})
}

func TestFindByEmail(t *testing.T) {
	svc := newTestService(t)
	created, err := svc.Provision("pat@example.com", "Pat", "pw")
	require.NoError(t, err)

	t.Run("CaseInsensitive", func(t *testing.T) {
		acct, err := svc.FindByEmail("  PAT@example.COM ")
		require.NoError(t, err)
		assert.Equal(t, created.ID, acct.ID)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := svc.FindByEmail("nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestList(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Provision("zoe@example.com", "Zoe", "pw")
	require.NoError(t, err)
	_, err = svc.Provision("al@example.com", "Al", "pw")
	require.NoError(t, err)

	accts, err := svc.List()
	require.NoError(t, err)
	require.Len(t, accts, 2)
	assert.Equal(t, "al@example.com", accts[0].Email, "listed in email order")
	assert.Equal(t, "zoe@example.com", accts[1].Email)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t)
	created, err := svc.Provision("pat@example.com", "Pat", "steel-toe-boots")
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		acct, err := svc.Authenticate("pat@example.com", "steel-toe-boots")
		require.NoError(t, err)
		assert.Equal(t, created.ID, acct.ID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := svc.Authenticate("pat@example.com", "sneakers")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := svc.Authenticate("nobody@example.com", "steel-toe-boots")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown email indistinguishable from bad password")
	})

	t.Run("MalformedEmail", func(t *testing.T) {
		_, err := svc.Authenticate("", "steel-toe-boots")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Provision("pat@example.com", "Pat", "old-password")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword("pat@example.com", "new-password"))

	_, err = svc.Authenticate("pat@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate("pat@example.com", "new-password")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword("nobody@example.com", "pw"), ErrNotFound)
}
