package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("RejectsEmpty", func(t *testing.T) {
		_, err := HashPassword("")
		assert.Error(t, err)
	})

	t.Run("SaltedHashesDiffer", func(t *testing.T) {
		h1, err := HashPassword("hardhat-required")
		require.NoError(t, err)
		h2, err := HashPassword("hardhat-required")
		require.NoError(t, err)

		assert.NotEqual(t, h1, h2, "bcrypt should salt each hash")
		assert.True(t, VerifyPassword(h1, "hardhat-required"))
		assert.True(t, VerifyPassword(h2, "hardhat-required"))
	})

	t.Run("UnicodeEquivalentsVerify", func(t *testing.T) {
		// U+00E9 and U+0065 U+0301 are the same character in NFKD.
		h, err := HashPassword("café")
		require.NoError(t, err)
		assert.True(t, VerifyPassword(h, "café"))
	})
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	t.Run("CorrectPassword", func(t *testing.T) {
		assert.True(t, VerifyPassword(hash, "correct horse"))
	})

	t.Run("WrongPassword", func(t *testing.T) {
		assert.False(t, VerifyPassword(hash, "incorrect horse"))
	})

	t.Run("EmptyPassword", func(t *testing.T) {
		assert.False(t, VerifyPassword(hash, ""))
	})

	t.Run("MalformedHash", func(t *testing.T) {
		assert.False(t, VerifyPassword("not-a-bcrypt-hash", "correct horse"))
		assert.False(t, VerifyPassword("$2a$10$truncated", "correct horse"))
	})

	t.Run("EmptyHash", func(t *testing.T) {
		assert.False(t, VerifyPassword("", "correct horse"))
		assert.False(t, VerifyPassword("", ""))
	})
}

func TestAdminCredential(t *testing.T) {
	hash, err := HashPassword("site-admin-pw")
	require.NoError(t, err)

	t.Run("Configured", func(t *testing.T) {
		cred := NewAdminCredential(hash)
		require.True(t, cred.Configured())
		assert.True(t, cred.Verify("site-admin-pw"))
		assert.False(t, cred.Verify("wrong"))
	})

	t.Run("UnconfiguredFailsClosed", func(t *testing.T) {
		cred := NewAdminCredential("")
		assert.False(t, cred.Configured())
		assert.False(t, cred.Verify("site-admin-pw"))
		assert.False(t, cred.Verify(""))
	})

	t.Run("WhitespaceOnlyHashFailsClosed", func(t *testing.T) {
		cred := NewAdminCredential("   \n")
		assert.False(t, cred.Configured())
		assert.False(t, cred.Verify("anything"))
	})
}
