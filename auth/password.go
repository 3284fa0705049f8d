package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/curmorpheus/safesite/internal/util"
)

// HashPassword hashes a plaintext password using bcrypt. bcrypt generates a
// fresh random salt on every call, so hashing the same password twice yields
// two different strings that both verify.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(util.Normalize(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a stored bcrypt hash.
// A malformed or truncated hash verifies as false rather than erroring, so
// a corrupt stored credential can never crash a login path. There is no
// string-equality fast path; the comparison is bcrypt's own.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(util.Normalize(password))) == nil
}

// AdminCredential verifies logins against the single administrator reference
// hash taken from configuration.
type AdminCredential struct {
	hash string
}

// NewAdminCredential wraps the configured administrator reference hash.
// An empty hash is accepted here but fails every verification (fail-closed);
// the server command logs loudly when the hash is absent.
func NewAdminCredential(hash string) AdminCredential {
	return AdminCredential{hash: strings.TrimSpace(hash)}
}

// Configured reports whether a reference hash is present.
func (c AdminCredential) Configured() bool {
	return c.hash != ""
}

// Verify checks a candidate password against the reference hash. When no
// reference hash is configured it returns false for every input, including
// the empty string.
func (c AdminCredential) Verify(password string) bool {
	if c.hash == "" {
		return false
	}
	return VerifyPassword(c.hash, password)
}
