// Package accounts manages superintendent login accounts. Accounts are
// stored as JSON records keyed by lowercased email, so lookup is
// case-insensitive and an email can only ever hold one account.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/curmorpheus/safesite/auth"
	"github.com/curmorpheus/safesite/internal/uuid"
	"github.com/curmorpheus/safesite/storage"
)

// Bucket is the storage bucket holding superintendent records.
const Bucket = "accounts"

var (
	// ErrNotFound is returned when no account exists for an email.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadyExists is returned when provisioning over an existing email.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrInvalidCredentials is returned for any failed authentication. The
	// caller gets no signal whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Superintendent is one field-superintendent account.
type Superintendent struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Service provides account provisioning and authentication over a store.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService constructs an account service over the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Provision creates a new superintendent account with the given password.
// The email is normalized to lower case before it becomes the record key.
func (s *Service) Provision(email, name, password string) (Superintendent, error) {
	key, err := normalizeEmail(email)
	if err != nil {
		return Superintendent{}, err
	}
	if name == "" {
		return Superintendent{}, errors.New("name is required")
	}

	if _, err := s.store.Get(Bucket, key); err == nil {
		return Superintendent{}, ErrAlreadyExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Superintendent{}, fmt.Errorf("checking for existing account: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Superintendent{}, err
	}

	acct := Superintendent{
		ID:           uuid.New(),
		Email:        key,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.put(acct); err != nil {
		return Superintendent{}, err
	}
	return acct, nil
}

// FindByEmail looks up an account. The lookup is case-insensitive.
func (s *Service) FindByEmail(email string) (Superintendent, error) {
	key, err := normalizeEmail(email)
	if err != nil {
		return Superintendent{}, err
	}
	return s.get(key)
}

// List returns every account, ordered by email.
func (s *Service) List() ([]Superintendent, error) {
	keys, err := s.store.List(Bucket)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	accts := make([]Superintendent, 0, len(keys))
	for _, key := range keys {
		acct, err := s.get(key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		accts = append(accts, acct)
	}
	return accts, nil
}

// ChangePassword replaces the stored hash after rehashing the new password.
func (s *Service) ChangePassword(email, newPassword string) error {
	acct, err := s.FindByEmail(email)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	acct.PasswordHash = hash
	return s.put(acct)
}

// Authenticate verifies an email and password pair. Every failure mode,
// unknown email included, returns ErrInvalidCredentials so response timing
// and wording never reveal which accounts exist.
func (s *Service) Authenticate(email, password string) (Superintendent, error) {
	acct, err := s.FindByEmail(email)
	if err != nil {
		// Burn a hash comparison so unknown emails cost the same as
		// wrong passwords.
		auth.VerifyPassword(decoyHash, password)
		return Superintendent{}, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(acct.PasswordHash, password) {
		return Superintendent{}, ErrInvalidCredentials
	}
	return acct, nil
}

// decoyHash is a bcrypt hash of an unguessable throwaway value, used to
// equalize timing when the email does not resolve to an account.
const decoyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func normalizeEmail(email string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" || !strings.Contains(key, "@") {
		return "", errors.New("invalid email address")
	}
	return key, nil
}

func (s *Service) put(acct Superintendent) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encoding account: %w", err)
	}
	if err := s.store.Put(Bucket, acct.Email, raw); err != nil {
		return fmt.Errorf("storing account: %w", err)
	}
	return nil
}

func (s *Service) get(key string) (Superintendent, error) {
	raw, err := s.store.Get(Bucket, key)
	if errors.Is(err, storage.ErrNotFound) {
		return Superintendent{}, ErrNotFound
	}
	if err != nil {
		return Superintendent{}, fmt.Errorf("loading account: %w", err)
	}
	var acct Superintendent
	if err := json.Unmarshal(raw, &acct); err != nil {
		return Superintendent{}, fmt.Errorf("decoding account: %w", err)
	}
	return acct, nil
}
