// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package accounts implements the account lifecycle: creation with a
// hashed credential, lookups, partial updates and hard deletes.
//
// Lookups that find nothing return (nil, nil). Errors are reserved for
// invalid input (ErrInvalidArgument) and store failures (*StorageError).
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
)

// saltLength is the number of random bytes in each account's custom salt.
const saltLength = 128

// fallbackDecoyHash is used only if the hasher can't produce a decoy.
const fallbackDecoyHash = "AAABAgMEBQYHCAkKCwwNDg9qUVO9lU3oMoBi7kHXIbRdWY1B3PBn66SAD0qtfN1WPg=="

// Service manages accounts on top of a Store. It holds no mutable state
// between calls and is safe for concurrent use.
type Service struct {
	store  Store
	hasher Hasher
	logger log.Logger

	// decoyHash is verified against when no account matches a login so
	// both paths derive a key with the same parameters.
	decoyHash string

	now   func() time.Time
	newID func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger log.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new account IDs are created.
func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func NewService(store Store, hasher Hasher, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		hasher: hasher,
		logger: log.NewNopLogger(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.decoyHash = newDecoyHash(hasher)
	return s
}

func newDecoyHash(hasher Hasher) string {
	secret, err := hasher.GenerateSalt(32)
	if err != nil {
		return fallbackDecoyHash
	}
	hash, err := hasher.Hash(secret, "")
	if err != nil {
		return fallbackDecoyHash
	}
	return hash
}

// Create hashes password with a fresh custom salt and persists a new,
// enabled and unconfirmed account. The returned record still carries its
// credential material; Sanitize it before handing it out.
func (s *Service) Create(ctx context.Context, email, password string) (*Account, error) {
	if email == "" {
		return nil, invalid("email")
	}
	if password == "" {
		return nil, invalid("password")
	}
	if CleanEmail(email) == "" {
		return nil, fmt.Errorf("malformed email: %w", ErrInvalidArgument)
	}

	salt, err := s.hasher.GenerateSalt(saltLength)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	hash, err := s.hasher.Hash(password, salt)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	now := s.now().UTC()
	a := &Account{
		ID:             s.newID(),
		CreatedOn:      now,
		ModifiedOn:     now,
		Email:          email,
		CredentialHash: hash,
		CredentialSalt: salt,
		Enabled:        true,
		Confirmed:      false,
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Log("accounts", "created account", "id", a.ID)
	return a, nil
}

// Get returns the account with id, or nil if there is none.
func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, invalid("id")
	}
	return s.store.FindByID(ctx, id)
}

// GetByEmail returns the account using email, or nil if there is none.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	if email == "" {
		return nil, invalid("email")
	}
	return s.store.FindByEmail(ctx, email)
}

// Update merges the non-nil fields of u over the stored account and
// persists the result. It returns nil when no account has id.
func (s *Service) Update(ctx context.Context, id string, u Update) (*Account, error) {
	if id == "" {
		return nil, invalid("id")
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil || a == nil {
		return nil, err
	}

	if u.apply(a) {
		a.ModifiedOn = s.now().UTC()
	}
	if err := s.store.Update(ctx, a); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// deleted since we read it
			return nil, nil
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return a, nil
}

// Delete removes the account with id and reports whether one existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, invalid("id")
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil || a == nil {
		return false, err
	}
	if err := s.store.Delete(ctx, a); err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}

	s.logger.Log("accounts", "deleted account", "id", id)
	return true, nil
}

// Authenticate returns the enabled account matching email and password,
// or nil. A credential stored with outdated hashing parameters is
// re-hashed on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	if email == "" {
		return nil, invalid("email")
	}
	if password == "" {
		return nil, invalid("password")
	}

	a, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if a == nil || a.CredentialHash == "" {
		_, _ = s.hasher.Verify(s.decoyHash, password, "")
		return nil, nil
	}

	ok, err := s.hasher.Verify(a.CredentialHash, password, a.CredentialSalt)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok || !a.Enabled {
		return nil, nil
	}

	if rh, ok := s.hasher.(rehasher); ok && rh.NeedsRehash(a.CredentialHash) {
		if err := s.rehash(ctx, a, password); err != nil {
			// the login itself succeeded; try again next time
			s.logger.Log("accounts", "rehash failed", "id", a.ID, "error", err)
		}
	}
	return a, nil
}

func (s *Service) rehash(ctx context.Context, a *Account, password string) error {
	salt, err := s.hasher.GenerateSalt(saltLength)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password, salt)
	if err != nil {
		return err
	}

	next := *a
	next.CredentialHash, next.CredentialSalt = hash, salt
	next.ModifiedOn = s.now().UTC()
	if err := s.store.Update(ctx, &next); err != nil {
		return err
	}
	*a = next
	return nil
}
