// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"context"
)

// Store persists accounts. Implementations enforce at most one record per
// ID and per CleanEmail(Email), return (nil, nil) from the finders when
// nothing matches, and report failures (including a done ctx) as a
// *StorageError.
type Store interface {
	Insert(ctx context.Context, a *Account) error

	FindByID(ctx context.Context, id string) (*Account, error)

	// FindByEmail accepts a raw or cleaned email address.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Update returns ErrAccountNotFound when no record has a.ID.
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, a *Account) error
}

// Hasher is the credential hashing contract the Service depends on.
// *credentials.Hasher satisfies it.
type Hasher interface {
	GenerateSalt(byteLength int) (string, error)
	Hash(plaintext, customSalt string) (string, error)
	Verify(storedHash, candidate, customSalt string) (bool, error)
}

// rehasher is implemented by hashers that can tell when a stored hash
// was produced with outdated parameters.
type rehasher interface {
	NeedsRehash(storedHash string) bool
}
