// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"errors"
	"fmt"

	"github.com/moov-io/accounts/pkg/credentials"
)

var (
	// ErrInvalidArgument is returned when a required value (email,
	// password, id) is empty or malformed. It matches the credentials
	// package's sentinel so either can be checked with errors.Is.
	ErrInvalidArgument = credentials.ErrInvalidArgument

	// ErrEmailTaken is returned by a Store when another account already
	// uses the (cleaned) email address.
	ErrEmailTaken = errors.New("email already in use")

	// ErrAccountNotFound is returned by Store.Update when the record is
	// gone, e.g. deleted after it was read. Retrying won't help.
	ErrAccountNotFound = errors.New("account not found")

	// ErrStorageUnavailable is matched by every *StorageError.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError reports a Store operation that could not complete. It
// unwraps to the underlying cause, so a canceled request still matches
// context.Canceled, and always matches ErrStorageUnavailable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageUnavailable, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

// StorageFailure wraps err in a *StorageError, nil stays nil.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsRetryable reports whether err came from a Store failure the caller
// may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func invalid(field string) error {
	return fmt.Errorf("%s is required: %w", field, ErrInvalidArgument)
}
