// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"time"
)

// Account is a persisted user account.
//
// CredentialHash and CredentialSalt are serialized so stores can keep
// them. Records must pass through Sanitize before they're returned to
// anyone outside this service.
type Account struct {
	ID         string    `json:"id"`
	CreatedOn  time.Time `json:"createdOn"`
	ModifiedOn time.Time `json:"modifiedOn"`
	Email      string    `json:"email"`

	CredentialHash string `json:"credentialHash,omitempty"`
	CredentialSalt string `json:"credentialSalt,omitempty"`

	Name     string                 `json:"name,omitempty"`
	Bio      string                 `json:"bio,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	Enabled   bool `json:"enabled"`
	Confirmed bool `json:"confirmed"`

	LastLogin                   *time.Time `json:"lastLogin,omitempty"`
	LoginFailureCount           *int       `json:"loginFailureCount,omitempty"`
	LoginFailureOn              *time.Time `json:"loginFailureOn,omitempty"`
	LoginFailureIPAddress       *string    `json:"loginFailureIpAddress,omitempty"`
	LoginLockoutUntil           *time.Time `json:"loginLockoutUntil,omitempty"`
	LoginFailureLockoutDuration *int       `json:"loginFailureLockoutDuration,omitempty"` // seconds
}

// Update holds the fields of a partial update. A nil field leaves the
// stored value untouched.
type Update struct {
	Name      *string                `json:"name,omitempty"`
	Bio       *string                `json:"bio,omitempty"`
	Enabled   *bool                  `json:"enabled,omitempty"`
	Confirmed *bool                  `json:"confirmed,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`

	LastLogin                   *time.Time `json:"lastLogin,omitempty"`
	LoginFailureCount           *int       `json:"loginFailureCount,omitempty"`
	LoginFailureOn              *time.Time `json:"loginFailureOn,omitempty"`
	LoginFailureIPAddress       *string    `json:"loginFailureIpAddress,omitempty"`
	LoginLockoutUntil           *time.Time `json:"loginLockoutUntil,omitempty"`
	LoginFailureLockoutDuration *int       `json:"loginFailureLockoutDuration,omitempty"`
}

// apply merges u over a and reports whether any field was supplied.
func (u Update) apply(a *Account) bool {
	changed := false
	if u.Name != nil {
		a.Name, changed = *u.Name, true
	}
	if u.Bio != nil {
		a.Bio, changed = *u.Bio, true
	}
	if u.Enabled != nil {
		a.Enabled, changed = *u.Enabled, true
	}
	if u.Confirmed != nil {
		a.Confirmed, changed = *u.Confirmed, true
	}
	if u.Metadata != nil {
		a.Metadata, changed = u.Metadata, true
	}
	if u.LastLogin != nil {
		a.LastLogin, changed = u.LastLogin, true
	}
	if u.LoginFailureCount != nil {
		a.LoginFailureCount, changed = u.LoginFailureCount, true
	}
	if u.LoginFailureOn != nil {
		a.LoginFailureOn, changed = u.LoginFailureOn, true
	}
	if u.LoginFailureIPAddress != nil {
		a.LoginFailureIPAddress, changed = u.LoginFailureIPAddress, true
	}
	if u.LoginLockoutUntil != nil {
		a.LoginLockoutUntil, changed = u.LoginLockoutUntil, true
	}
	if u.LoginFailureLockoutDuration != nil {
		a.LoginFailureLockoutDuration, changed = u.LoginFailureLockoutDuration, true
	}
	return changed
}

// Sanitize returns a copy of a without credential material. The argument
// is never modified. Sanitize(nil) returns nil.
func Sanitize(a *Account) *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.CredentialHash = ""
	out.CredentialSalt = ""
	return &out
}
