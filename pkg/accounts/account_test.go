// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccount__Sanitize(t *testing.T) {
	when := time.Date(2022, time.March, 1, 12, 0, 0, 0, time.UTC)
	a := &Account{
		ID:             "id",
		CreatedOn:      when,
		ModifiedOn:     when,
		Email:          "u@example.com",
		CredentialHash: "hash",
		CredentialSalt: "salt",
		Name:           "Alice",
		Bio:            "x",
		Metadata:       map[string]interface{}{"k": "v"},
		Enabled:        true,
		LastLogin:      &when,
	}

	out := Sanitize(a)
	require.Empty(t, out.CredentialHash)
	require.Empty(t, out.CredentialSalt)

	// every other field is carried over
	expected := *a
	expected.CredentialHash, expected.CredentialSalt = "", ""
	require.Equal(t, &expected, out)

	// the input still has its secrets
	require.Equal(t, "hash", a.CredentialHash)
	require.Equal(t, "salt", a.CredentialSalt)

	// idempotent
	require.Equal(t, out, Sanitize(out))

	require.Nil(t, Sanitize(nil))
}

func TestAccount__SanitizeJSON(t *testing.T) {
	bs, err := json.Marshal(Sanitize(&Account{
		ID:             "id",
		Email:          "u@example.com",
		CredentialHash: "hash",
		CredentialSalt: "salt",
	}))
	require.NoError(t, err)
	require.NotContains(t, string(bs), "credential")
	require.NotContains(t, string(bs), "hash")
	require.Contains(t, string(bs), `"enabled":false`)
}

func TestAccount__CleanEmail(t *testing.T) {
	cases := []struct {
		input, expected string
	}{
		{"john.doe+moov@gmail.com", "john.doe+moov@gmail.com"},
		{"John.Doe@Gmail.com", "john.doe@gmail.com"},
		{"J.Smith@Corp.Example", "j.smith@corp.example"},
		{"jsmith@corp.example", "jsmith@corp.example"},
		{"+tag@example.com", "+tag@example.com"},
		{"  u@example.com ", "u@example.com"},
		{"", ""},
		{"no-at-sign", ""},
		{"a@b@c", ""},
		{"@example.com", ""},
		{"u@", ""},
	}
	for i := range cases {
		if res := CleanEmail(cases[i].input); res != cases[i].expected {
			t.Errorf("CleanEmail(%q): got %q", cases[i].input, res)
		}
		if res := CleanEmail(CleanEmail(cases[i].input)); res != cases[i].expected {
			t.Errorf("CleanEmail twice (%q): got %q", cases[i].input, res)
		}
	}
}

func TestAccount__CleanEmailDistinct(t *testing.T) {
	// dot and +tag variants are different mailboxes
	variants := []string{"j.smith@corp.example", "jsmith@corp.example", "jsmith+hr@corp.example"}
	seen := make(map[string]string)
	for _, email := range variants {
		key := CleanEmail(email)
		if other, exists := seen[key]; exists {
			t.Errorf("%q and %q share key %q", email, other, key)
		}
		seen[key] = email
	}
}

func TestAccount__errors(t *testing.T) {
	err := StorageFailure("op", nil)
	require.NoError(t, err)

	err = StorageFailure("buntdb.Insert", ErrEmailTaken)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.ErrorIs(t, err, ErrEmailTaken)
	require.True(t, IsRetryable(err))

	require.False(t, IsRetryable(invalid("email")))
}
