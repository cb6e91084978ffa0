// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package credentials

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixedSalt is 0x00..0x0f, used to pin derived output in vectors below.
var fixedSalt = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

const (
	legacyVector   = "AAABAgMEBQYHCAkKCwwNDg9qUVO9lU3oMoBi7kHXIbRdWY1B3PBn66SAD0qtfN1WPg=="
	iteratedVector = "AQAAE4gAAQIDBAUGBwgJCgsMDQ4PAh85ZWzx9nUKbZQkJ9bwiDo5L/AOsL2IrM7XfDiLuz4="
)

func newTestHasher(t *testing.T, opts ...Option) *Hasher {
	t.Helper()
	h, err := New("pepper", opts...)
	require.NoError(t, err)
	return h
}

func TestHasher__New(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrMissingPrivateSalt)

	_, err = New("pepper", WithIterations(0))
	require.Error(t, err)

	h, err := New("pepper", WithIterations(5000))
	require.NoError(t, err)
	require.Equal(t, 5000, h.Iterations())
}

func TestHasher__GenerateSalt(t *testing.T) {
	h := newTestHasher(t)

	salt, err := h.GenerateSalt(0)
	require.NoError(t, err)
	bs, err := base64.StdEncoding.DecodeString(salt)
	require.NoError(t, err)
	require.Len(t, bs, DefaultSaltLength)

	salt, err = h.GenerateSalt(24)
	require.NoError(t, err)
	bs, err = base64.StdEncoding.DecodeString(salt)
	require.NoError(t, err)
	require.Len(t, bs, 24)
}

func TestHasher__GenerateSaltUnique(t *testing.T) {
	h := newTestHasher(t)

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		salt, err := h.GenerateSalt(DefaultSaltLength)
		require.NoError(t, err)
		require.False(t, seen[salt], "duplicate salt on iteration %d", i)
		seen[salt] = true
	}
}

func TestHasher__deterministicWithSalt(t *testing.T) {
	h := newTestHasher(t)
	require.Equal(t, legacyVector, h.hashWithSalt(fixedSalt, "abc123", "custom"))
	require.Equal(t, h.hashWithSalt(fixedSalt, "abc123", "custom"), h.hashWithSalt(fixedSalt, "abc123", "custom"))

	h = newTestHasher(t, WithIterations(5000))
	require.Equal(t, iteratedVector, h.hashWithSalt(fixedSalt, "abc123", "custom"))
}

func TestHasher__layout(t *testing.T) {
	h := newTestHasher(t)
	out, err := h.Hash("abc123", "")
	require.NoError(t, err)
	bs, err := base64.StdEncoding.DecodeString(out)
	require.NoError(t, err)
	require.Len(t, bs, 1+SaltSize+SubkeyLength)
	require.Equal(t, byte(0x00), bs[0])

	h = newTestHasher(t, WithIterations(2000))
	out, err = h.Hash("abc123", "")
	require.NoError(t, err)
	bs, err = base64.StdEncoding.DecodeString(out)
	require.NoError(t, err)
	require.Len(t, bs, 1+4+SaltSize+SubkeyLength)
	require.Equal(t, byte(0x01), bs[0])
}

func TestHasher__HashEmpty(t *testing.T) {
	h := newTestHasher(t)
	_, err := h.Hash("", "custom")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHasher__roundTrip(t *testing.T) {
	cases := []struct {
		plaintext, customSalt string
		opts                  []Option
	}{
		{"abc123", "", nil},
		{"abc123", "custom", nil},
		{"correct horse battery staple", "c2FsdA==", nil},
		{"ünïcødé", "", nil},
		{"abc123", "custom", []Option{WithIterations(2000)}},
	}
	for i := range cases {
		h := newTestHasher(t, cases[i].opts...)
		stored, err := h.Hash(cases[i].plaintext, cases[i].customSalt)
		require.NoError(t, err)

		ok, err := h.Verify(stored, cases[i].plaintext, cases[i].customSalt)
		require.NoError(t, err)
		require.True(t, ok, "case #%d", i)

		ok, err = h.Verify(stored, cases[i].plaintext+"x", cases[i].customSalt)
		require.NoError(t, err)
		require.False(t, ok, "case #%d", i)

		ok, err = h.Verify(stored, cases[i].plaintext, cases[i].customSalt+"x")
		require.NoError(t, err)
		require.False(t, ok, "case #%d", i)
	}
}

func TestHasher__privateSaltMatters(t *testing.T) {
	a := newTestHasher(t)
	b, err := New("other-pepper")
	require.NoError(t, err)

	stored, err := a.Hash("abc123", "")
	require.NoError(t, err)

	ok, err := b.Verify(stored, "abc123", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasher__sameInputDifferentHashes(t *testing.T) {
	h := newTestHasher(t)
	first, err := h.Hash("abc123", "custom")
	require.NoError(t, err)
	second, err := h.Hash("abc123", "custom")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

// Hash produced by the previous service with an empty private salt.
func TestHasher__legacyHash(t *testing.T) {
	h := &Hasher{iterations: LegacyIterations}

	stored := "ACrMBIzHGveka+QeJYfkRU5s8KaX5yGPQYJXEnL/HEIO9ABjimnLLYUqC6yFhLj5Cg=="
	customSalt := "Hcvbixc6ZptFqIGf53gqk7t+6nyqD0hGRqbu+OxTtrw+zga56YuSTPAGDee1DtmvolyS3EC4vlwGsFAPtoTfl0zwl7UvZk/OSAIGyZ9ZIAnmzcl0cVQ5kexqjx0RMh4D9gmI1zhXfv1RGvQF9f101xDUjAnB361Kzo88LDXnxSI="

	ok, err := h.Verify(stored, "abc123", customSalt)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify(stored, "abc124", customSalt)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasher__verifyAcrossIterationSettings(t *testing.T) {
	legacy := newTestHasher(t)
	upgraded := newTestHasher(t, WithIterations(5000))

	ok, err := upgraded.Verify(legacyVector, "abc123", "custom")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = legacy.Verify(iteratedVector, "abc123", "custom")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHasher__VerifyMalformed(t *testing.T) {
	h := newTestHasher(t)

	raw, err := base64.StdEncoding.DecodeString(legacyVector)
	require.NoError(t, err)

	wrongMarker := append([]byte{0x07}, raw[1:]...)
	truncated := raw[:len(raw)-1]
	extended := append(append([]byte{}, raw...), 0x00)

	hugeIterations := []byte{0x01, 0xff, 0xff, 0xff, 0xff}
	hugeIterations = append(hugeIterations, raw[1:]...)
	zeroIterations := []byte{0x01, 0x00, 0x00, 0x00, 0x00}
	zeroIterations = append(zeroIterations, raw[1:]...)

	cases := []string{
		"not base64 at all!",
		"AA==",
		base64.StdEncoding.EncodeToString(wrongMarker),
		base64.StdEncoding.EncodeToString(truncated),
		base64.StdEncoding.EncodeToString(extended),
		base64.StdEncoding.EncodeToString(hugeIterations),
		base64.StdEncoding.EncodeToString(zeroIterations),
		legacyVector[:20],
	}
	for i := range cases {
		ok, err := h.Verify(cases[i], "abc123", "custom")
		require.NoError(t, err, "case #%d", i)
		require.False(t, ok, "case #%d", i)
	}
}

func TestHasher__VerifyEmptyStoredHash(t *testing.T) {
	h := newTestHasher(t)
	_, err := h.Verify("", "abc123", "")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHasher__NeedsRehash(t *testing.T) {
	legacy := newTestHasher(t)
	upgraded := newTestHasher(t, WithIterations(5000))

	require.False(t, legacy.NeedsRehash(legacyVector))
	require.True(t, legacy.NeedsRehash(iteratedVector))
	require.True(t, upgraded.NeedsRehash(legacyVector))
	require.False(t, upgraded.NeedsRehash(iteratedVector))
	require.True(t, legacy.NeedsRehash("garbage"))
}
