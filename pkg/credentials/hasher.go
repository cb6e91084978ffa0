// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package credentials derives and verifies salted, keyed password hashes.
//
// A stored hash is a base64 string whose first decoded byte marks the
// layout, so older hashes keep verifying after the parameters change:
//
//	0x00  marker | salt(16) | subkey(32)                 PBKDF2-HMAC-SHA1, 1000 iterations
//	0x01  marker | iterations(uint32 BE) | salt | subkey  PBKDF2-HMAC-SHA256
//
// Every hash mixes a deployment-wide private salt (held only in
// configuration), an optional per-record custom salt and the plaintext.
package credentials

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultSaltLength is the number of random bytes GenerateSalt reads
	// when a non-positive length is asked for.
	DefaultSaltLength = 128

	// SaltSize is the length of the per-hash salt embedded in the output.
	SaltSize = 128 / 8

	// SubkeyLength is the length of the derived key embedded in the output.
	SubkeyLength = 256 / 8

	// LegacyIterations is the fixed PBKDF2 iteration count of format 0x00.
	LegacyIterations = 1000

	// minIterationCeiling keeps verification of upgraded hashes possible
	// when the hasher itself is configured with a low count.
	minIterationCeiling = 1000000
)

const (
	formatLegacy   byte = 0x00
	formatIterated byte = 0x01
)

var (
	// ErrInvalidArgument is returned when a required value is empty.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingPrivateSalt is returned by New without a private salt.
	ErrMissingPrivateSalt = errors.New("credentials: private salt is required")
)

// Hasher hashes and verifies credentials. It holds no mutable state
// and is safe for concurrent use.
type Hasher struct {
	privateSalt string
	iterations  int
}

// Option configures a Hasher.
type Option func(*Hasher) error

// WithIterations sets the PBKDF2 iteration count for new hashes.
// Any count other than LegacyIterations produces format 0x01 hashes.
func WithIterations(n int) Option {
	return func(h *Hasher) error {
		if n < 1 {
			return fmt.Errorf("credentials: iterations must be positive, got %d", n)
		}
		h.iterations = n
		return nil
	}
}

// New returns a Hasher keyed with privateSalt.
func New(privateSalt string, opts ...Option) (*Hasher, error) {
	if privateSalt == "" {
		return nil, ErrMissingPrivateSalt
	}
	h := &Hasher{
		privateSalt: privateSalt,
		iterations:  LegacyIterations,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Iterations returns the iteration count used for new hashes.
func (h *Hasher) Iterations() int {
	return h.iterations
}

// GenerateSalt returns byteLength random bytes, base64 encoded.
func (h *Hasher) GenerateSalt(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultSaltLength
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("credentials: reading salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Hash derives the encoded hash of plaintext. customSalt may be empty.
func (h *Hasher) Hash(plaintext, customSalt string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("credentials: empty plaintext: %w", ErrInvalidArgument)
	}
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("credentials: reading salt: %w", err)
	}
	return h.hashWithSalt(salt, plaintext, customSalt), nil
}

func (h *Hasher) hashWithSalt(salt []byte, plaintext, customSalt string) string {
	p := params{
		format:     formatIterated,
		iterations: h.iterations,
		salt:       salt,
	}
	if h.iterations == LegacyIterations {
		p.format = formatLegacy
	}
	p.subkey = p.derive(h.combine(customSalt, plaintext))
	return base64.StdEncoding.EncodeToString(p.encode())
}

// Verify reports whether candidate matches storedHash. Malformed or
// unrecognized hashes are a mismatch, not an error.
func (h *Hasher) Verify(storedHash, candidate, customSalt string) (bool, error) {
	if storedHash == "" {
		return false, fmt.Errorf("credentials: empty stored hash: %w", ErrInvalidArgument)
	}
	p, ok := h.decode(storedHash)
	if !ok {
		return false, nil
	}
	derived := p.derive(h.combine(customSalt, candidate))
	return subtle.ConstantTimeCompare(derived, p.subkey) == 1, nil
}

// NeedsRehash reports whether storedHash was produced with parameters
// other than the ones this Hasher uses for new hashes.
func (h *Hasher) NeedsRehash(storedHash string) bool {
	p, ok := h.decode(storedHash)
	if !ok {
		return true
	}
	return p.iterations != h.iterations
}

func (h *Hasher) combine(customSalt, plaintext string) []byte {
	return []byte(h.privateSalt + customSalt + plaintext)
}

// maxIterations bounds the work an attacker-supplied hash can demand.
func (h *Hasher) maxIterations() int {
	if n := 4 * h.iterations; n > minIterationCeiling {
		return n
	}
	return minIterationCeiling
}

type params struct {
	format     byte
	iterations int
	salt       []byte
	subkey     []byte
}

func (p params) hash() func() hash.Hash {
	if p.format == formatLegacy {
		return sha1.New
	}
	return sha256.New
}

func (p params) derive(combined []byte) []byte {
	return pbkdf2.Key(combined, p.salt, p.iterations, SubkeyLength, p.hash())
}

func (p params) encode() []byte {
	out := []byte{p.format}
	if p.format == formatIterated {
		out = binary.BigEndian.AppendUint32(out, uint32(p.iterations)) // #nosec G115 -- WithIterations rejects non-positive counts
	}
	out = append(out, p.salt...)
	return append(out, p.subkey...)
}

func (h *Hasher) decode(storedHash string) (params, bool) {
	bs, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil || len(bs) == 0 {
		return params{}, false
	}

	switch bs[0] {
	case formatLegacy:
		if len(bs) != 1+SaltSize+SubkeyLength {
			return params{}, false
		}
		return params{
			format:     formatLegacy,
			iterations: LegacyIterations,
			salt:       bs[1 : 1+SaltSize],
			subkey:     bs[1+SaltSize:],
		}, true

	case formatIterated:
		if len(bs) != 1+4+SaltSize+SubkeyLength {
			return params{}, false
		}
		n := binary.BigEndian.Uint32(bs[1:5])
		if n == 0 || uint64(n) > uint64(h.maxIterations()) {
			return params{}, false
		}
		return params{
			format:     formatIterated,
			iterations: int(n),
			salt:       bs[5 : 5+SaltSize],
			subkey:     bs[5+SaltSize:],
		}, true
	}
	return params{}, false
}
