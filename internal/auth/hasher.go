// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

const (
	argon2SaltLen = 16 // salt length in bytes
	argon2KeyLen  = 32 // output length in bytes
)

// Argon2Params are the cost parameters used for new hashes. Existing hashes
// carry their own parameters and verify regardless of the current settings.
type Argon2Params struct {
	MemoryKiB  uint32
	Iterations uint32
	Threads    uint8
}

// DefaultArgon2Params matches the node argon2 defaults the stored hashes
// were historically produced with: 64 MiB, 3 passes, 4 lanes.
var DefaultArgon2Params = Argon2Params{
	MemoryKiB:  64 * 1024,
	Iterations: 3,
	Threads:    4,
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Wrap(fmt.Errorf("password cannot be empty: %w", ErrHashing))

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a self-describing hash of the password. Two calls with the
	// same password return different strings.
	Hash(password string) (string, error)

	// Verify reports whether password matches encodedHash. Malformed hashes
	// never match.
	Verify(password, encodedHash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2Params
	rand   io.Reader
}

// NewArgon2idHasher creates an Argon2idHasher with DefaultArgon2Params.
func NewArgon2idHasher() *Argon2idHasher {
	return NewArgon2idHasherWithParams(DefaultArgon2Params)
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom costs.
// Zero fields fall back to the defaults.
func NewArgon2idHasherWithParams(p Argon2Params) *Argon2idHasher {
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultArgon2Params.MemoryKiB
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultArgon2Params.Iterations
	}
	if p.Threads == 0 {
		p.Threads = DefaultArgon2Params.Threads
	}
	return &Argon2idHasher{params: p, rand: rand.Reader}
}

// Params returns the parameters used for new hashes.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of the password in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").
			With("operation", "generate salt").
			Wrap(fmt.Errorf("%w: %w", ErrHashing, err))
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return false
	}
	if parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	// argon2.IDKey panics on zero threads and silently truncates above uint8.
	if threads == 0 || threads > 255 || iterations == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	keyLen := len(expected)
	if keyLen == 0 || keyLen > 1<<10 {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computed, expected) == 1
}
