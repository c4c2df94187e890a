// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package auth

import (
	"io"
	"time"
)

// SetHasherRand replaces the salt source of h.
func SetHasherRand(h *Argon2idHasher, r io.Reader) {
	h.rand = r
}

// SetSessionClock replaces the clock of m.
func SetSessionClock(m *SessionManager, now func() time.Time) {
	m.now = now
}

// SetSessionRand replaces the token source of m.
func SetSessionRand(m *SessionManager, r io.Reader) {
	m.rand = r
}

// SetCookieClock returns p with a fixed clock.
func SetCookieClock(p CookiePolicy, now func() time.Time) CookiePolicy {
	p.now = now
	return p
}

// GenerateSessionTokenFrom exposes token generation over an arbitrary reader.
func GenerateSessionTokenFrom(r io.Reader) (string, error) {
	return generateSessionToken(r)
}
