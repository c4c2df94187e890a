// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32                  // 32 bytes = 64 hex chars
	SessionTTL        = 30 * 24 * time.Hour // fixed from creation, never renewed
)

// Session binds an opaque token to a user.
type Session struct {
	Token     string    `json:"-"`
	UserID    ulid.ULID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiresAt returns when a session created with ttl stops being valid.
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

// SessionStore is a key-value store with per-entry expiry.
//
// Implementations must not extend an entry's lifetime on Get.
type SessionStore interface {
	// Put stores the session under token for ttl.
	Put(ctx context.Context, token string, session *Session, ttl time.Duration) error

	// Get returns the session stored under token, or an error wrapping
	// ErrNotFound when it is absent or expired.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes the session. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error
}

// GenerateSessionToken creates a cryptographically random hex token.
func GenerateSessionToken() (string, error) {
	return generateSessionToken(rand.Reader)
}

func generateSessionToken(r io.Reader) (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// SessionManager creates, resolves and destroys sessions.
type SessionManager struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
	rand  io.Reader
}

// NewSessionManager creates a SessionManager using SessionTTL.
func NewSessionManager(store SessionStore) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Code("SESSION_INVALID_DEPENDENCY").Errorf("session store is required")
	}
	return &SessionManager{
		store: store,
		ttl:   SessionTTL,
		now:   time.Now,
		rand:  rand.Reader,
	}, nil
}

// TTL returns the lifetime given to new sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create starts a session for userID and returns it with its token.
func (m *SessionManager) Create(ctx context.Context, userID ulid.ULID) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}

	token, err := generateSessionToken(m.rand)
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	session := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: m.now().UTC(),
	}

	if err := m.store.Put(ctx, token, session, m.ttl); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return session, nil
}

// Lookup resolves a token. Unknown or expired tokens return an error
// wrapping ErrNotFound.
func (m *SessionManager) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
	}

	session, err := m.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(err)
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "get session").
			Wrap(err)
	}
	session.Token = token

	// Stores expire entries themselves; this guards against clock skew
	// between the store and this process.
	if m.now().After(session.ExpiresAt(m.ttl)) {
		return nil, oops.Code("SESSION_EXPIRED").Wrap(ErrNotFound)
	}

	return session, nil
}

// Destroy removes the session named by token.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}
