// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// User represents a registered account.
type User struct {
	ID           ulid.ULID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Credentials is the username/password pair submitted by a caller. It is
// never persisted and never logged with the password.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// String omits the password.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + "}"
}

// LogValue implements slog.LogValuer so credentials can be logged safely.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username))
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create inserts the user and assigns its ID and CreatedAt. The uniqueness
	// check and the insert are one atomic operation; a taken username yields
	// an error wrapping ErrConflict.
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by exact username.
	// Returns an error wrapping ErrNotFound if there is none.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID retrieves a user by ID.
	// Returns an error wrapping ErrNotFound if there is none.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)
}
