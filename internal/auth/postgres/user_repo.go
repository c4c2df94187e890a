// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

// Package postgres implements auth.UserRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/credcore/credcore/internal/auth"
)

// Querier is the subset of *pgxpool.Pool used by UserRepository.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements auth.UserRepository using PostgreSQL.
//
// Username uniqueness is enforced by the users_username_key constraint, so
// concurrent registrations of the same name resolve inside the database.
type UserRepository struct {
	pool Querier
	now  func() time.Time
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool Querier) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

// Create inserts the user, assigning its ID and CreatedAt on success.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	id := ulid.Make()
	createdAt := r.now().UTC().Truncate(time.Microsecond)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		id.String(),
		user.Username,
		user.PasswordHash,
		createdAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_ALREADY_EXISTS").
				With("username", user.Username).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}

	user.ID = id
	user.CreatedAt = createdAt
	return nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		username     string
		passwordHash string
		createdAt    time.Time
	)
	if err := row.Scan(&idStr, &username, &passwordHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt.UTC(),
	}, nil
}
