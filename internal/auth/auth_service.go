// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service provides registration and login. It holds no mutable state and is
// safe for concurrent use.
type Service struct {
	users              UserRepository
	hasher             PasswordHasher
	logger             *slog.Logger
	genericLoginErrors bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for operational events.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithGenericLoginErrors makes Login report unknown usernames and wrong
// passwords with the same field error and comparable timing.
func WithGenericLoginErrors() ServiceOption {
	return func(s *Service) {
		s.genericLoginErrors = true
	}
}

// NewAuthService creates a new Service.
func NewAuthService(users UserRepository, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}

	s := &Service{
		users:  users,
		hasher: hasher,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger cannot be nil")
	}
	return s, nil
}

// dummyPasswordHash is verified against when a username is unknown and
// generic login errors are enabled, so both failure paths cost one argon2
// computation. It matches no password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=3,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register validates the credentials and creates a user.
//
// Validation stops at the first failing rule (username before password) and
// then neither hashes nor touches the store. A taken username is reported as
// a field error. Every other failure is returned as an error.
func (s *Service) Register(ctx context.Context, creds Credentials) (*AuthResult, error) {
	if fe := validateRegistration(creds); fe != nil {
		return failure(fe.Field, fe.Message), nil
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			With("username", creds.Username).
			Wrap(err)
	}

	user := &User{
		Username:     creds.Username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return failure(FieldUsername, MsgUsernameTaken), nil
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			With("username", creds.Username).
			Wrap(err)
	}
	if user.ID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			With("username", creds.Username).
			Errorf("user store returned no id")
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"username", user.Username,
	)

	return success(user), nil
}

// Login checks the credentials against the stored user.
func (s *Service) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				With("username", creds.Username).
				Wrap(err)
		}
		if s.genericLoginErrors {
			s.hasher.Verify(creds.Password, dummyPasswordHash)
			return failure(FieldUsername, MsgInvalidCredentials), nil
		}
		return failure(FieldUsername, MsgUsernameNotFound), nil
	}
	if user == nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			With("username", creds.Username).
			Errorf("user store returned no user")
	}

	if !s.hasher.Verify(creds.Password, user.PasswordHash) {
		s.logger.DebugContext(ctx, "login rejected",
			"user_id", user.ID.String(),
			"reason", "incorrect password",
		)
		if s.genericLoginErrors {
			return failure(FieldUsername, MsgInvalidCredentials), nil
		}
		return failure(FieldPassword, MsgIncorrectPassword), nil
	}

	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID.String(),
		"username", user.Username,
	)

	return success(user), nil
}
