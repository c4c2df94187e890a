// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

// Package auth provides the credential and session core for credcore.
//
// # Domain Types
//
//   - User - a registered account; the password hash never leaves the package
//     in serialized form
//   - Credentials - transient username/password input
//   - FieldError and AuthResult - the validation contract returned to callers
//   - Session - an opaque token bound to a user id, kept in a SessionStore
//
// # Error Tiers
//
// Expected, user-facing failures (short username, taken username, wrong
// password) are returned as data in AuthResult.Errors. Operational failures
// (storage unavailable, hashing failure) are returned as Go errors carrying
// an oops code. The two never mix: a non-nil error always comes with a nil
// result, and a result always holds either a user or at least one FieldError.
//
// # Services
//
//   - Service - registration and login
//   - SessionManager - session creation, lookup and destruction
//   - CookiePolicy - attributes of the session cookie handed to clients
//
// Storage is injected through the UserRepository and SessionStore interfaces;
// concrete adapters live in the postgres and redisstore subpackages.
package auth
