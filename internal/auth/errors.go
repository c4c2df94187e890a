// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by a UserRepository when a unique key (the username)
// is already taken.
var ErrConflict = errors.New("already exists")

// ErrHashing marks failures of the password hashing subsystem. These are
// always fatal to the calling operation.
var ErrHashing = errors.New("password hashing failed")
