// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package auth

import "unicode/utf8"

// Field names used in FieldError.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// Validation messages. The password rule rejects lengths up to 3, so the
// message states the enforced threshold.
const (
	MsgUsernameTooShort   = "length must be greater than 2"
	MsgPasswordTooShort   = "length must be greater than 3"
	MsgUsernameTaken      = "username already exists"
	MsgUsernameNotFound   = "that username doesn't exist"
	MsgIncorrectPassword  = "incorrect password"
	MsgInvalidCredentials = "invalid username or password"
)

// Inclusive upper bounds of rejected lengths, counted in runes.
const (
	maxRejectedUsernameLen = 2
	maxRejectedPasswordLen = 3
)

// FieldError is a validation failure attributed to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements error so a FieldError can be logged or wrapped when
// convenient. It is still returned as data, never as a Go error.
func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// AuthResult is the outcome of Register or Login: either a User or a
// non-empty list of field errors, never both and never neither.
type AuthResult struct {
	User   *User        `json:"user,omitempty"`
	Errors []FieldError `json:"errors,omitempty"`
}

// OK reports whether the result carries a user.
func (r *AuthResult) OK() bool {
	return r != nil && r.User != nil && len(r.Errors) == 0
}

func success(u *User) *AuthResult {
	return &AuthResult{User: u}
}

func failure(field, message string) *AuthResult {
	return &AuthResult{Errors: []FieldError{{Field: field, Message: message}}}
}

// validateRegistration applies the registration rules in order and stops at
// the first violation.
func validateRegistration(c Credentials) *FieldError {
	if utf8.RuneCountInString(c.Username) <= maxRejectedUsernameLen {
		return &FieldError{Field: FieldUsername, Message: MsgUsernameTooShort}
	}
	if utf8.RuneCountInString(c.Password) <= maxRejectedPasswordLen {
		return &FieldError{Field: FieldPassword, Message: MsgPasswordTooShort}
	}
	return nil
}
