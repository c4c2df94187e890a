// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package auth

import (
	"net/http"
	"time"
)

// DefaultCookieName is the name of the session cookie.
const DefaultCookieName = "qid"

// CookiePolicy describes the session cookie handed to clients. HttpOnly and
// SameSite=Lax are fixed; Secure is only set for production deployments so
// plain-HTTP local development keeps working.
type CookiePolicy struct {
	Name   string
	Secure bool
	MaxAge time.Duration
	now    func() time.Time
}

// DefaultCookiePolicy returns the policy for the given deployment mode.
func DefaultCookiePolicy(production bool) CookiePolicy {
	return CookiePolicy{
		Name:   DefaultCookieName,
		Secure: production,
		MaxAge: SessionTTL,
	}
}

func (p CookiePolicy) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p CookiePolicy) name() string {
	if p.Name == "" {
		return DefaultCookieName
	}
	return p.Name
}

// Cookie builds the cookie carrying the session token.
func (p CookiePolicy) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     p.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(p.MaxAge / time.Second),
		Expires:  p.clock().Add(p.MaxAge).UTC(),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Clear builds a cookie that makes the client drop the session cookie.
func (p CookiePolicy) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     p.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Token extracts the session token from a request, or "" if absent.
func (p CookiePolicy) Token(r *http.Request) string {
	c, err := r.Cookie(p.name())
	if err != nil {
		return ""
	}
	return c.Value
}
