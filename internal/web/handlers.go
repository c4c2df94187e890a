// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/credcore/credcore/internal/auth"
	"github.com/credcore/credcore/internal/observability"
	"github.com/credcore/credcore/pkg/errutil"
)

// Operation labels for auth request metrics.
const (
	opRegister = "register"
	opLogin    = "login"
)

const (
	msgInternal        = "internal server error"
	msgMalformedBody   = "malformed request body"
	msgUnauthenticated = "not authenticated"
)

type errorResponse struct {
	Error string `json:"error"`
}

type userResponse struct {
	User *auth.User `json:"user"`
}

type logoutResponse struct {
	OK bool `json:"ok"`
}

type authFunc func(ctx context.Context, creds auth.Credentials) (*auth.AuthResult, error)

func (s *Server) handleRegister(c echo.Context) error {
	return s.authenticate(c, opRegister, s.auth.Register)
}

func (s *Server) handleLogin(c echo.Context) error {
	return s.authenticate(c, opLogin, s.auth.Login)
}

// authenticate runs register or login. A successful result starts a session
// and sets the cookie; field errors are returned as 200 with no cookie.
func (s *Server) authenticate(c echo.Context, op string, fn authFunc) error {
	var creds auth.Credentials
	if err := c.Bind(&creds); err != nil {
		s.metrics.RecordAuth(op, observability.OutcomeRejected)
		return echo.NewHTTPError(http.StatusBadRequest, msgMalformedBody).SetInternal(err)
	}

	ctx := c.Request().Context()
	result, err := fn(ctx, creds)
	if err != nil {
		s.metrics.RecordAuth(op, observability.OutcomeError)
		return err
	}
	if !result.OK() {
		s.metrics.RecordAuth(op, observability.OutcomeRejected)
		return c.JSON(http.StatusOK, result)
	}

	session, err := s.sessions.Create(ctx, result.User.ID)
	if err != nil {
		s.metrics.RecordAuth(op, observability.OutcomeError)
		return oops.Code("WEB_SESSION_START_FAILED").
			With("operation", op).
			With("user_id", result.User.ID.String()).
			Wrap(err)
	}
	s.metrics.RecordSession(observability.SessionCreated)
	s.metrics.RecordAuth(op, observability.OutcomeSuccess)

	c.SetCookie(s.cookies.Cookie(session.Token))
	return c.JSON(http.StatusOK, result)
}

// handleLogout destroys the session named by the cookie, if any, and
// clears the cookie either way.
func (s *Server) handleLogout(c echo.Context) error {
	if token := s.cookies.Token(c.Request()); token != "" {
		if err := s.sessions.Destroy(c.Request().Context(), token); err != nil {
			return err
		}
		s.metrics.RecordSession(observability.SessionDestroyed)
	}
	c.SetCookie(s.cookies.Clear())
	return c.JSON(http.StatusOK, logoutResponse{OK: true})
}

// handleMe returns the user behind the session cookie.
func (s *Server) handleMe(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := s.sessions.Lookup(ctx, s.cookies.Token(c.Request()))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			s.metrics.RecordSession(observability.SessionInvalid)
			return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthenticated)
		}
		return err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			s.metrics.RecordSession(observability.SessionInvalid)
			return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthenticated)
		}
		return oops.Code("WEB_SESSION_USER_FAILED").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	s.metrics.RecordSession(observability.SessionResolved)

	return c.JSON(http.StatusOK, userResponse{User: user})
}

// handleError renders errors as JSON. Unexpected errors are logged and
// reported to the client without detail.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, errorResponse{Error: msg})
		return
	}

	errutil.LogErrorContext(c.Request().Context(), s.logger, "request failed", err)
	_ = c.JSON(http.StatusInternalServerError, errorResponse{Error: msgInternal})
}
