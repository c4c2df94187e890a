// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

// Package web exposes the auth service over HTTP and carries sessions in a
// cookie.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/credcore/credcore/internal/auth"
	"github.com/credcore/credcore/internal/observability"
)

// Authenticator registers and logs in users.
type Authenticator interface {
	Register(ctx context.Context, creds auth.Credentials) (*auth.AuthResult, error)
	Login(ctx context.Context, creds auth.Credentials) (*auth.AuthResult, error)
}

// Sessions creates, resolves and destroys sessions.
type Sessions interface {
	Create(ctx context.Context, userID ulid.ULID) (*auth.Session, error)
	Lookup(ctx context.Context, token string) (*auth.Session, error)
	Destroy(ctx context.Context, token string) error
}

// UserFinder loads the user behind a session.
type UserFinder interface {
	GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error)
}

// Option configures a Server.
type Option func(*Server)

// WithCookiePolicy sets the session cookie policy.
func WithCookiePolicy(p auth.CookiePolicy) Option {
	return func(s *Server) {
		s.cookies = p
	}
}

// WithMetrics records request and session counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger for requests and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server serves the auth endpoints.
type Server struct {
	addr       string
	echo       *echo.Echo
	auth       Authenticator
	sessions   Sessions
	users      UserFinder
	cookies    auth.CookiePolicy
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a Server that will listen on addr once started.
func NewServer(addr string, authn Authenticator, sessions Sessions, users UserFinder, opts ...Option) (*Server, error) {
	if authn == nil {
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("authenticator is required")
	}
	if sessions == nil {
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("session manager is required")
	}
	if users == nil {
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("user finder is required")
	}

	s := &Server{
		addr:     addr,
		auth:     authn,
		sessions: sessions,
		users:    users,
		cookies:  auth.DefaultCookiePolicy(false),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("logger cannot be nil")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	// The logger wraps recovery so recovered panics are logged as 500s.
	e.Use(s.requestLogger())
	e.Use(s.recovery())

	e.POST("/register", s.handleRegister)
	e.POST("/login", s.handleLogin)
	e.POST("/logout", s.handleLogout)
	e.GET("/me", s.handleMe)

	s.echo = e
	return s, nil
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving. The returned channel receives a serve error, if
// any, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}

	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" if it has
// not been started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
