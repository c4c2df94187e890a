// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package web

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
)

// recovery turns a handler panic into a 500 and logs the stack.
func (s *Server) recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.ErrorContext(c.Request().Context(), "panic recovered",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", c.Request().Method),
						slog.String("path", c.Request().URL.Path),
					)
					returnErr = echo.NewHTTPError(http.StatusInternalServerError, msgInternal)
				}
			}()
			return next(c)
		}
	}
}

// requestLogger logs one line per request. Handler errors are rendered
// here so the logged status is the one sent to the client.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			level := slog.LevelInfo
			switch {
			case res.Status >= 500:
				level = slog.LevelError
			case res.Status >= 400:
				level = slog.LevelWarn
			}

			s.logger.LogAttrs(req.Context(), level, "request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		}
	}
}
