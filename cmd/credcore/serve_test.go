// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credcore/credcore/internal/config"
	"github.com/credcore/credcore/internal/observability"
	"github.com/credcore/credcore/internal/web"
	"github.com/credcore/credcore/pkg/errutil"
)

var testClient = &http.Client{
	Transport: &http.Transport{DisableKeepAlives: true},
	Timeout:   5 * time.Second,
}

func testServeConfig() *config.Config {
	cfg := config.Default()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.LogLevel = "error"
	cfg.DatabaseURL = "postgres://credcore@localhost:5432/credcore"
	cfg.RedisURL = "redis://localhost:6379/0"
	cfg.Auth.Argon2 = config.Argon2Config{MemoryKiB: 1024, Iterations: 1, Threads: 1}
	return cfg
}

func quietCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd
}

// startedWeb reports the listen address once the web server is up.
type startedWeb struct {
	*web.Server
	started chan<- string
}

func (s *startedWeb) Start() (<-chan error, error) {
	errCh, err := s.Server.Start()
	if err == nil {
		s.started <- s.Server.Addr()
	}
	return errCh, err
}

type serveHarness struct {
	deps    *ServeDeps
	db      pgxmock.PgxPoolIface
	redis   *miniredis.Miniredis
	started chan string
	obs     chan ObservabilityServer
}

func newServeHarness(t *testing.T) *serveHarness {
	t.Helper()

	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	db.MatchExpectationsInOrder(false)

	mr := miniredis.RunT(t)
	h := &serveHarness{
		db:      db,
		redis:   mr,
		started: make(chan string, 1),
		obs:     make(chan ObservabilityServer, 1),
	}

	h.deps = &ServeDeps{
		DatabaseFactory: func(context.Context, string) (Database, error) {
			return db, nil
		},
		RedisFactory: func(context.Context, string) (RedisClient, error) {
			return redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil
		},
		ObservabilityServerFactory: func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			srv := observability.NewServer(addr, ready)
			h.obs <- srv
			return srv
		},
		WebServerFactory: func(addr string, authn web.Authenticator, sessions web.Sessions, users web.UserFinder, opts ...web.Option) (WebServer, error) {
			srv, err := web.NewServer(addr, authn, sessions, users, opts...)
			if err != nil {
				return nil, err
			}
			return &startedWeb{Server: srv, started: h.started}, nil
		},
	}
	return h
}

func waitStarted(t *testing.T, h *serveHarness, done <-chan error) string {
	t.Helper()
	select {
	case addr := <-h.started:
		return addr
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for web server")
	}
	return ""
}

func TestRunServe_EndToEnd(t *testing.T) {
	h := newServeHarness(t)
	h.db.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	h.db.ExpectPing()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runServeWithDeps(ctx, testServeConfig(), &serveOptions{}, quietCmd(), h.deps)
	}()
	addr := waitStarted(t, h, done)
	obs := <-h.obs

	resp, err := testClient.Post("http://"+addr+"/register", "application/json",
		strings.NewReader(`{"username":"alice","password":"s3cretpass"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "qid" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, h.redis.Exists("sess:"+session.Value))

	resp, err = testClient.Get("http://" + obs.Addr() + "/healthz/readiness")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = testClient.Get("http://" + obs.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `credcore_auth_requests_total{operation="register",outcome="success"} 1`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for shutdown")
	}
	assert.NoError(t, h.db.ExpectationsWereMet())
}

func TestRunServe_MetricsDisabled(t *testing.T) {
	h := newServeHarness(t)
	cfg := testServeConfig()
	cfg.MetricsAddr = ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runServeWithDeps(ctx, cfg, nil, quietCmd(), h.deps)
	}()
	addr := waitStarted(t, h, done)
	assert.Empty(t, h.obs)

	resp, err := testClient.Get("http://" + addr + "/me")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}

func TestRunServe_RunsMigrations(t *testing.T) {
	h := newServeHarness(t)
	fake := &fakeMigrator{}
	h.deps.MigratorFactory = func(url string) (MigrationRunner, error) {
		fake.url = url
		return fake, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testServeConfig()
	done := make(chan error, 1)
	go func() {
		done <- runServeWithDeps(ctx, cfg, &serveOptions{migrate: true}, quietCmd(), h.deps)
	}()
	waitStarted(t, h, done)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"up"}, fake.calls)
	assert.Equal(t, cfg.DatabaseURL, fake.url)
	assert.True(t, fake.closed)
}

func TestRunServe_Failures(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		cfg := testServeConfig()
		cfg.DatabaseURL = ""
		err := runServeWithDeps(context.Background(), cfg, nil, quietCmd(), newServeHarness(t).deps)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		errutil.AssertErrorContext(t, err, "field", "database_url")
	})

	t.Run("missing redis url", func(t *testing.T) {
		cfg := testServeConfig()
		cfg.RedisURL = ""
		err := runServeWithDeps(context.Background(), cfg, nil, quietCmd(), newServeHarness(t).deps)
		errutil.AssertErrorContext(t, err, "field", "redis_url")
	})

	t.Run("migration failure stops startup", func(t *testing.T) {
		h := newServeHarness(t)
		h.deps.MigratorFactory = func(string) (MigrationRunner, error) {
			return &fakeMigrator{upErr: errors.New("dirty database")}, nil
		}
		err := runServeWithDeps(context.Background(), testServeConfig(), &serveOptions{migrate: true}, quietCmd(), h.deps)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dirty database")
	})

	t.Run("database unavailable", func(t *testing.T) {
		h := newServeHarness(t)
		h.deps.DatabaseFactory = func(context.Context, string) (Database, error) {
			return nil, errors.New("connection refused")
		}
		err := runServeWithDeps(context.Background(), testServeConfig(), nil, quietCmd(), h.deps)
		errutil.AssertErrorCode(t, err, "SERVE_DB_FAILED")
	})

	t.Run("redis unavailable", func(t *testing.T) {
		h := newServeHarness(t)
		h.deps.RedisFactory = func(context.Context, string) (RedisClient, error) {
			return nil, errors.New("connection refused")
		}
		err := runServeWithDeps(context.Background(), testServeConfig(), nil, quietCmd(), h.deps)
		errutil.AssertErrorCode(t, err, "SERVE_REDIS_FAILED")
	})
}

func TestReadinessChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := pgxmock.NewPool()
	require.NoError(t, err)

	t.Run("ready", func(t *testing.T) {
		db.ExpectPing()
		assert.True(t, readinessChecker(db, rdb)())
	})

	t.Run("database down", func(t *testing.T) {
		db.ExpectPing().WillReturnError(errors.New("connection refused"))
		assert.False(t, readinessChecker(db, rdb)())
	})

	t.Run("redis down", func(t *testing.T) {
		db.ExpectPing()
		mr.SetError("LOADING Redis is loading the dataset in memory")
		defer mr.SetError("")
		assert.False(t, readinessChecker(db, rdb)())
	})

	assert.NoError(t, db.ExpectationsWereMet())
}

func TestMonitorServerErrors(t *testing.T) {
	t.Run("error cancels", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error, 1)
		errCh <- errors.New("listener closed")

		monitorServerErrors(ctx, cancel, errCh, "web")
		assert.Error(t, ctx.Err())
	})

	t.Run("closed channel does not cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error)
		close(errCh)

		monitorServerErrors(ctx, cancel, errCh, "web")
		assert.NoError(t, ctx.Err())
	})
}
