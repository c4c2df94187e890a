// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package main

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/credcore/credcore/internal/observability"
	"github.com/credcore/credcore/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the PostgreSQL pool.
	// Default: store.NewPool with store.DefaultConnectOptions
	DatabaseFactory func(ctx context.Context, url string) (Database, error)

	// RedisFactory connects the session store client.
	// Default: redisstore.Dial
	RedisFactory func(ctx context.Context, url string) (RedisClient, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (MigrationRunner, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// WebServerFactory creates the auth HTTP server.
	// Default: web.NewServer
	WebServerFactory func(addr string, authn web.Authenticator, sessions web.Sessions, users web.UserFinder, opts ...web.Option) (WebServer, error)
}

// Database wraps the methods used from *pgxpool.Pool.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// RedisClient wraps the methods used from *redis.Client.
type RedisClient interface {
	redis.Cmdable
	Close() error
}

// MigrationRunner wraps the methods used from store.Migrator.
type MigrationRunner interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// WebServer wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
