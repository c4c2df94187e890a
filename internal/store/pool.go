// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions bounds how long NewPool waits for the database.
type ConnectOptions struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultConnectOptions retries five times starting at 200ms.
var DefaultConnectOptions = ConnectOptions{
	MaxRetries: 5,
	BaseDelay:  200 * time.Millisecond,
}

// pinger is the part of *pgxpool.Pool NewPool waits on.
type pinger interface {
	Ping(ctx context.Context) error
}

// NewPool opens a pgx pool for dsn and waits until the database answers a
// ping, backing off exponentially between attempts.
func NewPool(ctx context.Context, dsn string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse dsn").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := waitReady(ctx, pool, opts); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitReady(ctx context.Context, p pinger, opts ConnectOptions) error {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultConnectOptions.BaseDelay
	}
	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewExponential(opts.BaseDelay))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := p.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempts).
			Wrap(err)
	}
	return nil
}
