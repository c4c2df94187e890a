// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

// Package redisstore implements auth.SessionStore on Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/credcore/credcore/internal/auth"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "sess:"

// Store implements auth.SessionStore. Entries are written with SET EX and
// read with plain GET, so reads never extend a session.
type Store struct {
	client redis.Cmdable
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store backed by client.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key holding token's session.
func (s *Store) Key(token string) string {
	return s.prefix + token
}

// Put stores the session under token for ttl.
func (s *Store) Put(ctx context.Context, token string, session *auth.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return oops.Code("SESSION_STORE_INVALID_TTL").With("ttl", ttl.String()).Errorf("ttl must be positive")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return oops.Code("SESSION_STORE_PUT_FAILED").With("operation", "marshal session").Wrap(err)
	}
	if err := s.client.Set(ctx, s.Key(token), data, ttl).Err(); err != nil {
		return oops.Code("SESSION_STORE_PUT_FAILED").With("operation", "set").Wrap(err)
	}
	return nil
}

// Get returns the session stored under token.
func (s *Store) Get(ctx context.Context, token string) (*auth.Session, error) {
	data, err := s.client.Get(ctx, s.Key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_STORE_GET_FAILED").With("operation", "get").Wrap(err)
	}

	var session auth.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, oops.Code("SESSION_STORE_CORRUPT").With("operation", "unmarshal session").Wrap(err)
	}
	session.Token = token
	return &session, nil
}

// Delete removes token's session. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.Key(token)).Err(); err != nil {
		return oops.Code("SESSION_STORE_DELETE_FAILED").With("operation", "del").Wrap(err)
	}
	return nil
}

// Dial connects to the Redis server at url and retries the initial ping
// with exponential backoff.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	return dial(ctx, url, retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond)))
}

func dial(ctx context.Context, url string, backoff retry.Backoff) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_CONFIG_INVALID").With("operation", "parse url").Wrap(err)
	}

	client := redis.NewClient(opts)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close() //nolint:errcheck // connect error takes precedence
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("operation", "ping").With("addr", opts.Addr).Wrap(err)
	}
	return client, nil
}
