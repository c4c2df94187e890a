// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// DialOnce connects without retrying a failed ping.
func DialOnce(ctx context.Context, url string) (*redis.Client, error) {
	return dial(ctx, url, retry.WithMaxRetries(0, retry.NewConstant(time.Millisecond)))
}
