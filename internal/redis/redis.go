// Package redis opens the Redis connection used for session storage.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")
	ErrParseURL           = errors.New("redis: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("redis: connection failed")
)

const (
	retryAttempts = 3
	retryInterval = 5 * time.Second
)

// Open creates a Redis client with retry on startup.
// Supports redis:// and rediss:// (TLS) URL schemes.
func Open(ctx context.Context, url string) (redis.UniversalClient, error) {
	if url == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrParseURL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrParseURL, err)
	}

	for i := range retryAttempts {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectionFailed, ctx.Err())
		case <-time.After(time.Duration(i+1) * retryInterval):
		}
	}

	return nil, ErrConnectionFailed
}

// Shutdown returns a hook that closes the client during graceful shutdown.
func Shutdown(client redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Close()
	}
}
