package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisClient is the subset of the go-redis client the locker needs.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// RedisLocker is a single instance Redis lock (SET NX PX with a token checked on release).
type RedisLocker struct {
	client      redisClient
	ttl         time.Duration
	waitTimeout time.Duration
	retryDelay  time.Duration
	maxDelay    time.Duration
}

var _ portsrepo.AggregateLocker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker whose locks expire after ttl and whose Acquire
// gives up after waitTimeout.
func NewRedisLocker(client redisClient, ttl, waitTimeout time.Duration) *RedisLocker {
	return &RedisLocker{
		client:      client,
		ttl:         ttl,
		waitTimeout: waitTimeout,
		retryDelay:  25 * time.Millisecond,
		maxDelay:    400 * time.Millisecond,
	}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Acquire retries with a doubling delay until the key is free, ctx ends, or the wait timeout passes.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.waitTimeout)
	delay := l.retryDelay

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s is held by another writer", apperrors.ErrLockNotAcquired, key)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", apperrors.ErrLockNotAcquired, ctx.Err())
		case <-time.After(min(delay, time.Until(deadline))):
		}
		delay = l.backoff(delay)
	}
}

// backoff doubles the retry delay up to the configured cap.
func (l *RedisLocker) backoff(delay time.Duration) time.Duration {
	return min(delay*2, l.maxDelay)
}

func (l *RedisLocker) releaser(key, token string) func(context.Context) error {
	return func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		if deleted == 0 {
			slog.WarnContext(ctx, "Lock expired before release", slog.String("key", key))
		}
		return nil
	}
}
