package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps keys in memory and evaluates the release script by hand.
type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeRedis() *fakeRedis { return &fakeRedis{keys: map[string]string{}} }

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.keys[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) release(keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == args[0].(string) {
		delete(f.keys, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.release(keys, args...)
}

func (f *fakeRedis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.release(keys, args...)
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return f.EvalSha(ctx, sha1, keys, args...)
}

func (f *fakeRedis) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeRedis) ScriptLoad(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	locker := NewRedisLocker(client, time.Second, 10*time.Millisecond)
	locker.retryDelay = time.Millisecond

	release, err := locker.Acquire(ctx, "quote-aggregate:t1:a1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "quote-aggregate:t1:a1")
	assert.ErrorIs(t, err, apperrors.ErrLockNotAcquired)

	other, err := locker.Acquire(ctx, "quote-aggregate:t1:a2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	release, err = locker.Acquire(ctx, "quote-aggregate:t1:a1")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	locker := NewRedisLocker(client, time.Second, time.Millisecond)

	release, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	client.keys["k"] = "someone-else"

	require.NoError(t, release(ctx))
	assert.Equal(t, "someone-else", client.keys["k"])
}

func TestRedisLocker_ContextCancelled(t *testing.T) {
	client := newFakeRedis()
	client.keys["k"] = "held"
	locker := NewRedisLocker(client, time.Second, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := locker.Acquire(ctx, "k")

	assert.ErrorIs(t, err, apperrors.ErrLockNotAcquired)
}

func TestRedisLocker_BackoffDoublesUpToCap(t *testing.T) {
	locker := NewRedisLocker(newFakeRedis(), time.Second, time.Second)

	var delays []time.Duration
	delay := locker.retryDelay
	for range 6 {
		delays = append(delays, delay)
		delay = locker.backoff(delay)
	}

	assert.Equal(t, []time.Duration{
		25 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond,
		200 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond,
	}, delays)
}

func TestRedisLocker_WaitsForReleaseWithBackoff(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	locker := NewRedisLocker(client, time.Second, time.Second)
	locker.retryDelay = time.Millisecond
	locker.maxDelay = 4 * time.Millisecond

	release, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	time.AfterFunc(20*time.Millisecond, func() { _ = release(ctx) })

	second, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, second(ctx))
}
